package assistant

import (
	"regexp"
	"strings"

	"github.com/payhuk02/emarzona/internal/domain"
)

// Intent is the closed set of intents the assistant can route
type Intent string

const (
	IntentOrderInquiry    Intent = "order_inquiry"
	IntentShippingInquiry Intent = "shipping_inquiry"
	IntentReturnInquiry   Intent = "return_inquiry"
	IntentProductSearch   Intent = "product_search"
	IntentRecommendation  Intent = "recommendation"
	IntentHelp            Intent = "help"
	IntentGeneral         Intent = "general"
)

// AllIntents lists every intent; the dispatcher must handle each of them
var AllIntents = []Intent{
	IntentOrderInquiry,
	IntentShippingInquiry,
	IntentReturnInquiry,
	IntentProductSearch,
	IntentRecommendation,
	IntentHelp,
	IntentGeneral,
}

// GeneralConfidence is the confidence given to messages matching no rule
const GeneralConfidence = 0.5

// Classifier maps a user message to an intent. Implementations never fail:
// anything unrecognized is IntentGeneral.
type Classifier interface {
	Classify(message string, sessionContext map[string]any) domain.IntentResult
}

type intentRule struct {
	intent     Intent
	keywords   []string
	confidence float64
	extract    func(lower string) map[string]any
}

// rules are checked in order and the first match wins. The order is part of
// the observable behavior: "order" outranks "shipping" and so on.
var rules = []intentRule{
	{IntentOrderInquiry, []string{"commande", "order", "achat"}, 0.9, extractOrderNumber},
	{IntentShippingInquiry, []string{"livraison", "delivery", "expédition", "expedition", "shipping"}, 0.9, extractShippingAspect},
	{IntentReturnInquiry, []string{"retour", "return", "remboursement", "rembourser", "refund"}, 0.9, nil},
	{IntentProductSearch, []string{"produit", "product", "chercher", "cherche"}, 0.8, extractProductQuery},
	{IntentRecommendation, []string{"recommandation", "suggérer", "suggestion", "conseil", "recommend"}, 0.8, nil},
	{IntentHelp, []string{"aide", "help", "support"}, 0.7, nil},
}

// KeywordClassifier classifies by case-insensitive keyword containment
type KeywordClassifier struct{}

// NewKeywordClassifier creates the default classifier
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify implements Classifier
func (c *KeywordClassifier) Classify(message string, _ map[string]any) domain.IntentResult {
	lower := strings.ToLower(message)

	for _, r := range rules {
		if !containsAny(lower, r.keywords) {
			continue
		}
		entities := map[string]any{}
		if r.extract != nil {
			entities = r.extract(lower)
		}
		return domain.IntentResult{
			Intent:     string(r.intent),
			Confidence: r.confidence,
			Entities:   entities,
		}
	}

	return domain.IntentResult{
		Intent:     string(IntentGeneral),
		Confidence: GeneralConfidence,
		Entities:   map[string]any{},
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

var orderNumberPattern = regexp.MustCompile(`#\s*(\d+)`)

func extractOrderNumber(lower string) map[string]any {
	entities := map[string]any{}
	if m := orderNumberPattern.FindStringSubmatch(lower); m != nil {
		entities[domain.ContextOrderNumber] = m[1]
	}
	return entities
}

var shippingAspects = []struct {
	aspect   string
	keywords []string
}{
	{"address", []string{"adresse", "address"}},
	{"tracking", []string{"suivi", "suivre", "track"}},
	{"delay", []string{"délai", "delai", "quand", "when"}},
	{"cost", []string{"frais", "prix", "coût", "cout", "cost"}},
}

func extractShippingAspect(lower string) map[string]any {
	entities := map[string]any{}
	for _, a := range shippingAspects {
		if containsAny(lower, a.keywords) {
			entities[domain.ContextShippingAspect] = a.aspect
			break
		}
	}
	return entities
}

var searchVerbs = regexp.MustCompile(`chercher|trouver|besoin|veut`)

func extractProductQuery(lower string) map[string]any {
	entities := map[string]any{}
	query := strings.Join(strings.Fields(searchVerbs.ReplaceAllString(lower, " ")), " ")
	if query != "" {
		entities[domain.ContextProductQuery] = query
	}
	return entities
}
