package assistant

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/payhuk02/emarzona/internal/domain"
	"github.com/payhuk02/emarzona/internal/recommendation"
)

const (
	recentOrdersLimit   = 3
	searchResultsLimit  = 3
	maxProductLinks     = 2
	maxRecommendedShown = 3
)

var orderStatusLabels = map[domain.OrderStatus]string{
	domain.OrderPending:    "en attente",
	domain.OrderConfirmed:  "confirmée",
	domain.OrderProcessing: "en préparation",
	domain.OrderShipped:    "expédiée",
	domain.OrderDelivered:  "livrée",
	domain.OrderCancelled:  "annulée",
	domain.OrderRefunded:   "remboursée",
}

// OrderStatusLabel returns the French label of a status; unknown codes are
// returned as is.
func OrderStatusLabel(s domain.OrderStatus) string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (d *Dispatcher) handleOrderInquiry(ctx context.Context, turn Turn) Reply {
	userID := turn.Session.UserID
	if userID == "" {
		return Reply{
			Content: "Pour consulter vos commandes, veuillez vous connecter à votre compte.",
			Actions: []domain.ChatAction{navigate("Se connecter", "/auth")},
		}
	}

	fetchCtx, cancel := d.withFetchTimeout(ctx)
	defer cancel()

	orders, err := d.catalog.FindOrdersByCustomer(fetchCtx, userID, recentOrdersLimit, true)
	if err != nil {
		d.logger.Error().Err(err).
			Str("session_id", turn.Session.ID).
			Str("user_id", userID).
			Msg("failed to fetch orders")
		return Reply{Content: "J'ai du mal à accéder à vos commandes pour le moment. Veuillez réessayer dans quelques instants."}
	}

	if len(orders) == 0 {
		return Reply{
			Content: "Vous n'avez pas encore passé de commande.",
			Actions: []domain.ChatAction{navigate("Découvrir la marketplace", "/marketplace")},
		}
	}

	order := orders[0]
	if wanted, ok := turn.Intent.Entities[domain.ContextOrderNumber].(string); ok {
		for _, o := range orders {
			if strings.HasSuffix(o.ID, wanted) {
				order = o
				break
			}
		}
	}

	content := fmt.Sprintf("Votre commande %s du %s est %s.",
		order.ID, order.CreatedAt.Format("02/01/2006"), OrderStatusLabel(order.Status))
	if !order.TotalAmount.IsZero() {
		content += fmt.Sprintf(" Montant : %s %s.", order.TotalAmount.StringFixed(2), order.Currency)
	}

	return Reply{
		Content: content,
		Actions: []domain.ChatAction{
			navigate("Voir la commande", "/account/orders/"+order.ID),
			quickReply("Suivre ma livraison", "Où en est la livraison de ma commande ?"),
		},
	}
}

var shippingIntros = map[string]string{
	"address":  "Vous pouvez modifier l'adresse de livraison tant que la commande n'a pas été expédiée.",
	"tracking": "Un numéro de suivi vous est envoyé par email dès l'expédition de votre commande.",
	"delay":    "Les commandes sont généralement livrées sous 3 à 7 jours ouvrés.",
	"cost":     "Les frais de livraison dépendent de la boutique et sont affichés avant le paiement.",
}

func (d *Dispatcher) handleShippingInquiry(_ context.Context, turn Turn) Reply {
	content := "Les commandes physiques sont expédiées par chaque boutique et livrées sous 3 à 7 jours ouvrés. " +
		"Les produits digitaux sont disponibles immédiatement après le paiement."
	if aspect, ok := turn.Intent.Entities[domain.ContextShippingAspect].(string); ok {
		if intro, ok := shippingIntros[aspect]; ok {
			content = intro + " " + content
		}
	}

	return Reply{
		Content: content,
		Actions: []domain.ChatAction{
			navigate("Suivre mes commandes", "/account/orders"),
			quickReply("Frais de livraison", "Combien coûte la livraison ?"),
		},
		Suggestions: []string{
			"Quels sont les délais de livraison ?",
			"Comment suivre mon colis ?",
			"Puis-je changer mon adresse de livraison ?",
		},
	}
}

func (d *Dispatcher) handleReturnInquiry(_ context.Context, _ Turn) Reply {
	return Reply{
		Content: "Vous disposez de 14 jours après réception pour demander un retour. " +
			"Le remboursement est effectué sur votre moyen de paiement initial une fois le retour validé par la boutique.",
		Actions: []domain.ChatAction{
			navigate("Mes commandes", "/account/orders"),
			quickReply("Contacter le support", "Je voudrais parler au support pour un retour"),
		},
	}
}

var searchStopwords = map[string]bool{
	"je": true, "j'ai": true, "cherche": true, "chercher": true, "recherche": true,
	"trouver": true, "besoin": true, "veux": true, "veut": true, "voudrais": true,
	"un": true, "une": true, "des": true, "le": true, "la": true, "les": true,
	"de": true, "du": true, "d'un": true, "d'une": true, "pour": true,
	"produit": true, "produits": true, "product": true, "products": true,
	"i": true, "a": true, "an": true, "the": true, "find": true, "looking": true, "for": true, "search": true,
}

// SearchQuery strips stopwords and punctuation from a search message
func SearchQuery(message string) string {
	var kept []string
	for _, w := range strings.Fields(strings.ToLower(message)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) && r != '\''
		})
		if w == "" || searchStopwords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func (d *Dispatcher) handleProductSearch(ctx context.Context, turn Turn) Reply {
	query := SearchQuery(turn.Message)
	if query == "" {
		return Reply{
			Content: "Que recherchez-vous ? Décrivez-moi le produit qui vous intéresse.",
			Suggestions: []string{
				"Je cherche une formation en marketing",
				"Je cherche un ebook de cuisine",
				"Je cherche des services de design",
			},
		}
	}

	fetchCtx, cancel := d.withFetchTimeout(ctx)
	defer cancel()

	products, err := d.catalog.SearchProductsByName(fetchCtx, query, searchResultsLimit)
	if err != nil {
		d.logger.Error().Err(err).
			Str("session_id", turn.Session.ID).
			Str("query", query).
			Msg("failed to search products")
		return Reply{Content: "Une erreur est survenue pendant la recherche. Veuillez réessayer."}
	}

	if len(products) == 0 {
		return Reply{
			Content: fmt.Sprintf("Je n'ai trouvé aucun produit correspondant à « %s ».", query),
			Actions: []domain.ChatAction{navigate("Parcourir le catalogue", "/marketplace")},
		}
	}

	var b strings.Builder
	b.WriteString("Voici ce que j'ai trouvé :")
	actions := make([]domain.ChatAction, 0, maxProductLinks)
	for i, p := range products {
		b.WriteString("\n- " + p.Name)
		if i < maxProductLinks {
			actions = append(actions, navigate("Voir "+p.Name, "/products/"+p.ID))
		}
	}

	return Reply{Content: b.String(), Actions: actions}
}

func (d *Dispatcher) handleRecommendation(ctx context.Context, turn Turn) Reply {
	productID, _ := turn.Session.Context[domain.ContextCurrentProductID].(string)

	fetchCtx, cancel := d.withFetchTimeout(ctx)
	defer cancel()

	recs, err := d.recommender.GetRecommendations(fetchCtx, recommendation.Request{
		UserID:           turn.Session.UserID,
		SessionContext:   turn.Session.Context,
		CurrentProductID: productID,
	})
	if err != nil {
		d.logger.Error().Err(err).
			Str("session_id", turn.Session.ID).
			Msg("failed to get recommendations")
		return Reply{Content: "Je ne parviens pas à générer des recommandations pour le moment. Veuillez réessayer plus tard."}
	}

	if len(recs) == 0 {
		return Reply{
			Content: "Je n'ai pas encore assez d'informations pour vous conseiller. Explorez la marketplace pour découvrir nos produits !",
			Actions: []domain.ChatAction{navigate("Explorer la marketplace", "/marketplace")},
		}
	}

	var b strings.Builder
	b.WriteString("Voici quelques produits qui pourraient vous plaire :")
	for i, r := range recs {
		if i == maxRecommendedShown {
			break
		}
		fmt.Fprintf(&b, "\n- %s (%s)", r.Name, r.Reason)
	}

	return Reply{
		Content: b.String(),
		Actions: []domain.ChatAction{{
			Type:    domain.ActionProductRecommendation,
			Label:   "Voir les recommandations",
			Payload: map[string]any{"products": recs},
		}},
	}
}

func (d *Dispatcher) handleHelp(_ context.Context, _ Turn) Reply {
	return Reply{
		Content: "Je peux vous aider à :\n" +
			"- suivre vos commandes\n" +
			"- répondre à vos questions sur la livraison et les retours\n" +
			"- rechercher des produits\n" +
			"- vous recommander des produits",
		Suggestions: []string{
			"Où en est ma commande ?",
			"Je cherche un produit",
			"Que me recommandes-tu ?",
		},
	}
}

var (
	greetingKeywords = []string{"bonjour", "salut", "hello"}
	thanksKeywords   = []string{"merci", "thank"}
)

func (d *Dispatcher) handleGeneral(_ context.Context, turn Turn) Reply {
	lower := strings.ToLower(turn.Message)

	switch {
	case containsAny(lower, greetingKeywords):
		return Reply{
			Content: "Bonjour ! Je suis votre assistant. Comment puis-je vous aider aujourd'hui ?",
			Suggestions: []string{
				"Où en est ma commande ?",
				"Je cherche un produit",
				"J'ai besoin d'aide",
			},
		}
	case containsAny(lower, thanksKeywords):
		return Reply{Content: "Avec plaisir ! N'hésitez pas si vous avez d'autres questions."}
	}

	return Reply{
		Content: "Je ne suis pas sûr d'avoir compris. Pouvez-vous reformuler votre question ?",
		Suggestions: []string{
			"Suivre ma commande",
			"Rechercher un produit",
			"Obtenir de l'aide",
		},
	}
}
