package recommendation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/payhuk02/emarzona/internal/domain"
)

// Catalog is the part of the catalog gateway the recommender reads from
type Catalog interface {
	MostViewedProducts(ctx context.Context, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ProductsInCategory(ctx context.Context, productID string, limit int) ([]domain.Product, error)
	ProductsInStore(ctx context.Context, productID string, limit int) ([]domain.Product, error)
	ProductsInCategories(ctx context.Context, categories []string, limit int) ([]domain.Product, error)
	CoPurchasedProducts(ctx context.Context, customerID string, limit int) ([]domain.Product, error)
}

// Request describes who and what recommendations are computed for
type Request struct {
	UserID           string
	SessionContext   map[string]any
	CurrentProductID string
}

// Runner is one pluggable scoring strategy. Scores returned are local to the
// strategy, in [0,1]; the aggregator applies the configured weight.
type Runner interface {
	Name() string
	Run(ctx context.Context, req Request, settings domain.RecommendationSettings) ([]domain.RecommendedProduct, error)
}

// Reasons shown next to a recommendation
const (
	ReasonCollaborative = "Acheté par des clients aux goûts similaires"
	ReasonContentBased  = "Similaire au produit consulté"
	ReasonTrending      = "Tendance du moment"
	ReasonBehavioral    = "Inspiré de votre navigation"
	ReasonCrossType     = "Pour compléter votre achat"
	ReasonPopular       = "Populaire sur la marketplace"
	ReasonSameCategory  = "Dans la même catégorie"
	ReasonSameStore     = "De la même boutique"
)

// DefaultRunners returns the five built-in strategies in their canonical order
func DefaultRunners(catalog Catalog) []Runner {
	return []Runner{
		NewCollaborativeRunner(catalog),
		NewContentBasedRunner(catalog),
		NewTrendingRunner(catalog),
		NewBehavioralRunner(catalog),
		NewCrossTypeRunner(catalog),
	}
}

func candidateLimit(s domain.RecommendationSettings) int {
	return s.General.MaxRecommendationsPerPage * 2
}

// rankDecay gives the i-th ranked candidate a score in (0,1]
func rankDecay(i int) float64 {
	return 1 / (1 + 0.1*float64(i))
}

func toRecommended(p domain.Product, score float64, reason string) domain.RecommendedProduct {
	return domain.RecommendedProduct{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Type:     p.Type,
		Score:    score,
		Reason:   reason,
	}
}

func rankedByPosition(products []domain.Product, reason string) []domain.RecommendedProduct {
	out := make([]domain.RecommendedProduct, 0, len(products))
	for i, p := range products {
		out = append(out, toRecommended(p, rankDecay(i), reason))
	}
	return out
}

func personalized(req Request, s domain.RecommendationSettings) bool {
	return s.General.EnablePersonalization && req.UserID != ""
}

// currentProduct loads the product being viewed; a missing product yields nil
func currentProduct(ctx context.Context, catalog Catalog, id string) (*domain.Product, error) {
	p, err := catalog.GetProduct(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return p, nil
}

// CollaborativeRunner recommends what customers with overlapping purchases bought
type CollaborativeRunner struct{ catalog Catalog }

func NewCollaborativeRunner(catalog Catalog) *CollaborativeRunner {
	return &CollaborativeRunner{catalog: catalog}
}

func (r *CollaborativeRunner) Name() string { return domain.AlgorithmCollaborative }

func (r *CollaborativeRunner) Run(ctx context.Context, req Request, s domain.RecommendationSettings) ([]domain.RecommendedProduct, error) {
	if !personalized(req, s) {
		return nil, nil
	}
	products, err := r.catalog.CoPurchasedProducts(ctx, req.UserID, candidateLimit(s))
	if err != nil {
		return nil, fmt.Errorf("failed to get co-purchased products: %w", err)
	}
	return rankedByPosition(products, ReasonCollaborative), nil
}

// ContentBasedRunner scores neighbours of the current product by similarity
type ContentBasedRunner struct{ catalog Catalog }

func NewContentBasedRunner(catalog Catalog) *ContentBasedRunner {
	return &ContentBasedRunner{catalog: catalog}
}

func (r *ContentBasedRunner) Name() string { return domain.AlgorithmContentBased }

func (r *ContentBasedRunner) Run(ctx context.Context, req Request, s domain.RecommendationSettings) ([]domain.RecommendedProduct, error) {
	if req.CurrentProductID == "" {
		return nil, nil
	}
	current, err := currentProduct(ctx, r.catalog, req.CurrentProductID)
	if err != nil || current == nil {
		return nil, err
	}

	limit := candidateLimit(s)
	sameCategory, err := r.catalog.ProductsInCategory(ctx, current.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get category neighbours: %w", err)
	}
	sameStore, err := r.catalog.ProductsInStore(ctx, current.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get store neighbours: %w", err)
	}

	seen := make(map[string]bool)
	var out []domain.RecommendedProduct
	for _, p := range append(sameCategory, sameStore...) {
		if seen[p.ID] || p.ID == current.ID {
			continue
		}
		seen[p.ID] = true
		out = append(out, toRecommended(p, Similarity(*current, p, s.SimilarityWeights), ReasonContentBased))
	}
	return out, nil
}

// Similarity is the weighted mean of per-dimension similarities, in [0,1]
func Similarity(a, b domain.Product, w domain.SimilarityWeights) float64 {
	total := w.Category + w.Store + w.Price + w.Tags
	if total == 0 {
		return 0
	}

	var score float64
	if a.Category != "" && a.Category == b.Category {
		score += w.Category
	}
	if a.StoreID != "" && a.StoreID == b.StoreID {
		score += w.Store
	}
	score += w.Price * priceSimilarity(a.Price, b.Price)
	score += w.Tags * tagOverlap(a.Tags, b.Tags)

	return score / total
}

func priceSimilarity(a, b decimal.Decimal) float64 {
	if !a.IsPositive() || !b.IsPositive() {
		return 0
	}
	high := decimal.Max(a, b)
	diff := a.Sub(b).Abs()
	sim, _ := decimal.NewFromInt(1).Sub(diff.Div(high)).Float64()
	return sim
}

// tagOverlap is the Jaccard index of two tag sets
func tagOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	union := len(set)
	inter := 0
	counted := make(map[string]bool, len(b))
	for _, t := range b {
		if counted[t] {
			continue
		}
		counted[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// TrendingRunner ranks the most viewed products
type TrendingRunner struct{ catalog Catalog }

func NewTrendingRunner(catalog Catalog) *TrendingRunner {
	return &TrendingRunner{catalog: catalog}
}

func (r *TrendingRunner) Name() string { return domain.AlgorithmTrending }

func (r *TrendingRunner) Run(ctx context.Context, _ Request, s domain.RecommendationSettings) ([]domain.RecommendedProduct, error) {
	return r.fetch(ctx, candidateLimit(s))
}

func (r *TrendingRunner) fetch(ctx context.Context, limit int) ([]domain.RecommendedProduct, error) {
	products, err := r.catalog.MostViewedProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trending products: %w", err)
	}
	return rankedByPosition(products, ReasonTrending), nil
}

// BehavioralRunner recommends from the categories browsed during the session
type BehavioralRunner struct{ catalog Catalog }

func NewBehavioralRunner(catalog Catalog) *BehavioralRunner {
	return &BehavioralRunner{catalog: catalog}
}

func (r *BehavioralRunner) Name() string { return domain.AlgorithmBehavioral }

// maxBrowsedItems bounds the product lookups made per request
const maxBrowsedItems = 10

func (r *BehavioralRunner) Run(ctx context.Context, req Request, s domain.RecommendationSettings) ([]domain.RecommendedProduct, error) {
	if !personalized(req, s) {
		return nil, nil
	}

	counts, browsed, err := r.browsedCategories(ctx, req.SessionContext)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}

	categories := make([]string, 0, len(counts))
	maxCount := 0
	for c, n := range counts {
		categories = append(categories, c)
		maxCount = max(maxCount, n)
	}
	slices.Sort(categories)

	products, err := r.catalog.ProductsInCategories(ctx, categories, candidateLimit(s))
	if err != nil {
		return nil, fmt.Errorf("failed to get products for browsed categories: %w", err)
	}

	var out []domain.RecommendedProduct
	for _, p := range products {
		if browsed[p.ID] {
			continue
		}
		affinity := float64(counts[p.Category]) / float64(maxCount)
		out = append(out, toRecommended(p, affinity*rankDecay(len(out)), ReasonBehavioral))
	}
	return out, nil
}

// browsedCategories reads the browsingHistory context entry. Entries are
// either product ids or objects carrying "id" and/or "category".
func (r *BehavioralRunner) browsedCategories(ctx context.Context, sc map[string]any) (map[string]int, map[string]bool, error) {
	counts := make(map[string]int)
	browsed := make(map[string]bool)

	entries := historyEntries(sc[domain.ContextBrowsingHistory])
	if len(entries) > maxBrowsedItems {
		entries = entries[len(entries)-maxBrowsedItems:]
	}

	for _, e := range entries {
		var id, category string
		switch v := e.(type) {
		case string:
			id = v
		case map[string]any:
			id, _ = v["id"].(string)
			category, _ = v["category"].(string)
		}
		if id != "" {
			browsed[id] = true
		}
		if category == "" && id != "" {
			p, err := currentProduct(ctx, r.catalog, id)
			if err != nil {
				return nil, nil, err
			}
			if p != nil {
				category = p.Category
			}
		}
		if category != "" {
			counts[category]++
		}
	}
	return counts, browsed, nil
}

func historyEntries(v any) []any {
	switch h := v.(type) {
	case []any:
		return h
	case []string:
		out := make([]any, len(h))
		for i, s := range h {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(h))
		for i, m := range h {
			out[i] = m
		}
		return out
	}
	return nil
}

// CrossTypeRunner suggests products of another type sold alongside the current one
type CrossTypeRunner struct{ catalog Catalog }

func NewCrossTypeRunner(catalog Catalog) *CrossTypeRunner {
	return &CrossTypeRunner{catalog: catalog}
}

func (r *CrossTypeRunner) Name() string { return domain.AlgorithmCrossType }

func (r *CrossTypeRunner) Run(ctx context.Context, req Request, s domain.RecommendationSettings) ([]domain.RecommendedProduct, error) {
	if req.CurrentProductID == "" {
		return nil, nil
	}
	current, err := currentProduct(ctx, r.catalog, req.CurrentProductID)
	if err != nil || current == nil {
		return nil, err
	}

	limit := candidateLimit(s)
	sameStore, err := r.catalog.ProductsInStore(ctx, current.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get store products: %w", err)
	}
	sameCategory, err := r.catalog.ProductsInCategory(ctx, current.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get category products: %w", err)
	}

	seen := make(map[string]bool)
	var out []domain.RecommendedProduct
	for _, p := range append(sameStore, sameCategory...) {
		if p.Type == current.Type || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, toRecommended(p, 0.8*rankDecay(len(out)), ReasonCrossType))
	}
	return out, nil
}
