package recommendation

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/payhuk02/emarzona/internal/domain"
)

// Fallback scores sit below any default confidence threshold so that a
// fallback entry never outranks a primary one.
const (
	fallbackScoreTrending = 0.04
	fallbackScorePopular  = 0.03
	fallbackScoreCategory = 0.02
	fallbackScoreStore    = 0.01
)

// SettingsLoader supplies the settings used for one request
type SettingsLoader interface {
	Load(ctx context.Context) domain.RecommendationSettings
}

// Aggregator runs the enabled strategies, merges their output and tops the
// list up from the fallback sources.
type Aggregator struct {
	settings SettingsLoader
	catalog  Catalog
	runners  []Runner
	trending *TrendingRunner
	logger   zerolog.Logger
}

// Option customizes an Aggregator
type Option func(*Aggregator)

// WithRunners replaces the built-in strategies
func WithRunners(runners ...Runner) Option {
	return func(a *Aggregator) {
		a.runners = runners
	}
}

// NewAggregator creates an aggregator over the default strategies
func NewAggregator(settings SettingsLoader, catalog Catalog, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		settings: settings,
		catalog:  catalog,
		runners:  DefaultRunners(catalog),
		trending: NewTrendingRunner(catalog),
		logger:   logger.With().Str("component", "recommendation_aggregator").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetRecommendations returns at most MaxRecommendationsPerPage products, best
// first. Strategy and fallback failures are logged and skipped; the only error
// returned is the cancellation of ctx.
func (a *Aggregator) GetRecommendations(ctx context.Context, req Request) ([]domain.RecommendedProduct, error) {
	settings := a.settings.Load(ctx)
	pageSize := settings.General.MaxRecommendationsPerPage

	primary := AggregateAndDedup(a.runPrimary(ctx, req, settings))
	primary = filterByType(primary, settings)
	sortByScore(primary)
	primary = capPerType(primary, settings)
	primary = truncate(primary, pageSize)

	result := primary
	if len(primary) < pageSize && settings.Fallback.Any() {
		fallback := a.runFallback(ctx, req, settings, primary, pageSize-len(primary))
		result = AggregateAndDedup(append(primary, fallback...))
		sortByScore(result)
		result = truncate(result, pageSize)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.logger.Debug().
		Str("user_id", req.UserID).
		Str("product_id", req.CurrentProductID).
		Int("primary", len(primary)).
		Int("returned", len(result)).
		Msg("recommendations computed")

	return result, nil
}

// runPrimary runs every enabled strategy concurrently. Output is returned in
// runner order so the merge is deterministic.
func (a *Aggregator) runPrimary(ctx context.Context, req Request, settings domain.RecommendationSettings) []domain.RecommendedProduct {
	results := make([][]domain.RecommendedProduct, len(a.runners))

	var g errgroup.Group
	for i, r := range a.runners {
		if !settings.AlgorithmEnabled(r.Name()) {
			continue
		}
		g.Go(func() error {
			out, err := safeRun(ctx, r, req, settings)
			if err != nil {
				a.logger.Warn().Err(err).Str("algorithm", r.Name()).Msg("recommendation algorithm failed, skipping")
				return nil
			}
			weight := settings.AlgorithmWeight(r.Name()) / 100
			scaled := make([]domain.RecommendedProduct, len(out))
			for j, p := range out {
				p.Score *= weight
				scaled[j] = p
			}
			results[i] = scaled
			return nil
		})
	}
	_ = g.Wait()

	var pool []domain.RecommendedProduct
	for _, out := range results {
		pool = append(pool, out...)
	}
	return pool
}

func safeRun(ctx context.Context, r Runner, req Request, settings domain.RecommendationSettings) (out []domain.RecommendedProduct, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("algorithm %s panicked: %v", r.Name(), rec)
		}
	}()
	return r.Run(ctx, req, settings)
}

type fallbackSource struct {
	name  string
	score float64
	fetch func(limit int) ([]domain.RecommendedProduct, error)
}

func (a *Aggregator) fallbackSources(ctx context.Context, req Request, settings domain.RecommendationSettings) []fallbackSource {
	var sources []fallbackSource
	f := settings.Fallback
	if f.FallbackToTrending {
		sources = append(sources, fallbackSource{"trending", fallbackScoreTrending, func(limit int) ([]domain.RecommendedProduct, error) {
			return a.trending.fetch(ctx, limit)
		}})
	}
	if f.FallbackToPopular {
		sources = append(sources, fallbackSource{"popular", fallbackScorePopular, func(limit int) ([]domain.RecommendedProduct, error) {
			p, err := a.catalog.MostViewedProducts(ctx, limit)
			return rankedByPosition(p, ReasonPopular), err
		}})
	}
	if f.FallbackToCategory && req.CurrentProductID != "" {
		sources = append(sources, fallbackSource{"category", fallbackScoreCategory, func(limit int) ([]domain.RecommendedProduct, error) {
			p, err := a.catalog.ProductsInCategory(ctx, req.CurrentProductID, limit)
			return rankedByPosition(p, ReasonSameCategory), err
		}})
	}
	if f.FallbackToStore && req.CurrentProductID != "" {
		sources = append(sources, fallbackSource{"store", fallbackScoreStore, func(limit int) ([]domain.RecommendedProduct, error) {
			p, err := a.catalog.ProductsInStore(ctx, req.CurrentProductID, limit)
			return rankedByPosition(p, ReasonSameStore), err
		}})
	}
	return sources
}

// runFallback collects up to need products not already in primary, walking
// the sources in order and asking each only for what is still missing.
func (a *Aggregator) runFallback(ctx context.Context, req Request, settings domain.RecommendationSettings, primary []domain.RecommendedProduct, need int) []domain.RecommendedProduct {
	seen := make(map[string]bool, len(primary))
	for _, p := range primary {
		seen[p.ID] = true
	}
	if req.CurrentProductID != "" {
		seen[req.CurrentProductID] = true
	}

	var out []domain.RecommendedProduct
	for _, src := range a.fallbackSources(ctx, req, settings) {
		if need <= 0 || ctx.Err() != nil {
			break
		}
		items, err := src.fetch(need + len(seen))
		if err != nil {
			a.logger.Warn().Err(err).Str("source", src.name).Msg("recommendation fallback failed, skipping")
			continue
		}
		taken := 0
		for _, it := range items {
			if taken == need {
				break
			}
			if seen[it.ID] {
				continue
			}
			if enabled, _ := settings.TypeRule(it.Type); !enabled {
				continue
			}
			seen[it.ID] = true
			it.Score = src.score * rankDecay(taken)
			out = append(out, it)
			taken++
		}
		need -= taken
	}
	return out
}

// AggregateAndDedup merges duplicates by id keeping the highest score. The
// result preserves the order in which ids were first seen.
func AggregateAndDedup(items []domain.RecommendedProduct) []domain.RecommendedProduct {
	index := make(map[string]int, len(items))
	out := make([]domain.RecommendedProduct, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ID]; ok {
			if it.Score > out[i].Score {
				out[i] = it
			}
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}

func filterByType(items []domain.RecommendedProduct, settings domain.RecommendationSettings) []domain.RecommendedProduct {
	out := items[:0]
	for _, it := range items {
		enabled, threshold := settings.TypeRule(it.Type)
		if enabled && it.Score >= threshold {
			out = append(out, it)
		}
	}
	return out
}

// capPerType keeps at most MaxRecommendations entries of each type; items
// must already be sorted.
func capPerType(items []domain.RecommendedProduct, settings domain.RecommendationSettings) []domain.RecommendedProduct {
	counts := make(map[domain.ProductType]int)
	out := items[:0]
	for _, it := range items {
		rule, ok := settings.ProductTypes[it.Type]
		if ok && rule.MaxRecommendations > 0 && counts[it.Type] >= rule.MaxRecommendations {
			continue
		}
		counts[it.Type]++
		out = append(out, it)
	}
	return out
}

func sortByScore(items []domain.RecommendedProduct) {
	slices.SortStableFunc(items, func(a, b domain.RecommendedProduct) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
}

func truncate(items []domain.RecommendedProduct, n int) []domain.RecommendedProduct {
	if len(items) > n {
		return items[:n]
	}
	return items
}
