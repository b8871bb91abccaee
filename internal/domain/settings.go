package domain

import (
	"context"
	"fmt"
	"maps"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Algorithm names as they appear in settings, logs and reasons
const (
	AlgorithmCollaborative = "collaborative"
	AlgorithmContentBased  = "contentBased"
	AlgorithmTrending      = "trending"
	AlgorithmBehavioral    = "behavioral"
	AlgorithmCrossType     = "crossType"
)

// SettingsKeyRecommendations identifies the singleton settings record
const SettingsKeyRecommendations = "recommendations"

// AlgorithmToggles enables or disables each scoring strategy
type AlgorithmToggles struct {
	Collaborative bool `json:"collaborative"`
	ContentBased  bool `json:"contentBased"`
	Trending      bool `json:"trending"`
	Behavioral    bool `json:"behavioral"`
	CrossType     bool `json:"crossType"`
}

// AlgorithmWeights scale each strategy's scores by weight/100. They are not
// required to sum to 100.
type AlgorithmWeights struct {
	Collaborative float64 `json:"collaborative" validate:"gte=0"`
	ContentBased  float64 `json:"contentBased" validate:"gte=0"`
	Trending      float64 `json:"trending" validate:"gte=0"`
	Behavioral    float64 `json:"behavioral" validate:"gte=0"`
	CrossType     float64 `json:"crossType" validate:"gte=0"`
}

// SimilarityWeights weight the dimensions compared by content-based scoring
type SimilarityWeights struct {
	Category float64 `json:"category" validate:"gte=0"`
	Store    float64 `json:"store" validate:"gte=0"`
	Price    float64 `json:"price" validate:"gte=0"`
	Tags     float64 `json:"tags" validate:"gte=0"`
}

// ProductTypeSettings tune recommendations for one product type. A zero
// SimilarityThreshold means the global MinConfidenceThreshold applies.
type ProductTypeSettings struct {
	Enabled             bool    `json:"enabled"`
	MaxRecommendations  int     `json:"maxRecommendations" validate:"gte=0"`
	SimilarityThreshold float64 `json:"similarityThreshold" validate:"gte=0,lte=1"`
}

// GeneralSettings holds the global limits
type GeneralSettings struct {
	MaxRecommendationsPerPage int     `json:"maxRecommendationsPerPage" validate:"min=1,max=100"`
	MinConfidenceThreshold    float64 `json:"minConfidenceThreshold" validate:"gte=0,lte=1"`
	CacheExpiryMinutes        int     `json:"cacheExpiryMinutes" validate:"gte=0"`
	EnablePersonalization     bool    `json:"enablePersonalization"`
}

// FallbackSettings toggle the fallback sources, always tried in field order
type FallbackSettings struct {
	FallbackToTrending bool `json:"fallbackToTrending"`
	FallbackToPopular  bool `json:"fallbackToPopular"`
	FallbackToCategory bool `json:"fallbackToCategory"`
	FallbackToStore    bool `json:"fallbackToStore"`
}

// Any reports whether at least one fallback source is enabled
func (f FallbackSettings) Any() bool {
	return f.FallbackToTrending || f.FallbackToPopular || f.FallbackToCategory || f.FallbackToStore
}

// RecommendationSettings is the versioned configuration of the recommender
type RecommendationSettings struct {
	Version           int                                 `json:"version" validate:"gte=0"`
	Algorithms        AlgorithmToggles                    `json:"algorithms"`
	Weights           AlgorithmWeights                    `json:"weights"`
	SimilarityWeights SimilarityWeights                   `json:"similarityWeights"`
	ProductTypes      map[ProductType]ProductTypeSettings `json:"productTypes" validate:"dive"`
	General           GeneralSettings                     `json:"general"`
	Fallback          FallbackSettings                    `json:"fallback"`
}

// DefaultRecommendationSettings returns the compiled-in configuration
func DefaultRecommendationSettings() RecommendationSettings {
	return RecommendationSettings{
		Version: 1,
		Algorithms: AlgorithmToggles{
			Collaborative: true,
			ContentBased:  true,
			Trending:      true,
			Behavioral:    true,
			CrossType:     true,
		},
		Weights: AlgorithmWeights{
			Collaborative: 30,
			ContentBased:  25,
			Trending:      20,
			Behavioral:    15,
			CrossType:     10,
		},
		SimilarityWeights: SimilarityWeights{
			Category: 0.4,
			Store:    0.2,
			Price:    0.2,
			Tags:     0.2,
		},
		ProductTypes: map[ProductType]ProductTypeSettings{
			ProductTypeDigital:  {Enabled: true, MaxRecommendations: 6, SimilarityThreshold: 0.05},
			ProductTypePhysical: {Enabled: true, MaxRecommendations: 6, SimilarityThreshold: 0.05},
			ProductTypeService:  {Enabled: true, MaxRecommendations: 4, SimilarityThreshold: 0.05},
			ProductTypeCourse:   {Enabled: true, MaxRecommendations: 4, SimilarityThreshold: 0.05},
			ProductTypeArtist:   {Enabled: true, MaxRecommendations: 4, SimilarityThreshold: 0.05},
		},
		General: GeneralSettings{
			MaxRecommendationsPerPage: 8,
			MinConfidenceThreshold:    0.05,
			CacheExpiryMinutes:        30,
			EnablePersonalization:     true,
		},
		Fallback: FallbackSettings{
			FallbackToTrending: true,
			FallbackToPopular:  true,
			FallbackToCategory: true,
			FallbackToStore:    true,
		},
	}
}

// Validate checks the settings ranges
func (s RecommendationSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid recommendation settings: %w", err)
	}
	return nil
}

// AlgorithmEnabled reports whether the named algorithm is switched on
func (s RecommendationSettings) AlgorithmEnabled(name string) bool {
	switch name {
	case AlgorithmCollaborative:
		return s.Algorithms.Collaborative
	case AlgorithmContentBased:
		return s.Algorithms.ContentBased
	case AlgorithmTrending:
		return s.Algorithms.Trending
	case AlgorithmBehavioral:
		return s.Algorithms.Behavioral
	case AlgorithmCrossType:
		return s.Algorithms.CrossType
	}
	return false
}

// AlgorithmWeight returns the configured weight of the named algorithm
func (s RecommendationSettings) AlgorithmWeight(name string) float64 {
	switch name {
	case AlgorithmCollaborative:
		return s.Weights.Collaborative
	case AlgorithmContentBased:
		return s.Weights.ContentBased
	case AlgorithmTrending:
		return s.Weights.Trending
	case AlgorithmBehavioral:
		return s.Weights.Behavioral
	case AlgorithmCrossType:
		return s.Weights.CrossType
	}
	return 0
}

// TypeRule returns whether a product type may be recommended and the minimum
// score it needs. Types without an entry are allowed with the global threshold.
func (s RecommendationSettings) TypeRule(t ProductType) (enabled bool, threshold float64) {
	ts, ok := s.ProductTypes[t]
	if !ok {
		return true, s.General.MinConfidenceThreshold
	}
	if ts.SimilarityThreshold <= 0 {
		return ts.Enabled, s.General.MinConfidenceThreshold
	}
	return ts.Enabled, ts.SimilarityThreshold
}

// SettingsPatch carries the top-level sections to replace. Nil sections are
// left untouched; a present section replaces the old one as a whole.
type SettingsPatch struct {
	Version           *int                                `json:"version,omitempty"`
	Algorithms        *AlgorithmToggles                   `json:"algorithms,omitempty"`
	Weights           *AlgorithmWeights                   `json:"weights,omitempty"`
	SimilarityWeights *SimilarityWeights                  `json:"similarityWeights,omitempty"`
	ProductTypes      map[ProductType]ProductTypeSettings `json:"productTypes,omitempty"`
	General           *GeneralSettings                    `json:"general,omitempty"`
	Fallback          *FallbackSettings                   `json:"fallback,omitempty"`
}

// Merge returns a copy of s with the sections present in p replaced
func (s RecommendationSettings) Merge(p SettingsPatch) RecommendationSettings {
	out := s
	out.ProductTypes = maps.Clone(s.ProductTypes)

	if p.Version != nil {
		out.Version = *p.Version
	}
	if p.Algorithms != nil {
		out.Algorithms = *p.Algorithms
	}
	if p.Weights != nil {
		out.Weights = *p.Weights
	}
	if p.SimilarityWeights != nil {
		out.SimilarityWeights = *p.SimilarityWeights
	}
	if p.ProductTypes != nil {
		out.ProductTypes = maps.Clone(p.ProductTypes)
	}
	if p.General != nil {
		out.General = *p.General
	}
	if p.Fallback != nil {
		out.Fallback = *p.Fallback
	}
	return out
}

// SettingsRepository stores the raw settings payload under a well-known key.
// Get returns ErrNotFound when the record is absent.
type SettingsRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}
