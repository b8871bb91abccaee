package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/domain"
)

// SettingsProvider loads and caches the recommendation settings. Readers
// always see a complete settings value; a reload racing an Update may lose
// the update, which is acceptable for an admin-frequency setting.
type SettingsProvider struct {
	repo    domain.SettingsRepository
	logger  zerolog.Logger
	current atomic.Pointer[domain.RecommendationSettings]
}

// NewSettingsProvider creates a provider primed with the compiled-in defaults
func NewSettingsProvider(repo domain.SettingsRepository, logger zerolog.Logger) *SettingsProvider {
	p := &SettingsProvider{
		repo:   repo,
		logger: logger.With().Str("component", "settings_provider").Logger(),
	}
	def := domain.DefaultRecommendationSettings()
	p.current.Store(&def)
	return p
}

// Load fetches the settings record. It never fails: a missing or malformed
// record resets the cache to the defaults, a transport error keeps what is
// cached.
func (p *SettingsProvider) Load(ctx context.Context) domain.RecommendationSettings {
	payload, err := p.repo.Get(ctx, domain.SettingsKeyRecommendations)
	switch {
	case errors.Is(err, domain.ErrNotFound) || (err == nil && len(payload) == 0):
		p.logger.Warn().Msg("recommendation settings not found, using defaults")
		p.resetToDefault()
	case err != nil:
		p.logger.Error().Err(err).Msg("failed to load recommendation settings, keeping cached settings")
	default:
		settings, decodeErr := decodeSettings(payload)
		if decodeErr != nil {
			p.logger.Warn().Err(decodeErr).Msg("malformed recommendation settings, using defaults")
			p.resetToDefault()
			break
		}
		p.current.Store(&settings)
	}
	return p.Current()
}

// Current returns the cached settings without touching the store
func (p *SettingsProvider) Current() domain.RecommendationSettings {
	return *p.current.Load()
}

// Update shallow-merges patch into the cached settings and returns the result
func (p *SettingsProvider) Update(patch domain.SettingsPatch) domain.RecommendationSettings {
	merged := p.Current().Merge(patch)
	p.current.Store(&merged)
	p.logger.Info().Int("version", merged.Version).Msg("recommendation settings updated")
	return merged
}

func (p *SettingsProvider) resetToDefault() {
	def := domain.DefaultRecommendationSettings()
	p.current.Store(&def)
}

// decodeSettings decodes payload over the defaults so that absent fields keep
// their default value.
func decodeSettings(payload []byte) (domain.RecommendationSettings, error) {
	settings := domain.DefaultRecommendationSettings()
	if err := json.Unmarshal(payload, &settings); err != nil {
		return domain.RecommendationSettings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return domain.RecommendationSettings{}, err
	}
	return settings, nil
}

// EncodeSettings is the inverse of the decoding used by Load
func EncodeSettings(s domain.RecommendationSettings) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return data, nil
}
