package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/api/response"
	"github.com/payhuk02/emarzona/internal/domain"
	"github.com/payhuk02/emarzona/internal/recommendation"
)

// SettingsStore is the cached view of the recommendation settings
type SettingsStore interface {
	SettingsReader
	Load(ctx context.Context) domain.RecommendationSettings
	Update(patch domain.SettingsPatch) domain.RecommendationSettings
}

// CacheFlusher drops cached recommendation lists
type CacheFlusher interface {
	FlushAll(ctx context.Context) (int64, error)
}

// SettingsHandler handles the admin recommendation settings endpoints
type SettingsHandler struct {
	settings SettingsStore
	repo     domain.SettingsRepository
	cache    CacheFlusher
	logger   zerolog.Logger
}

// NewSettingsHandler creates a new settings handler. cache may be nil.
func NewSettingsHandler(settings SettingsStore, repo domain.SettingsRepository, cache CacheFlusher, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, repo: repo, cache: cache, logger: logger}
}

// Get returns the current settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.settings.Load(r.Context()))
}

// Update replaces the sections present in the body and persists the result
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	// 1. Merge over the stored settings and validate the result
	merged := h.settings.Load(r.Context()).Merge(patch)
	if err := validate.Struct(merged); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	// 2. Persist
	payload, err := recommendation.EncodeSettings(merged)
	if err != nil {
		response.InternalError(w, "failed to encode settings")
		return
	}
	if err := h.repo.Save(r.Context(), domain.SettingsKeyRecommendations, payload); err != nil {
		h.logger.Error().Err(err).Msg("failed to save recommendation settings")
		response.InternalError(w, "failed to save settings")
		return
	}

	// 3. Publish to the running process
	updated := h.settings.Update(patch)

	if h.cache != nil {
		if _, err := h.cache.FlushAll(r.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("failed to flush recommendation cache")
		}
	}

	response.OK(w, updated)
}
