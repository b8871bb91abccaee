package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/api/middleware"
	"github.com/payhuk02/emarzona/internal/api/response"
	"github.com/payhuk02/emarzona/internal/domain"
	"github.com/payhuk02/emarzona/internal/recommendation"
)

// Recommender computes recommendations
type Recommender interface {
	GetRecommendations(ctx context.Context, req recommendation.Request) ([]domain.RecommendedProduct, error)
}

// SettingsReader exposes the cached recommendation settings
type SettingsReader interface {
	Current() domain.RecommendationSettings
}

// RecommendationCache stores computed lists
type RecommendationCache interface {
	Get(ctx context.Context, userID, productID string) ([]domain.RecommendedProduct, bool, error)
	Set(ctx context.Context, userID, productID string, items []domain.RecommendedProduct, ttl time.Duration) error
}

// SessionReader looks up a conversation for its context bag
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)
}

// RecommendationHandler handles recommendation endpoints
type RecommendationHandler struct {
	recommender Recommender
	settings    SettingsReader
	cache       RecommendationCache
	sessions    SessionReader
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewRecommendationHandler creates a new recommendation handler. cache may be
// nil to disable caching.
func NewRecommendationHandler(
	recommender Recommender,
	settings SettingsReader,
	cache RecommendationCache,
	sessions SessionReader,
	timeout time.Duration,
	logger zerolog.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		settings:    settings,
		cache:       cache,
		sessions:    sessions,
		timeout:     timeout,
		logger:      logger,
	}
}

// List returns recommendations for the caller, optionally around a product.
// Passing session_id feeds the conversation context to the behavioral
// algorithm; such requests bypass the cache.
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req := recommendation.Request{
		UserID:           middleware.GetUserID(ctx),
		CurrentProductID: r.URL.Query().Get("product_id"),
	}

	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		session, err := h.sessions.GetSession(ctx, sessionID)
		switch {
		case err == nil && session.UserID != "" && session.UserID != req.UserID:
			h.logger.Warn().Str("session_id", sessionID).Msg("ignoring context of a session owned by another user")
		case err == nil:
			req.SessionContext = session.Context
		case !errors.Is(err, domain.ErrNotFound):
			h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load session context")
		}
	}

	cacheable := h.cache != nil && req.SessionContext == nil
	if cacheable {
		items, ok, err := h.cache.Get(ctx, req.UserID, req.CurrentProductID)
		if err != nil {
			h.logger.Warn().Err(err).Msg("recommendation cache read failed")
		} else if ok {
			response.OK(w, map[string]any{"recommendations": items, "cached": true})
			return
		}
	}

	items, err := h.recommender.GetRecommendations(ctx, req)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "recommendations unavailable")
		return
	}
	if items == nil {
		items = []domain.RecommendedProduct{}
	}

	if cacheable {
		ttl := time.Duration(h.settings.Current().General.CacheExpiryMinutes) * time.Minute
		if err := h.cache.Set(ctx, req.UserID, req.CurrentProductID, items, ttl); err != nil {
			h.logger.Warn().Err(err).Msg("recommendation cache write failed")
		}
	}

	response.OK(w, map[string]any{"recommendations": items, "cached": false})
}
