package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/api/handler"
	customMiddleware "github.com/payhuk02/emarzona/internal/api/middleware"
	"github.com/payhuk02/emarzona/internal/config"
	"github.com/payhuk02/emarzona/internal/domain"
)

// Dependencies are the services the HTTP layer is wired to
type Dependencies struct {
	Chat         handler.ChatService
	Recommender  handler.Recommender
	Settings     handler.SettingsStore
	SettingsRepo domain.SettingsRepository
	// Cache is nil when recommendation caching is disabled.
	Cache       RecommendationCache
	RateLimiter customMiddleware.Limiter
	Tokens      customMiddleware.TokenValidator
	ReadyChecks map[string]handler.Pinger
}

// RecommendationCache is both read by the recommendation endpoint and
// flushed by the settings endpoint.
type RecommendationCache interface {
	handler.RecommendationCache
	handler.CacheFlusher
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var cache handler.RecommendationCache
	var flusher handler.CacheFlusher
	if deps.Cache != nil {
		cache, flusher = deps.Cache, deps.Cache
	}

	chatHandler := handler.NewChatHandler(deps.Chat, logger)
	recommendationHandler := handler.NewRecommendationHandler(
		deps.Recommender,
		deps.Settings,
		cache,
		deps.Chat,
		cfg.Recommendation.RequestTimeout,
		logger,
	)
	settingsHandler := handler.NewSettingsHandler(deps.Settings, deps.SettingsRepo, flusher, logger)

	authMiddleware := customMiddleware.NewAuthMiddleware(deps.Tokens)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(deps.RateLimiter, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.ReadyChecks))

		// Storefront routes, anonymous or signed in
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.OptionalAuthenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Route("/chat/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", chatHandler.GetSession)
				r.Post("/messages", chatHandler.SendMessage)
			})

			r.Get("/recommendations", recommendationHandler.List)
		})

		// Dashboard routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(customMiddleware.RequireAdmin)

			r.Get("/recommendation-settings", settingsHandler.Get)
			r.Put("/recommendation-settings", settingsHandler.Update)
		})
	})

	return r
}
