package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/payhuk02/emarzona/internal/api"
	"github.com/payhuk02/emarzona/internal/api/handler"
	"github.com/payhuk02/emarzona/internal/assistant"
	"github.com/payhuk02/emarzona/internal/config"
	"github.com/payhuk02/emarzona/internal/domain"
	"github.com/payhuk02/emarzona/internal/logging"
	"github.com/payhuk02/emarzona/internal/recommendation"
	"github.com/payhuk02/emarzona/internal/repository/mongo"
	"github.com/payhuk02/emarzona/internal/repository/postgres"
	"github.com/payhuk02/emarzona/internal/repository/redis"
	"github.com/payhuk02/emarzona/internal/repository/sqlstore"
	"github.com/payhuk02/emarzona/internal/security"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()
	log.Logger = logger

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// persistence is the backend chosen for settings and session records
type persistence struct {
	settings domain.SettingsRepository
	sessions domain.SessionRepository
	pinger   handler.Pinger
	closer   io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openPersistence(ctx context.Context, cfg *config.Config, db *postgres.DB) (*persistence, error) {
	switch cfg.Persistence.Driver {
	case config.DriverSQLite, config.DriverMySQL:
		store, err := sqlstore.Open(ctx, cfg.Persistence.Driver, cfg.Persistence.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return &persistence{settings: store.Settings(), sessions: store.Sessions(), pinger: store, closer: store}, nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, cfg.Persistence.MongoURI, cfg.Persistence.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		return &persistence{settings: client.Settings(), sessions: client.Sessions(), pinger: client, closer: client}, nil

	default:
		return &persistence{
			settings: postgres.NewSettingsRepository(db),
			sessions: postgres.NewSessionRepository(db),
			pinger:   db,
			closer:   closerFunc(func() error { return nil }),
		}, nil
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("persistence", cfg.Persistence.Driver).
		Msg("Starting marketplace assistant server")

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	store, err := openPersistence(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer store.closer.Close()

	// Initialize Redis
	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	clock := clockwork.NewRealClock()
	catalog := postgres.NewCatalogRepository(db)

	// Recommendation engine
	settings := recommendation.NewSettingsProvider(store.settings, logger)
	settings.Load(ctx)
	aggregator := recommendation.NewAggregator(settings, catalog, logger)

	// Assistant
	sessions := assistant.NewSessionStore(assistant.SessionStoreConfig{
		Capacity: cfg.Assistant.SessionCapacity,
		TTL:      cfg.Assistant.SessionTTL,
		Platform: cfg.Assistant.DefaultPlatform,
		Language: cfg.Assistant.DefaultLanguage,
	}, clock, logger)
	dispatcher := assistant.NewDispatcher(catalog, aggregator, cfg.Assistant.FetchTimeout, logger)
	persister := assistant.NewPersister(store.sessions, clock, cfg.Assistant.PersistDebounce, cfg.Assistant.PersistTimeout, logger)
	chat := assistant.NewService(
		sessions,
		assistant.NewKeywordClassifier(),
		dispatcher,
		persister,
		store.sessions,
		cfg.Assistant.ContextWindow,
		clock,
		logger,
	)

	deps := api.Dependencies{
		Chat:         chat,
		Recommender:  aggregator,
		Settings:     settings,
		SettingsRepo: store.settings,
		RateLimiter:  redis.NewRateLimiter(redisClient, cfg.Security.RateLimit),
		Tokens:       security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL),
		ReadyChecks: map[string]handler.Pinger{
			"database":    db,
			"persistence": store.pinger,
			"redis":       redisClient,
		},
	}
	if cfg.Recommendation.CacheEnabled {
		deps.Cache = redis.NewRecommendationCache(redisClient)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg, deps, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Write sessions still waiting for their debounce
	persister.Flush()
	stats := persister.Stats()
	logger.Info().
		Int64("sessions_saved", stats.Saved).
		Int64("sessions_failed", stats.Failed).
		Msg("Server stopped")

	return nil
}
