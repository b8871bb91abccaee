package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Persistence    PersistenceConfig    `mapstructure:"persistence"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Assistant      AssistantConfig      `mapstructure:"assistant"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Security       SecurityConfig       `mapstructure:"security"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Persistence drivers for settings and session records. The catalog always
// lives in the Postgres database above.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

type PersistenceConfig struct {
	Driver        string `mapstructure:"driver"`
	DSN           string `mapstructure:"dsn"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type AssistantConfig struct {
	ContextWindow   int           `mapstructure:"context_window"`
	SessionCapacity int           `mapstructure:"session_capacity"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	PersistDebounce time.Duration `mapstructure:"persist_debounce"`
	PersistTimeout  time.Duration `mapstructure:"persist_timeout"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	DefaultPlatform string        `mapstructure:"default_platform"`
	DefaultLanguage string        `mapstructure:"default_language"`
}

type RecommendationConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheEnabled   bool          `mapstructure:"cache_enabled"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level        string        `mapstructure:"level"`
	Format       string        `mapstructure:"format"`
	File         string        `mapstructure:"file"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults and env vars still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Persistence.Driver {
	case DriverPostgres, DriverSQLite, DriverMySQL, DriverMongo:
	default:
		return fmt.Errorf("unsupported persistence driver: %q", c.Persistence.Driver)
	}
	if c.Assistant.ContextWindow <= 0 {
		return fmt.Errorf("assistant.context_window must be positive, got %d", c.Assistant.ContextWindow)
	}
	if c.Assistant.SessionCapacity <= 0 {
		return fmt.Errorf("assistant.session_capacity must be positive, got %d", c.Assistant.SessionCapacity)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.middleware_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "emarzona")
	v.SetDefault("database.database", "emarzona")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Persistence
	v.SetDefault("persistence.driver", DriverPostgres)
	v.SetDefault("persistence.mongo_database", "emarzona")

	// Auth
	v.SetDefault("auth.access_token_ttl", "15m")

	// Assistant
	v.SetDefault("assistant.context_window", 20)
	v.SetDefault("assistant.session_capacity", 10000)
	v.SetDefault("assistant.session_ttl", "2h")
	v.SetDefault("assistant.persist_debounce", "1s")
	v.SetDefault("assistant.persist_timeout", "5s")
	v.SetDefault("assistant.fetch_timeout", "10s")
	v.SetDefault("assistant.default_platform", "web")
	v.SetDefault("assistant.default_language", "fr")

	// Recommendation
	v.SetDefault("recommendation.request_timeout", "10s")
	v.SetDefault("recommendation.cache_enabled", true)

	// Security
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_age", "168h") // 7 days
	v.SetDefault("logging.rotation_time", "24h")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.host", "POSTGRES_HOST")
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Persistence
	v.BindEnv("persistence.driver", "PERSISTENCE_DRIVER")
	v.BindEnv("persistence.dsn", "PERSISTENCE_DSN")
	v.BindEnv("persistence.mongo_uri", "MONGO_URI")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.file", "LOG_FILE")
}
