package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Persistence.Driver)
	assert.Equal(t, 20, cfg.Assistant.ContextWindow)
	assert.Equal(t, time.Second, cfg.Assistant.PersistDebounce)
	assert.Equal(t, "web", cfg.Assistant.DefaultPlatform)
	assert.Equal(t, "fr", cfg.Assistant.DefaultLanguage)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
persistence:
  driver: sqlite
  dsn: "file::memory:"
assistant:
  context_window: 12
  session_ttl: 30m
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Persistence.Driver)
	assert.Equal(t, 12, cfg.Assistant.ContextWindow)
	assert.Equal(t, 30*time.Minute, cfg.Assistant.SessionTTL)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PERSISTENCE_DRIVER", "cassandra")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, Database: "shop", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/shop?sslmode=disable", c.DSN())
}
