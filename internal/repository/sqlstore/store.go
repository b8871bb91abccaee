// Package sqlstore persists settings and chat sessions through database/sql,
// on an embedded SQLite file or a MySQL server.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/payhuk02/emarzona/internal/config"
)

type dialect struct {
	driver        string
	schema        []string
	upsertSetting string
	upsertSession string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS platform_settings (
			setting_key TEXT PRIMARY KEY,
			settings    TEXT NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id             TEXT PRIMARY KEY,
			user_id        TEXT,
			schema_version INTEGER NOT NULL,
			record         TEXT NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`,
	},
	upsertSetting: `
		INSERT INTO platform_settings (setting_key, settings, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (setting_key) DO UPDATE
		SET settings = excluded.settings, updated_at = excluded.updated_at
	`,
	upsertSession: `
		INSERT INTO chat_sessions (id, user_id, schema_version, record, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET user_id = excluded.user_id,
			schema_version = excluded.schema_version,
			record = excluded.record,
			updated_at = excluded.updated_at
	`,
}

var mysqlDialect = dialect{
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS platform_settings (
			setting_key VARCHAR(191) NOT NULL PRIMARY KEY,
			settings    LONGTEXT NOT NULL,
			updated_at  DATETIME(3) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id             VARCHAR(191) NOT NULL PRIMARY KEY,
			user_id        VARCHAR(191) NULL,
			schema_version INT NOT NULL,
			record         LONGTEXT NOT NULL,
			updated_at     DATETIME(3) NOT NULL,
			INDEX idx_chat_sessions_user (user_id)
		)`,
	},
	upsertSetting: `
		INSERT INTO platform_settings (setting_key, settings, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE settings = VALUES(settings), updated_at = VALUES(updated_at)
	`,
	upsertSession: `
		INSERT INTO chat_sessions (id, user_id, schema_version, record, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			user_id = VALUES(user_id),
			schema_version = VALUES(schema_version),
			record = VALUES(record),
			updated_at = VALUES(updated_at)
	`,
}

// Store is a database/sql handle plus the dialect of its driver
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to a SQLite or MySQL database. driver is one of
// config.DriverSQLite or config.DriverMySQL.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var d dialect
	switch driver {
	case config.DriverSQLite:
		d = sqliteDialect
	case config.DriverMySQL:
		d = mysqlDialect
	default:
		return nil, fmt.Errorf("unsupported sql driver: %q", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == config.DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	return &Store{db: db, dialect: d}, nil
}

// Migrate creates the tables when they do not exist yet
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Settings returns the settings repository backed by this store
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{store: s}
}

// Sessions returns the session repository backed by this store
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{store: s}
}
