package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/payhuk02/emarzona/internal/domain"
)

// SettingsRepository stores platform settings as JSONB documents
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the raw settings document stored under key
func (r *SettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT settings
		FROM platform_settings
		WHERE key = $1
	`

	var payload []byte
	if err := r.db.Pool.QueryRow(ctx, query, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return payload, nil
}

// Save creates or replaces the settings document stored under key
func (r *SettingsRepository) Save(ctx context.Context, key string, payload []byte) error {
	query := `
		INSERT INTO platform_settings (key, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET settings = EXCLUDED.settings, updated_at = NOW()
	`

	if _, err := r.db.Pool.Exec(ctx, query, key, string(payload)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}
