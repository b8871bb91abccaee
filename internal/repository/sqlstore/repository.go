package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/payhuk02/emarzona/internal/domain"
)

// SettingsRepository implements domain.SettingsRepository
type SettingsRepository struct {
	store *Store
}

// Get returns the raw settings document stored under key
func (r *SettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := r.store.db.QueryRowContext(ctx,
		`SELECT settings FROM platform_settings WHERE setting_key = ?`, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return []byte(payload), nil
}

// Save creates or replaces the settings document stored under key
func (r *SettingsRepository) Save(ctx context.Context, key string, payload []byte) error {
	_, err := r.store.db.ExecContext(ctx, r.store.dialect.upsertSetting, key, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	store *Store
}

// Save creates or replaces a session record
func (r *SessionRepository) Save(ctx context.Context, record *domain.SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	var userID sql.NullString
	if record.UserID != "" {
		userID = sql.NullString{String: record.UserID, Valid: true}
	}

	_, err = r.store.db.ExecContext(ctx, r.store.dialect.upsertSession,
		record.ID,
		userID,
		record.SchemaVersion,
		string(payload),
		record.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session record by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	var version int
	var payload string
	err := r.store.db.QueryRowContext(ctx,
		`SELECT schema_version, record FROM chat_sessions WHERE id = ?`, id,
	).Scan(&version, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return domain.DecodeSessionRecord(version, []byte(payload))
}

// Delete removes a session record
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.store.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
