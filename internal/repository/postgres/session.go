package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/payhuk02/emarzona/internal/domain"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save creates or replaces a session record
func (r *SessionRepository) Save(ctx context.Context, record *domain.SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
		INSERT INTO chat_sessions (id, user_id, schema_version, record, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
			schema_version = EXCLUDED.schema_version,
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.Pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.SchemaVersion,
		string(payload),
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Get retrieves a session record by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	query := `
		SELECT schema_version, record
		FROM chat_sessions
		WHERE id = $1
	`

	var version int
	var payload []byte
	if err := r.db.Pool.QueryRow(ctx, query, id).Scan(&version, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return domain.DecodeSessionRecord(version, payload)
}

// Delete removes a session record
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
