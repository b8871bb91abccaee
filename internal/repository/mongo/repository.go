package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/payhuk02/emarzona/internal/domain"
)

type settingsDocument struct {
	Key       string    `bson:"_id"`
	Settings  string    `bson:"settings"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// SettingsRepository implements domain.SettingsRepository
type SettingsRepository struct {
	coll *mongo.Collection
}

// Get returns the raw settings document stored under key
func (r *SettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var doc settingsDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return []byte(doc.Settings), nil
}

// Save creates or replaces the settings document stored under key
func (r *SettingsRepository) Save(ctx context.Context, key string, payload []byte) error {
	doc := settingsDocument{Key: key, Settings: string(payload), UpdatedAt: time.Now().UTC()}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// The record is kept as JSON so that the free-form session context decodes
// back into plain Go maps.
type sessionDocument struct {
	ID            string    `bson:"_id"`
	UserID        string    `bson:"user_id,omitempty"`
	SchemaVersion int       `bson:"schema_version"`
	Record        string    `bson:"record"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	coll *mongo.Collection
}

// Save creates or replaces a session record
func (r *SessionRepository) Save(ctx context.Context, record *domain.SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	doc := sessionDocument{
		ID:            record.ID,
		UserID:        record.UserID,
		SchemaVersion: record.SchemaVersion,
		Record:        string(payload),
		UpdatedAt:     record.UpdatedAt.UTC(),
	}
	_, err = r.coll.ReplaceOne(ctx, bson.M{"_id": record.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session record by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	var doc sessionDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return domain.DecodeSessionRecord(doc.SchemaVersion, []byte(doc.Record))
}

// Delete removes a session record
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
