package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/emarzona/internal/domain"
)

// These tests need a reachable server: TEST_MONGO_URI=mongodb://localhost:27017
func testClient(t *testing.T) *Client {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	database := "emarzona_test_" + uuid.NewString()[:8]
	client, err := Connect(ctx, uri, database)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.db.Drop(context.Background())
		client.Close()
	})
	return client
}

func TestSettingsRepository(t *testing.T) {
	repo := testClient(t).Settings()
	ctx := context.Background()

	_, err := repo.Get(ctx, domain.SettingsKeyRecommendations)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, domain.SettingsKeyRecommendations, []byte(`{"version":1}`)))
	require.NoError(t, repo.Save(ctx, domain.SettingsKeyRecommendations, []byte(`{"version":3}`)))

	payload, err := repo.Get(ctx, domain.SettingsKeyRecommendations)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3}`, string(payload))
}

func TestSessionRepository(t *testing.T) {
	repo := testClient(t).Sessions()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	session := &domain.ChatSession{
		ID:       "sess-1",
		Messages: []domain.ChatMessage{{ID: "m1", Content: "bonjour", Role: domain.RoleUser, Timestamp: now}},
		Context: map[string]any{
			domain.ContextBrowsingHistory: []any{map[string]any{"id": "p1", "category": "books"}},
		},
		Metadata: domain.SessionMetadata{StartedAt: now, LastActivity: now, Platform: "web", Language: "fr"},
	}
	require.NoError(t, repo.Save(ctx, domain.NewSessionRecord(session, now)))

	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionSchemaVersion, got.SchemaVersion)
	require.Len(t, got.Messages, 1)
	history, ok := got.Context[domain.ContextBrowsingHistory].([]any)
	require.True(t, ok)
	entry, ok := history[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "books", entry["category"])

	require.NoError(t, repo.Delete(ctx, "sess-1"))
	_, err = repo.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
