package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSessionRecord(t *testing.T) {
	t.Run("newer schema is rejected", func(t *testing.T) {
		_, err := DecodeSessionRecord(SessionSchemaVersion+1, []byte(`{}`))
		assert.ErrorIs(t, err, ErrUnsupportedSchema)
	})

	t.Run("garbage payload", func(t *testing.T) {
		_, err := DecodeSessionRecord(SessionSchemaVersion, []byte(`{`))
		assert.Error(t, err)
	})

	t.Run("stored version wins over payload", func(t *testing.T) {
		r, err := DecodeSessionRecord(SessionSchemaVersion, []byte(`{"id":"s1","schemaVersion":0,"userId":"u1"}`))
		require.NoError(t, err)
		assert.Equal(t, SessionSchemaVersion, r.SchemaVersion)
		assert.Equal(t, "s1", r.ID)
		assert.Equal(t, "u1", r.UserID)
	})
}

func TestSessionRecord_Session(t *testing.T) {
	now := time.Now()
	r := &SessionRecord{ID: "s1", Metadata: SessionMetadata{StartedAt: now}}

	s := r.Session()
	assert.Equal(t, "s1", s.ID)
	assert.NotNil(t, s.Context)
	assert.True(t, now.Equal(s.Metadata.StartedAt))
}

func TestChatSession_Snapshot(t *testing.T) {
	s := &ChatSession{
		ID:       "s1",
		Messages: []ChatMessage{{ID: "m1"}},
		Context:  map[string]any{ContextCurrentIntent: "help"},
	}

	snap := s.Snapshot()
	s.Messages = append(s.Messages, ChatMessage{ID: "m2"})
	s.Context[ContextCurrentIntent] = "general"

	assert.Len(t, snap.Messages, 1)
	assert.Equal(t, "help", snap.Context[ContextCurrentIntent])
}
