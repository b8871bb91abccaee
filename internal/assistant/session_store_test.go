package assistant

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/emarzona/internal/domain"
)

func newTestStore(capacity int) (*SessionStore, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	return NewSessionStore(SessionStoreConfig{Capacity: capacity}, clock, zerolog.Nop()), clock
}

func messages(n int) []domain.ChatMessage {
	out := make([]domain.ChatMessage, n)
	for i := range out {
		out[i] = domain.ChatMessage{ID: fmt.Sprintf("m%d", i), Content: fmt.Sprintf("message %d", i)}
	}
	return out
}

func TestSessionStore_GetOrCreate(t *testing.T) {
	store, clock := newTestStore(10)

	s := store.GetOrCreate("s1", "")

	assert.Equal(t, "s1", s.ID)
	assert.Empty(t, s.UserID)
	assert.Empty(t, s.Messages)
	assert.NotNil(t, s.Context)
	assert.Equal(t, DefaultPlatform, s.Metadata.Platform)
	assert.Equal(t, DefaultLanguage, s.Metadata.Language)
	assert.Equal(t, clock.Now(), s.Metadata.StartedAt)

	again := store.GetOrCreate("s1", "u1")
	assert.Same(t, s, again)
	assert.Equal(t, "u1", again.UserID)

	store.GetOrCreate("s1", "u2")
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_AppendUpdatesActivity(t *testing.T) {
	store, clock := newTestStore(10)
	s := store.GetOrCreate("s1", "")

	clock.Advance(time.Minute)
	store.Append(s, domain.ChatMessage{ID: "m1"})

	require.Len(t, s.Messages, 1)
	assert.Equal(t, clock.Now(), s.Metadata.LastActivity)
	assert.True(t, s.Metadata.LastActivity.After(s.Metadata.StartedAt))
}

func TestSessionStore_Trim(t *testing.T) {
	tests := []struct {
		name   string
		length int
		window int
	}{
		{"under window", 5, 20},
		{"at window", 20, 20},
		{"over window", 23, 20},
		{"far over window", 100, 20},
		{"zero window", 3, 0},
	}

	store, _ := newTestStore(10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &domain.ChatSession{Messages: messages(tt.length)}
			original := append([]domain.ChatMessage(nil), s.Messages...)

			store.Trim(s, tt.window)

			want := min(tt.length, tt.window)
			require.Len(t, s.Messages, want)
			assert.Equal(t, original[tt.length-want:], s.Messages)

			trimmed := append([]domain.ChatMessage(nil), s.Messages...)
			store.Trim(s, tt.window)
			assert.Equal(t, trimmed, s.Messages)
		})
	}
}

func TestSessionStore_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	store, _ := newTestStore(2)

	store.GetOrCreate("a", "")
	store.GetOrCreate("b", "")
	store.GetOrCreate("a", "")
	store.GetOrCreate("c", "")

	assert.Equal(t, 2, store.Len())
	_, ok := store.Get("b")
	assert.False(t, ok)
	_, ok = store.Get("a")
	assert.True(t, ok)
}

func TestSessionStore_GetReturnsSnapshot(t *testing.T) {
	store, _ := newTestStore(10)
	s := store.GetOrCreate("s1", "")
	s.Context["k"] = "v"

	snap, ok := store.Get("s1")
	require.True(t, ok)
	snap.Context["k"] = "changed"

	assert.Equal(t, "v", s.Context["k"])
}

func TestSessionStore_Delete(t *testing.T) {
	store, _ := newTestStore(10)
	store.GetOrCreate("s1", "")

	store.Delete("s1")

	_, ok := store.Get("s1")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestSessionStore_AcquireSerializesSameSession(t *testing.T) {
	store, _ := newTestStore(10)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, _, release := store.Acquire("shared", "")
			defer release()
			store.Append(s, domain.ChatMessage{ID: fmt.Sprintf("m%d", i)})
		}()
	}
	wg.Wait()

	s, ok := store.Get("shared")
	require.True(t, ok)
	assert.Len(t, s.Messages, 50)
}

func TestSessionStore_AcquireReportsCreation(t *testing.T) {
	store, _ := newTestStore(10)

	_, created, release := store.Acquire("s1", "")
	release()
	assert.True(t, created)

	_, created, release = store.Acquire("s1", "")
	release()
	assert.False(t, created)
}
