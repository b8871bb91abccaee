package assistant

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/domain"
)

// Session defaults stamped on new sessions
const (
	DefaultPlatform = "web"
	DefaultLanguage = "fr"
)

type sessionEntry struct {
	mu      sync.Mutex
	session *domain.ChatSession
}

// SessionStoreConfig bounds the in-memory registry
type SessionStoreConfig struct {
	Capacity int
	TTL      time.Duration
	Platform string
	Language string
}

// SessionStore is the in-memory registry of live sessions. It holds at most
// Capacity sessions, evicting the least recently used one first, and drops
// sessions idle for longer than TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *sessionEntry]
	clock    clockwork.Clock
	platform string
	language string
	logger   zerolog.Logger
}

// NewSessionStore creates an empty store
func NewSessionStore(cfg SessionStoreConfig, clock clockwork.Clock, logger zerolog.Logger) *SessionStore {
	s := &SessionStore{
		clock:    clock,
		platform: cfg.Platform,
		language: cfg.Language,
		logger:   logger.With().Str("component", "session_store").Logger(),
	}
	if s.platform == "" {
		s.platform = DefaultPlatform
	}
	if s.language == "" {
		s.language = DefaultLanguage
	}
	s.sessions = expirable.NewLRU(cfg.Capacity, func(id string, _ *sessionEntry) {
		s.logger.Debug().Str("session_id", id).Msg("session evicted")
	}, cfg.TTL)
	return s
}

// GetOrCreate returns the session with the given id, creating it when absent.
// A user id supplied for an anonymous session is adopted.
func (s *SessionStore) GetOrCreate(sessionID, userID string) *domain.ChatSession {
	e, _ := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	adoptUser(e.session, userID)
	return e.session
}

// Acquire is GetOrCreate plus exclusive access to the session until release
// is called. created reports whether the session was just created.
func (s *SessionStore) Acquire(sessionID, userID string) (session *domain.ChatSession, created bool, release func()) {
	e, created := s.entry(sessionID)
	e.mu.Lock()
	adoptUser(e.session, userID)
	return e.session, created, e.mu.Unlock
}

func (s *SessionStore) entry(sessionID string) (*sessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions.Get(sessionID)
	if !ok {
		e = &sessionEntry{session: s.newSession(sessionID)}
	}
	// Re-adding slides the idle deadline.
	s.sessions.Add(sessionID, e)
	return e, !ok
}

func (s *SessionStore) newSession(id string) *domain.ChatSession {
	now := s.clock.Now()
	return &domain.ChatSession{
		ID:       id,
		Messages: []domain.ChatMessage{},
		Context:  map[string]any{},
		Metadata: domain.SessionMetadata{
			StartedAt:    now,
			LastActivity: now,
			Platform:     s.platform,
			Language:     s.language,
		},
	}
}

func adoptUser(session *domain.ChatSession, userID string) {
	if userID != "" && session.UserID == "" {
		session.UserID = userID
	}
}

// Append adds a message to the session and bumps its last activity
func (s *SessionStore) Append(session *domain.ChatSession, msg domain.ChatMessage) {
	session.Messages = append(session.Messages, msg)
	session.Metadata.LastActivity = s.clock.Now()
}

// Trim keeps only the last windowSize messages
func (s *SessionStore) Trim(session *domain.ChatSession, windowSize int) {
	if windowSize < 0 || len(session.Messages) <= windowSize {
		return
	}
	kept := make([]domain.ChatMessage, windowSize)
	copy(kept, session.Messages[len(session.Messages)-windowSize:])
	session.Messages = kept
}

// Get returns a snapshot of a live session
func (s *SessionStore) Get(sessionID string) (*domain.ChatSession, bool) {
	s.mu.Lock()
	e, ok := s.sessions.Peek(sessionID)
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Snapshot(), true
}

// Delete removes a session from memory
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Remove(sessionID)
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	return s.sessions.Len()
}
