package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/domain"
)

// DefaultContextWindow is the number of messages kept per session
const DefaultContextWindow = 20

// MessageRequest is one inbound user message
type MessageRequest struct {
	SessionID string
	UserID    string
	Content   string
	ProductID string
}

// TurnResult is the outcome of one conversational turn
type TurnResult struct {
	SessionID   string              `json:"session_id"`
	Message     domain.ChatMessage  `json:"message"`
	Intent      domain.IntentResult `json:"intent"`
	Actions     []domain.ChatAction `json:"actions"`
	Suggestions []string            `json:"suggestions"`
}

// Service runs conversational turns: it classifies the message, dispatches it
// and records both sides of the exchange in the session.
type Service struct {
	store         *SessionStore
	classifier    Classifier
	dispatcher    *Dispatcher
	saver         SessionSaver
	repo          domain.SessionRepository
	contextWindow int
	clock         clockwork.Clock
	logger        zerolog.Logger
}

// NewService creates the assistant service. repo may be nil, in which case
// sessions are never restored after eviction or restart.
func NewService(
	store *SessionStore,
	classifier Classifier,
	dispatcher *Dispatcher,
	saver SessionSaver,
	repo domain.SessionRepository,
	contextWindow int,
	clock clockwork.Clock,
	logger zerolog.Logger,
) *Service {
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	return &Service{
		store:         store,
		classifier:    classifier,
		dispatcher:    dispatcher,
		saver:         saver,
		repo:          repo,
		contextWindow: contextWindow,
		clock:         clock,
		logger:        logger.With().Str("component", "assistant").Logger(),
	}
}

// HandleMessage processes one user message and returns the assistant reply.
// Only an unusable session id is an error; every other failure becomes a
// reply.
func (s *Service) HandleMessage(ctx context.Context, req MessageRequest) (*TurnResult, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, domain.ErrInvalidSession
	}

	session, created, release := s.store.Acquire(req.SessionID, req.UserID)
	defer release()

	if created {
		s.restore(ctx, session)
	}
	if req.ProductID != "" {
		session.Context[domain.ContextCurrentProductID] = req.ProductID
	}

	// 1. Record the user message
	s.store.Append(session, s.newMessage(domain.RoleUser, req.Content, nil))

	// 2. Classify and answer
	intent, reply := s.respond(ctx, session, req.Content)

	// 3. Record the answer
	answer := s.newMessage(domain.RoleAssistant, reply.Content, map[string]any{
		"intent":      intent.Intent,
		"confidence":  intent.Confidence,
		"actions":     reply.Actions,
		"suggestions": reply.Suggestions,
	})
	s.store.Append(session, answer)
	s.store.Trim(session, s.contextWindow)

	// 4. Persist in the background
	if s.saver != nil {
		s.saver.Schedule(session.Snapshot())
	}

	return &TurnResult{
		SessionID:   session.ID,
		Message:     answer,
		Intent:      intent,
		Actions:     reply.Actions,
		Suggestions: reply.Suggestions,
	}, nil
}

// respond classifies and dispatches the message. A panic anywhere in the turn
// is converted to the technical error reply.
func (s *Service) respond(ctx context.Context, session *domain.ChatSession, message string) (intent domain.IntentResult, reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			s.logger.Error().Err(err).
				Str("session_id", session.ID).
				Str("message", message).
				Msg("unhandled failure while processing message")
			if intent.Intent == "" {
				intent = domain.IntentResult{Intent: string(IntentGeneral), Entities: map[string]any{}}
			}
			reply = TechnicalErrorReply(message, err)
		}
	}()

	intent = s.classifier.Classify(message, session.Context)
	mergeIntoContext(session.Context, intent)

	reply = s.dispatcher.Dispatch(ctx, Turn{
		Message: message,
		Session: session,
		Intent:  intent,
	})
	return intent, reply
}

func mergeIntoContext(sc map[string]any, intent domain.IntentResult) {
	sc[domain.ContextCurrentIntent] = intent.Intent
	for k, v := range intent.Entities {
		sc[k] = v
	}
}

// restore loads a previously persisted session into a freshly created one
func (s *Service) restore(ctx context.Context, session *domain.ChatSession) {
	restored, err := s.stored(ctx, session.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to restore session")
		return
	}

	session.Messages = restored.Messages
	session.Context = restored.Context
	session.Metadata = restored.Metadata
	if session.UserID == "" {
		session.UserID = restored.UserID
	}
}

// GetSession returns the live session, or its persisted copy when it is no
// longer in memory.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	if session, ok := s.store.Get(sessionID); ok {
		return session, nil
	}
	return s.stored(ctx, sessionID)
}

// stored returns the latest copy of a session that is not in memory. A save
// still waiting in the persister is newer than the repository record.
func (s *Service) stored(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	if s.saver != nil {
		if pending, ok := s.saver.Pending(sessionID); ok {
			return pending, nil
		}
	}
	if s.repo == nil {
		return nil, domain.ErrNotFound
	}
	record, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return record.Session(), nil
}

func (s *Service) newMessage(role domain.MessageRole, content string, metadata map[string]any) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: s.clock.Now(),
		Metadata:  metadata,
	}
}
