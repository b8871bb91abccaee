package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ActionType identifies what the client should do with a ChatAction
type ActionType string

const (
	ActionProductRecommendation ActionType = "product_recommendation"
	ActionOrderStatus           ActionType = "order_status"
	ActionSupportTicket         ActionType = "support_ticket"
	ActionNavigation            ActionType = "navigation"
	ActionQuickReply            ActionType = "quick_reply"
)

// ChatAction is an actionable element attached to an assistant message
type ChatAction struct {
	Type        ActionType     `json:"type"`
	Payload     map[string]any `json:"payload,omitempty"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
}

// ChatMessage is a single message of a conversation. It is never modified
// after being appended to a session.
type ChatMessage struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Role      MessageRole    `json:"role"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Well-known keys of the session context bag
const (
	ContextCurrentIntent    = "currentIntent"
	ContextOrderNumber      = "orderNumber"
	ContextShippingAspect   = "shippingAspect"
	ContextProductQuery     = "productQuery"
	ContextBrowsingHistory  = "browsingHistory"
	ContextCartItems        = "cartItems"
	ContextCurrentProductID = "currentProductId"
)

// SessionMetadata describes where and when a session started
type SessionMetadata struct {
	StartedAt    time.Time `json:"startedAt"`
	LastActivity time.Time `json:"lastActivity"`
	Platform     string    `json:"platform"`
	Language     string    `json:"language"`
}

// ChatSession represents one conversation between a client and the assistant
type ChatSession struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId,omitempty"`
	Messages []ChatMessage   `json:"messages"`
	Context  map[string]any  `json:"context"`
	Metadata SessionMetadata `json:"metadata"`
}

// Snapshot returns a copy that can be handed to another goroutine while the
// original keeps being mutated. Message values are shared because they are
// immutable once appended.
func (s *ChatSession) Snapshot() *ChatSession {
	cp := *s
	cp.Messages = append([]ChatMessage(nil), s.Messages...)
	cp.Context = maps.Clone(s.Context)
	if cp.Context == nil {
		cp.Context = map[string]any{}
	}
	return &cp
}

// IntentResult is the output of intent classification for one message
type IntentResult struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

// SessionSchemaVersion is the version stamped on persisted session records
const SessionSchemaVersion = 1

// SessionRecord is the durable shape of a chat session
type SessionRecord struct {
	SchemaVersion int             `json:"schemaVersion"`
	ID            string          `json:"id"`
	UserID        string          `json:"userId,omitempty"`
	Messages      []ChatMessage   `json:"messages"`
	Context       map[string]any  `json:"context"`
	Metadata      SessionMetadata `json:"metadata"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NewSessionRecord builds the persisted form of a session
func NewSessionRecord(s *ChatSession, updatedAt time.Time) *SessionRecord {
	return &SessionRecord{
		SchemaVersion: SessionSchemaVersion,
		ID:            s.ID,
		UserID:        s.UserID,
		Messages:      s.Messages,
		Context:       s.Context,
		Metadata:      s.Metadata,
		UpdatedAt:     updatedAt,
	}
}

// Session converts a persisted record back into a ChatSession
func (r *SessionRecord) Session() *ChatSession {
	ctx := r.Context
	if ctx == nil {
		ctx = map[string]any{}
	}
	return &ChatSession{
		ID:       r.ID,
		UserID:   r.UserID,
		Messages: r.Messages,
		Context:  ctx,
		Metadata: r.Metadata,
	}
}

// DecodeSessionRecord decodes a JSON session record stored with the given
// schema version.
func DecodeSessionRecord(version int, payload []byte) (*SessionRecord, error) {
	if version > SessionSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, version)
	}
	var r SessionRecord
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}
	r.SchemaVersion = version
	return &r, nil
}

// SessionRepository defines the interface for durable session storage
type SessionRepository interface {
	Save(ctx context.Context, record *SessionRecord) error
	Get(ctx context.Context, id string) (*SessionRecord, error)
	Delete(ctx context.Context, id string) error
}
