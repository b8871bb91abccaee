package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/api/middleware"
	"github.com/payhuk02/emarzona/internal/api/response"
	"github.com/payhuk02/emarzona/internal/assistant"
	"github.com/payhuk02/emarzona/internal/domain"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ChatService runs assistant turns
type ChatService interface {
	HandleMessage(ctx context.Context, req assistant.MessageRequest) (*assistant.TurnResult, error)
	GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)
}

// SendMessageRequest is the body of POST .../messages
type SendMessageRequest struct {
	Content   string `json:"content" validate:"required,max=2000"`
	ProductID string `json:"product_id" validate:"omitempty,max=128"`
}

// ChatHandler handles assistant endpoints
type ChatHandler struct {
	chat   ChatService
	logger zerolog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionID")
	if !sessionIDPattern.MatchString(id) {
		response.BadRequest(w, "invalid session ID")
		return "", false
	}
	return id, true
}

// SendMessage handles one user message
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	result, err := h.chat.HandleMessage(r.Context(), assistant.MessageRequest{
		SessionID: sessionID,
		UserID:    middleware.GetUserID(r.Context()),
		Content:   req.Content,
		ProductID: req.ProductID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			response.BadRequest(w, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to handle message")
		response.InternalError(w, "failed to handle message")
		return
	}

	response.OK(w, result)
}

// GetSession returns the session transcript
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	session, err := h.chat.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to get session")
		response.InternalError(w, "failed to get session")
		return
	}

	// Sessions belonging to a user are only visible to that user.
	if session.UserID != "" && session.UserID != middleware.GetUserID(r.Context()) {
		response.NotFound(w, "session not found")
		return
	}

	response.OK(w, session)
}
