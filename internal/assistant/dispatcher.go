package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/payhuk02/emarzona/internal/domain"
	"github.com/payhuk02/emarzona/internal/recommendation"
)

// Catalog is the part of the catalog gateway the handlers query
type Catalog interface {
	FindOrdersByCustomer(ctx context.Context, customerID string, limit int, newestFirst bool) ([]domain.Order, error)
	SearchProductsByName(ctx context.Context, substring string, limit int) ([]domain.Product, error)
}

// Recommender computes product recommendations for a session
type Recommender interface {
	GetRecommendations(ctx context.Context, req recommendation.Request) ([]domain.RecommendedProduct, error)
}

// Turn is what a handler sees of the current message
type Turn struct {
	Message string
	Session *domain.ChatSession
	Intent  domain.IntentResult
}

// Reply is the assistant's answer to one turn
type Reply struct {
	Content     string              `json:"content"`
	Actions     []domain.ChatAction `json:"actions"`
	Suggestions []string            `json:"suggestions"`
}

// Handler answers one intent. Handlers recover from their own fetch
// failures and always produce a reply.
type Handler func(ctx context.Context, turn Turn) Reply

// Dispatcher routes a classified turn to the handler of its intent
type Dispatcher struct {
	catalog      Catalog
	recommender  Recommender
	fetchTimeout time.Duration
	logger       zerolog.Logger
	handlers     map[Intent]Handler
}

// NewDispatcher creates a dispatcher with a handler for every intent.
// fetchTimeout bounds each catalog or recommender call; zero disables it.
func NewDispatcher(catalog Catalog, recommender Recommender, fetchTimeout time.Duration, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		catalog:      catalog,
		recommender:  recommender,
		fetchTimeout: fetchTimeout,
		logger:       logger.With().Str("component", "dispatcher").Logger(),
	}
	d.handlers = map[Intent]Handler{
		IntentOrderInquiry:    d.handleOrderInquiry,
		IntentShippingInquiry: d.handleShippingInquiry,
		IntentReturnInquiry:   d.handleReturnInquiry,
		IntentProductSearch:   d.handleProductSearch,
		IntentRecommendation:  d.handleRecommendation,
		IntentHelp:            d.handleHelp,
		IntentGeneral:         d.handleGeneral,
	}
	for _, in := range AllIntents {
		if _, ok := d.handlers[in]; !ok {
			panic(fmt.Sprintf("assistant: no handler registered for intent %q", in))
		}
	}
	return d
}

// Dispatch runs the handler of the turn's intent; unknown intents are
// answered as general conversation.
func (d *Dispatcher) Dispatch(ctx context.Context, turn Turn) Reply {
	h, ok := d.handlers[Intent(turn.Intent.Intent)]
	if !ok {
		h = d.handlers[IntentGeneral]
	}
	return h(ctx, turn)
}

func (d *Dispatcher) withFetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.fetchTimeout)
}

// TechnicalErrorReply is the canonical answer when a turn fails unexpectedly
func TechnicalErrorReply(message string, err error) Reply {
	return Reply{
		Content: "Désolé, je rencontre un problème technique. Notre équipe support peut prendre le relais.",
		Actions: []domain.ChatAction{{
			Type:  domain.ActionSupportTicket,
			Label: "Contacter le support",
			Payload: map[string]any{
				"message": message,
				"error":   err.Error(),
			},
			Description: "Créer un ticket avec votre message",
		}},
	}
}

func navigate(label, url string) domain.ChatAction {
	return domain.ChatAction{
		Type:    domain.ActionNavigation,
		Label:   label,
		Payload: map[string]any{"url": url},
	}
}

func quickReply(label, message string) domain.ChatAction {
	return domain.ChatAction{
		Type:    domain.ActionQuickReply,
		Label:   label,
		Payload: map[string]any{"message": message},
	}
}
