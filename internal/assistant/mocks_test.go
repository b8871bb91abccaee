package assistant

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/payhuk02/emarzona/internal/domain"
	"github.com/payhuk02/emarzona/internal/recommendation"
)

// MockCatalog mocks the Catalog interface
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) FindOrdersByCustomer(ctx context.Context, customerID string, limit int, newestFirst bool) ([]domain.Order, error) {
	args := m.Called(ctx, customerID, limit, newestFirst)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockCatalog) SearchProductsByName(ctx context.Context, substring string, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, substring, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

// MockRecommender mocks the Recommender interface
type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) GetRecommendations(ctx context.Context, req recommendation.Request) ([]domain.RecommendedProduct, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecommendedProduct), args.Error(1)
}

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Save(ctx context.Context, record *domain.SessionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionRecord), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionSaver records scheduled sessions
type MockSessionSaver struct {
	mock.Mock
}

func (m *MockSessionSaver) Schedule(session *domain.ChatSession) {
	m.Called(session)
}

func (m *MockSessionSaver) Pending(sessionID string) (*domain.ChatSession, bool) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Bool(1)
}

// panickingClassifier simulates an unexpected failure in classification
type panickingClassifier struct{}

func (panickingClassifier) Classify(string, map[string]any) domain.IntentResult {
	panic("classifier exploded")
}
