package handler_test

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/payhuk02/emarzona/internal/assistant"
	"github.com/payhuk02/emarzona/internal/domain"
	"github.com/payhuk02/emarzona/internal/recommendation"
)

// MockChatService mocks handler.ChatService
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) HandleMessage(ctx context.Context, req assistant.MessageRequest) (*assistant.TurnResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assistant.TurnResult), args.Error(1)
}

func (m *MockChatService) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

// MockRecommender mocks handler.Recommender
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

// MockCache mocks handler.RecommendationCache and handler.CacheFlusher
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, userID, productID string) ([]domain.RecommendedProduct, bool, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.RecommendedProduct), args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, userID, productID string, items []domain.RecommendedProduct, ttl time.Duration) error {
	args := m.Called(ctx, userID, productID, items, ttl)
	return args.Error(0)
}

func (m *MockCache) FlushAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockSettingsStore mocks handler.SettingsStore
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Current() domain.RecommendationSettings {
	args := m.Called()
	return args.Get(0).(domain.RecommendationSettings)
}

func (m *MockSettingsStore) Load(ctx context.Context) domain.RecommendationSettings {
	args := m.Called(ctx)
	return args.Get(0).(domain.RecommendationSettings)
}

func (m *MockSettingsStore) Update(patch domain.SettingsPatch) domain.RecommendationSettings {
	args := m.Called(patch)
	return args.Get(0).(domain.RecommendationSettings)
}

// MockSettingsRepository mocks domain.SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, key string, payload []byte) error {
	args := m.Called(ctx, key, payload)
	return args.Error(0)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

var errBackend = errors.New("backend down")
