package recommendation

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/payhuk02/emarzona/internal/domain"
)

// MockSettingsRepository mocks the SettingsRepository interface
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

// MockCatalog mocks the Catalog interface
type MockCatalog struct {
	mock.Mock
}

func products(args mock.Arguments) ([]domain.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockCatalog) MostViewedProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	return products(m.Called(ctx, limit))
}

func (m *MockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalog) ProductsInCategory(ctx context.Context, productID string, limit int) ([]domain.Product, error) {
	return products(m.Called(ctx, productID, limit))
}

func (m *MockCatalog) ProductsInStore(ctx context.Context, productID string, limit int) ([]domain.Product, error) {
	return products(m.Called(ctx, productID, limit))
}

func (m *MockCatalog) ProductsInCategories(ctx context.Context, categories []string, limit int) ([]domain.Product, error) {
	return products(m.Called(ctx, categories, limit))
}

func (m *MockCatalog) CoPurchasedProducts(ctx context.Context, customerID string, limit int) ([]domain.Product, error) {
	return products(m.Called(ctx, customerID, limit))
}

// stubRunner returns a fixed result, or panics when panicWith is set
type stubRunner struct {
	name      string
	out       []domain.RecommendedProduct
	err       error
	panicWith any
	calls     int
}

func (s *stubRunner) Name() string { return s.name }

func (s *stubRunner) Run(context.Context, Request, domain.RecommendationSettings) ([]domain.RecommendedProduct, error) {
	s.calls++
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.out, s.err
}
