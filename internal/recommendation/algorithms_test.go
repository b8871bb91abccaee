package recommendation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/emarzona/internal/domain"
)

func TestSimilarity(t *testing.T) {
	w := domain.SimilarityWeights{Category: 0.4, Store: 0.2, Price: 0.2, Tags: 0.2}
	base := domain.Product{
		ID: "a", Category: "books", StoreID: "s1",
		Price: decimal.NewFromInt(100), Tags: []string{"go", "backend"},
	}

	tests := []struct {
		name  string
		other domain.Product
		want  float64
	}{
		{"identical", domain.Product{Category: "books", StoreID: "s1", Price: decimal.NewFromInt(100), Tags: []string{"go", "backend"}}, 1},
		{"category only", domain.Product{Category: "books", StoreID: "s2"}, 0.4},
		{"half price", domain.Product{Category: "music", StoreID: "s1", Price: decimal.NewFromInt(50)}, 0.2 + 0.2*0.5},
		{"one shared tag", domain.Product{Tags: []string{"go", "frontend"}}, 0.2 / 3},
		{"nothing shared", domain.Product{Category: "music", StoreID: "s9"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(base, tt.other, w), 1e-9)
		})
	}

	assert.Zero(t, Similarity(base, base, domain.SimilarityWeights{}))
}

func TestCollaborativeRunner_RequiresPersonalization(t *testing.T) {
	settings := domain.DefaultRecommendationSettings()
	catalog := new(MockCatalog)
	r := NewCollaborativeRunner(catalog)

	out, err := r.Run(context.Background(), Request{}, settings)
	require.NoError(t, err)
	assert.Empty(t, out)

	settings.General.EnablePersonalization = false
	out, err = r.Run(context.Background(), Request{UserID: "u1"}, settings)
	require.NoError(t, err)
	assert.Empty(t, out)

	catalog.AssertNotCalled(t, "CoPurchasedProducts", mock.Anything, mock.Anything, mock.Anything)
}

func TestCollaborativeRunner_RanksCoPurchases(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("CoPurchasedProducts", mock.Anything, "u1", 16).Return(productList("p", 3), nil)

	out, err := NewCollaborativeRunner(catalog).Run(context.Background(), Request{UserID: "u1"}, domain.DefaultRecommendationSettings())

	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 1.0, out[0].Score)
	assert.Greater(t, out[1].Score, out[2].Score)
	assert.Equal(t, ReasonCollaborative, out[0].Reason)
}

func TestContentBasedRunner(t *testing.T) {
	current := &domain.Product{ID: "cur", Category: "books", StoreID: "s1", Type: domain.ProductTypeDigital}

	catalog := new(MockCatalog)
	catalog.On("GetProduct", mock.Anything, "cur").Return(current, nil)
	catalog.On("ProductsInCategory", mock.Anything, "cur", 16).Return([]domain.Product{
		{ID: "both", Category: "books", StoreID: "s1"},
		{ID: "cat", Category: "books", StoreID: "s2"},
	}, nil)
	catalog.On("ProductsInStore", mock.Anything, "cur", 16).Return([]domain.Product{
		{ID: "both", Category: "books", StoreID: "s1"},
		{ID: "store", Category: "music", StoreID: "s1"},
	}, nil)

	out, err := NewContentBasedRunner(catalog).Run(context.Background(), Request{CurrentProductID: "cur"}, domain.DefaultRecommendationSettings())

	require.NoError(t, err)
	assert.Equal(t, []string{"both", "cat", "store"}, ids(out))
	assert.InDelta(t, 0.6, out[0].Score, 1e-9)
	assert.InDelta(t, 0.4, out[1].Score, 1e-9)
	assert.InDelta(t, 0.2, out[2].Score, 1e-9)
}

func TestContentBasedRunner_NoProduct(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProduct", mock.Anything, "gone").Return(nil, domain.ErrNotFound)
	r := NewContentBasedRunner(catalog)

	out, err := r.Run(context.Background(), Request{}, domain.DefaultRecommendationSettings())
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = r.Run(context.Background(), Request{CurrentProductID: "gone"}, domain.DefaultRecommendationSettings())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestContentBasedRunner_CatalogError(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProduct", mock.Anything, "cur").Return(nil, errors.New("db down"))

	_, err := NewContentBasedRunner(catalog).Run(context.Background(), Request{CurrentProductID: "cur"}, domain.DefaultRecommendationSettings())
	assert.Error(t, err)
}

func TestTrendingRunner(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("MostViewedProducts", mock.Anything, 16).Return(productList("hot", 2), nil)

	out, err := NewTrendingRunner(catalog).Run(context.Background(), Request{}, domain.DefaultRecommendationSettings())

	require.NoError(t, err)
	assert.Equal(t, []string{"hot0", "hot1"}, ids(out))
	assert.Equal(t, ReasonTrending, out[1].Reason)
}

func TestBehavioralRunner(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProduct", mock.Anything, "seen1").Return(&domain.Product{ID: "seen1", Category: "books"}, nil)
	catalog.On("GetProduct", mock.Anything, "missing").Return(nil, domain.ErrNotFound)
	catalog.On("ProductsInCategories", mock.Anything, []string{"books", "music"}, 16).Return([]domain.Product{
		{ID: "seen1", Category: "books"},
		{ID: "b1", Category: "books"},
		{ID: "m1", Category: "music"},
	}, nil)

	req := Request{
		UserID: "u1",
		SessionContext: map[string]any{
			domain.ContextBrowsingHistory: []any{
				"seen1",
				"missing",
				map[string]any{"id": "x", "category": "books"},
				map[string]any{"category": "music"},
			},
		},
	}

	out, err := NewBehavioralRunner(catalog).Run(context.Background(), req, domain.DefaultRecommendationSettings())

	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "m1"}, ids(out))
	assert.Equal(t, 1.0, out[0].Score)
	assert.InDelta(t, 0.5/1.1, out[1].Score, 1e-9)
}

func TestBehavioralRunner_NoHistory(t *testing.T) {
	catalog := new(MockCatalog)

	out, err := NewBehavioralRunner(catalog).Run(context.Background(), Request{UserID: "u1"}, domain.DefaultRecommendationSettings())

	require.NoError(t, err)
	assert.Empty(t, out)
	catalog.AssertNotCalled(t, "ProductsInCategories", mock.Anything, mock.Anything, mock.Anything)
}

func TestCrossTypeRunner(t *testing.T) {
	current := &domain.Product{ID: "cur", Type: domain.ProductTypeCourse}

	catalog := new(MockCatalog)
	catalog.On("GetProduct", mock.Anything, "cur").Return(current, nil)
	catalog.On("ProductsInStore", mock.Anything, "cur", 16).Return([]domain.Product{
		{ID: "same-type", Type: domain.ProductTypeCourse},
		{ID: "ebook", Type: domain.ProductTypeDigital},
	}, nil)
	catalog.On("ProductsInCategory", mock.Anything, "cur", 16).Return([]domain.Product{
		{ID: "ebook", Type: domain.ProductTypeDigital},
		{ID: "coaching", Type: domain.ProductTypeService},
	}, nil)

	out, err := NewCrossTypeRunner(catalog).Run(context.Background(), Request{CurrentProductID: "cur"}, domain.DefaultRecommendationSettings())

	require.NoError(t, err)
	assert.Equal(t, []string{"ebook", "coaching"}, ids(out))
	assert.Equal(t, ReasonCrossType, out[0].Reason)
}

func TestDefaultRunners_Names(t *testing.T) {
	var names []string
	for _, r := range DefaultRunners(new(MockCatalog)) {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{
		domain.AlgorithmCollaborative,
		domain.AlgorithmContentBased,
		domain.AlgorithmTrending,
		domain.AlgorithmBehavioral,
		domain.AlgorithmCrossType,
	}, names)
}
