package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductType is the kind of product sold on the marketplace
type ProductType string

const (
	ProductTypeDigital  ProductType = "digital"
	ProductTypePhysical ProductType = "physical"
	ProductTypeService  ProductType = "service"
	ProductTypeCourse   ProductType = "course"
	ProductTypeArtist   ProductType = "artist"
)

// Product is a catalog entry as seen by the assistant and the recommender
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Type      ProductType     `json:"type"`
	StoreID   string          `json:"store_id"`
	Price     decimal.Decimal `json:"price"`
	Tags      []string        `json:"tags,omitempty"`
	ViewCount int64           `json:"view_count"`
}

// RecommendedProduct is a scored candidate. Scores are only comparable
// across algorithms after the aggregator has weighted them.
type RecommendedProduct struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Type     ProductType `json:"type"`
	Score    float64     `json:"score"`
	Reason   string      `json:"reason"`
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// Order is a customer order summary
type Order struct {
	ID          string          `json:"id"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

// CatalogGateway is the query surface over products and orders
type CatalogGateway interface {
	// FindOrdersByCustomer returns at most limit orders, newest first when newestFirst is set.
	FindOrdersByCustomer(ctx context.Context, customerID string, limit int, newestFirst bool) ([]Order, error)

	// SearchProductsByName performs a case-insensitive substring match on product names.
	SearchProductsByName(ctx context.Context, substring string, limit int) ([]Product, error)

	// MostViewedProducts returns active products ordered by view count.
	MostViewedProducts(ctx context.Context, limit int) ([]Product, error)

	// GetProduct returns ErrNotFound when no such product exists.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// ProductsInCategory returns products sharing the category of productID, excluding it.
	ProductsInCategory(ctx context.Context, productID string, limit int) ([]Product, error)

	// ProductsInStore returns products sold by the store of productID, excluding it.
	ProductsInStore(ctx context.Context, productID string, limit int) ([]Product, error)

	// ProductsInCategories returns products from any of the given categories.
	ProductsInCategories(ctx context.Context, categories []string, limit int) ([]Product, error)

	// CoPurchasedProducts returns products bought by customers who share at
	// least one purchase with customerID, excluding what customerID already bought.
	CoPurchasedProducts(ctx context.Context, customerID string, limit int) ([]Product, error)
}
