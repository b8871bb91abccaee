package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/payhuk02/emarzona/internal/domain"
)

// CatalogRepository implements domain.CatalogGateway over the marketplace tables
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const productColumns = `p.id, p.name, p.category, p.product_type, p.store_id, p.price::text, p.tags, p.view_count`

// FindOrdersByCustomer returns the customer's orders
func (r *CatalogRepository) FindOrdersByCustomer(ctx context.Context, customerID string, limit int, newestFirst bool) ([]domain.Order, error) {
	direction := "ASC"
	if newestFirst {
		direction = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT id, status, created_at, total_amount::text, currency
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at %s
		LIMIT $2
	`, direction)

	rows, err := r.db.Pool.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var status, amount string
		if err := rows.Scan(&o.ID, &status, &o.CreatedAt, &amount, &o.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		if o.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse total of order %s: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, nil
}

// SearchProductsByName matches active products whose name contains substring
func (r *CatalogRepository) SearchProductsByName(ctx context.Context, substring string, limit int) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.is_active AND p.name ILIKE '%' || $1 || '%'
		ORDER BY p.view_count DESC, p.name
		LIMIT $2
	`
	return r.queryProducts(ctx, "search products", query, escapeLike(substring), limit)
}

// MostViewedProducts returns the most viewed active products
func (r *CatalogRepository) MostViewedProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.is_active
		ORDER BY p.view_count DESC, p.created_at DESC
		LIMIT $1
	`
	return r.queryProducts(ctx, "list most viewed products", query, limit)
}

// GetProduct retrieves a product by ID
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.id = $1
	`
	p, err := scanProduct(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// ProductsInCategory returns active products sharing the category of productID
func (r *CatalogRepository) ProductsInCategory(ctx context.Context, productID string, limit int) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN products cur ON cur.id = $1
		WHERE p.is_active AND p.category = cur.category AND p.id <> cur.id
		ORDER BY p.view_count DESC
		LIMIT $2
	`
	return r.queryProducts(ctx, "list products in category", query, productID, limit)
}

// ProductsInStore returns active products from the store of productID
func (r *CatalogRepository) ProductsInStore(ctx context.Context, productID string, limit int) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN products cur ON cur.id = $1
		WHERE p.is_active AND p.store_id = cur.store_id AND p.id <> cur.id
		ORDER BY p.view_count DESC
		LIMIT $2
	`
	return r.queryProducts(ctx, "list products in store", query, productID, limit)
}

// ProductsInCategories returns active products from any of the categories
func (r *CatalogRepository) ProductsInCategories(ctx context.Context, categories []string, limit int) ([]domain.Product, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.is_active AND p.category = ANY($1)
		ORDER BY p.view_count DESC
		LIMIT $2
	`
	return r.queryProducts(ctx, "list products in categories", query, categories, limit)
}

// CoPurchasedProducts ranks products by how many customers sharing a
// purchase with customerID bought them.
func (r *CatalogRepository) CoPurchasedProducts(ctx context.Context, customerID string, limit int) ([]domain.Product, error) {
	query := `
		WITH mine AS (
			SELECT DISTINCT oi.product_id
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.customer_id = $1 AND o.status NOT IN ('cancelled', 'refunded')
		), peers AS (
			SELECT DISTINCT o.customer_id
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE oi.product_id IN (SELECT product_id FROM mine) AND o.customer_id <> $1
		), candidates AS (
			SELECT oi.product_id, COUNT(DISTINCT o.customer_id) AS buyers
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.customer_id IN (SELECT customer_id FROM peers)
				AND oi.product_id NOT IN (SELECT product_id FROM mine)
			GROUP BY oi.product_id
		)
		SELECT ` + productColumns + `
		FROM products p
		JOIN candidates c ON c.product_id = p.id
		WHERE p.is_active
		ORDER BY c.buyers DESC, p.view_count DESC
		LIMIT $2
	`
	return r.queryProducts(ctx, "list co-purchased products", query, customerID, limit)
}

func (r *CatalogRepository) queryProducts(ctx context.Context, op, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	return products, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	var productType, price string
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &productType, &p.StoreID, &price, &p.Tags, &p.ViewCount); err != nil {
		return domain.Product{}, err
	}
	p.Type = domain.ProductType(productType)

	amount, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price %q: %w", price, err)
	}
	p.Price = amount
	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
