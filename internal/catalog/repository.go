package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/threadline/storefront/internal/domain"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *domain.Product) error {
	p.ID = uuid.New().String()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, description, price, stock, sizes, colors, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, p.ID, p.SKU, p.Name, p.Description, p.Price, p.Stock, pq.Array(p.Sizes), pq.Array(p.Colors), now)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}
	var sizes, colors pq.StringArray

	err := r.db.QueryRowContext(ctx, `
		SELECT id, sku, name, description, price, stock, sizes, colors, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock, &sizes, &colors, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	p.Sizes = []string(sizes)
	p.Colors = []string(colors)
	return p, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sku, name, description, price, stock, sizes, colors, created_at, updated_at
		FROM products
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		var sizes, colors pq.StringArray
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock, &sizes, &colors, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Sizes = []string(sizes)
		p.Colors = []string(colors)
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// DecrementStock conditionally deducts quantity, failing when the product
// does not hold enough stock. The WHERE guard makes the deduction safe under
// concurrent fulfillment.
func (r *Repository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// RestoreStock returns quantity to the shelf after a failed fulfillment.
func (r *Repository) RestoreStock(ctx context.Context, productID string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}
