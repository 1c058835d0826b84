package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/threadline/storefront/internal/database"
	"github.com/threadline/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetByCustomer loads the customer's cart with product details resolved.
// Returns (nil, nil) when the customer has no cart yet. Lines whose product
// was deleted keep a nil Product.
func (r *Repository) GetByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	cart := &domain.Cart{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, created_at, updated_at
		FROM carts
		WHERE customer_id = $1
	`, customerID).Scan(&cart.ID, &cart.CustomerID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.product_id, ci.quantity, ci.size, ci.color,
		       p.id, p.sku, p.name, p.description, p.price, p.stock, p.sizes, p.colors
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.product_id
	`, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		var size, color sql.NullString
		var pID, pSKU, pName, pDesc sql.NullString
		var pPrice decimal.NullDecimal
		var pStock sql.NullInt64
		var pSizes, pColors pq.StringArray

		if err := rows.Scan(&item.ProductID, &item.Quantity, &size, &color,
			&pID, &pSKU, &pName, &pDesc, &pPrice, &pStock, &pSizes, &pColors); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}

		item.Size = size.String
		item.Color = color.String
		if pID.Valid {
			item.Product = &domain.Product{
				ID:          pID.String,
				SKU:         pSKU.String,
				Name:        pName.String,
				Description: pDesc.String,
				Price:       pPrice.Decimal,
				Stock:       int(pStock.Int64),
				Sizes:       []string(pSizes),
				Colors:      []string(pColors),
			}
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cart, nil
}

// Save writes the cart and its line items in one transaction, creating the
// cart row on first use. Items are replaced wholesale; the caller holds the
// per-customer lock around the whole read-modify-write cycle.
func (r *Repository) Save(ctx context.Context, cart *domain.Cart) error {
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}

	return database.WithRetry(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO carts (id, customer_id, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (customer_id) DO UPDATE SET updated_at = NOW()
		`, cart.ID, cart.CustomerID)
		if err != nil {
			return fmt.Errorf("upsert cart: %w", err)
		}

		// the upsert keeps the original id when the cart already existed
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM carts WHERE customer_id = $1`, cart.CustomerID,
		).Scan(&cart.ID); err != nil {
			return fmt.Errorf("read cart id: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}

		added := time.Now().UTC()
		for _, item := range cart.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO cart_items (id, cart_id, product_id, quantity, size, color, added_at)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
			`, uuid.New().String(), cart.ID, item.ProductID, item.Quantity, item.Size, item.Color, added)
			if err != nil {
				return fmt.Errorf("insert cart item: %w", err)
			}
			added = added.Add(time.Microsecond)
		}

		return nil
	})
}

// Delete removes the cart row entirely; line items cascade. Idempotent.
func (r *Repository) Delete(ctx context.Context, customerID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM carts WHERE customer_id = $1`, customerID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
