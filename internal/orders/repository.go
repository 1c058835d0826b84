package orders

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

// ErrTrackingNumberConflict reports a unique-index collision on the
// tracking number; the caller regenerates and retries.
var ErrTrackingNumberConflict = errors.New("tracking number already taken")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create persists the order, its items, its initial tracking history, and
// empties the source cart's line items, all in one transaction. The cart row
// itself survives checkout.
func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()

	err := database.WithRetry(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, tracking_number, payment_status, status, total_amount,
			                    recipient_name, phone, street, city, postal_code, country,
			                    estimated_delivery, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		`, order.ID, order.CustomerID, order.TrackingNumber, order.PaymentStatus, order.Status,
			order.TotalAmount, order.DeliveryAddress.FullName, order.DeliveryAddress.Phone,
			order.DeliveryAddress.Street, order.DeliveryAddress.City, order.DeliveryAddress.PostalCode,
			order.DeliveryAddress.Country, order.EstimatedDelivery, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, quantity, size, color, unit_price)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
			`, uuid.New().String(), order.ID, item.ProductID, item.Quantity, item.Size, item.Color, item.UnitPrice)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		for _, ev := range order.TrackingHistory {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_tracking_events (order_id, status, location, occurred_at)
				VALUES ($1, $2, $3, $4)
			`, order.ID, ev.Status, ev.Location, ev.OccurredAt)
			if err != nil {
				return fmt.Errorf("insert tracking event: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM cart_items
			WHERE cart_id IN (SELECT id FROM carts WHERE customer_id = $1)
		`, order.CustomerID)
		if err != nil {
			return fmt.Errorf("empty cart: %w", err)
		}

		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrTrackingNumberConflict
		}
		return err
	}

	return nil
}

// GetByTracking resolves the full order: items with product details and the
// tracking history newest-first.
func (r *Repository) GetByTracking(ctx context.Context, trackingNumber string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, tracking_number, payment_status, status, total_amount,
		       recipient_name, phone, street, city, postal_code, country,
		       estimated_delivery, created_at, updated_at
		FROM orders
		WHERE tracking_number = $1
	`, trackingNumber).Scan(&order.ID, &order.CustomerID, &order.TrackingNumber,
		&order.PaymentStatus, &order.Status, &order.TotalAmount,
		&order.DeliveryAddress.FullName, &order.DeliveryAddress.Phone, &order.DeliveryAddress.Street,
		&order.DeliveryAddress.City, &order.DeliveryAddress.PostalCode, &order.DeliveryAddress.Country,
		&order.EstimatedDelivery, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	if err := r.loadTrackingHistory(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.product_id, oi.quantity, oi.size, oi.color, oi.unit_price,
		       p.id, p.name, p.sku
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_id
	`, order.ID)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		var size, color, pID, pName, pSKU sql.NullString
		if err := rows.Scan(&item.ProductID, &item.Quantity, &size, &color, &item.UnitPrice,
			&pID, &pName, &pSKU); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		item.Size = size.String
		item.Color = color.String
		if pID.Valid {
			item.Product = &domain.Product{ID: pID.String, Name: pName.String, SKU: pSKU.String, Price: item.UnitPrice}
		}
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

func (r *Repository) loadTrackingHistory(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, location, occurred_at
		FROM order_tracking_events
		WHERE order_id = $1
		ORDER BY occurred_at DESC, id DESC
	`, order.ID)
	if err != nil {
		return fmt.Errorf("get tracking history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	order.TrackingHistory = []domain.TrackingEvent{}
	for rows.Next() {
		var ev domain.TrackingEvent
		if err := rows.Scan(&ev.Status, &ev.Location, &ev.OccurredAt); err != nil {
			return fmt.Errorf("scan tracking event: %w", err)
		}
		order.TrackingHistory = append(order.TrackingHistory, ev)
	}

	return rows.Err()
}

// ListByCustomer returns the customer's orders newest-first, items included,
// tracking history omitted.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, tracking_number, payment_status, status, total_amount,
		       estimated_delivery, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.CustomerID, &order.TrackingNumber,
			&order.PaymentStatus, &order.Status, &order.TotalAmount,
			&order.EstimatedDelivery, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, size, color, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		var size, color sql.NullString
		var price decimal.Decimal
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &size, &color, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Size = size.String
		item.Color = color.String
		item.UnitPrice = price
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// AppendTrackingEvent moves the order status and prepends the event to the
// history in one transaction, then returns the refreshed order.
func (r *Repository) AppendTrackingEvent(ctx context.Context, trackingNumber, status, location string) (*domain.Order, error) {
	now := time.Now().UTC()

	err := database.WithRetry(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var orderID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM orders WHERE tracking_number = $1`, trackingNumber,
		).Scan(&orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrOrderNotFound
			}
			return fmt.Errorf("find order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
		`, status, now, orderID); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_tracking_events (order_id, status, location, occurred_at)
			VALUES ($1, $2, $3, $4)
		`, orderID, status, location, now); err != nil {
			return fmt.Errorf("insert tracking event: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByTracking(ctx, trackingNumber)
}
