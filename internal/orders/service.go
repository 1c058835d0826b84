package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/threadline/storefront/internal/domain"
	"github.com/threadline/storefront/internal/locking"
)

const maxTrackingAttempts = 3

// Store persists orders.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByTracking(ctx context.Context, trackingNumber string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	AppendTrackingEvent(ctx context.Context, trackingNumber, status, location string) (*domain.Order, error)
}

// CartSource reads the customer's resolved cart at checkout time.
type CartSource interface {
	GetByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
}

// Publisher emits order events. Nil-safe at the service level so the API
// runs without a broker in development.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Service struct {
	store     Store
	carts     CartSource
	locks     *locking.KeyedMutex
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(store Store, carts CartSource, locks *locking.KeyedMutex, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		carts:     carts,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder snapshots the customer's cart into an order. The customer's
// cart lock is held so checkout cannot interleave with a cart mutation, and
// the store empties the cart in the same transaction that writes the order.
func (s *Service) CreateOrder(ctx context.Context, customerID string, address domain.Address) (*domain.Order, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	cart, err := s.carts.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	order, err := domain.BuildOrder(customerID, cart, address, s.now())
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = s.store.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTrackingNumberConflict) || attempt == maxTrackingAttempts {
			return nil, err
		}
		order.TrackingNumber = domain.NewTrackingNumber(customerID, s.now())
	}

	if s.publisher != nil {
		event := domain.OrderPlacedEvent{
			OrderID:        order.ID,
			CustomerID:     order.CustomerID,
			TrackingNumber: order.TrackingNumber,
			Items:          order.Items,
			Timestamp:      order.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, order.ID, event); err != nil {
			// fulfillment catches up from the store; the order stands
			s.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	s.logger.Info("order created",
		"order_id", order.ID, "customer_id", customerID, "tracking_number", order.TrackingNumber,
		"total_amount", order.TotalAmount)

	return order, nil
}

// Track resolves an order by tracking number. Public: the tracking number
// is the credential.
func (s *Service) Track(ctx context.Context, trackingNumber string) (*domain.Order, error) {
	return s.store.GetByTracking(ctx, trackingNumber)
}

// UpdateStatus appends a tracking event, moving the order status with it.
func (s *Service) UpdateStatus(ctx context.Context, trackingNumber, status, location string) (*domain.Order, error) {
	if status == "" {
		return nil, domain.Validationf("status is required")
	}

	order, err := s.store.AppendTrackingEvent(ctx, trackingNumber, status, location)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		"tracking_number", trackingNumber, "status", status, "location", location)

	return order, nil
}

// List returns the customer's own orders.
func (s *Service) List(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.store.ListByCustomer(ctx, customerID)
}
