package cart

import (
	"context"
	"log/slog"

	"github.com/threadline/storefront/internal/domain"
	"github.com/threadline/storefront/internal/locking"
)

// Store persists carts. GetByCustomer returns (nil, nil) when the customer
// has no cart yet.
type Store interface {
	GetByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, customerID string) error
}

// Catalog resolves products for validation and display.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Service implements the cart operations. Every mutation runs under the
// customer's keyed lock: the store has no version column, so the lock is
// what keeps concurrent read-modify-write cycles from losing updates.
type Service struct {
	store   Store
	catalog Catalog
	locks   *locking.KeyedMutex
	logger  *slog.Logger
}

func NewService(store Store, catalog Catalog, locks *locking.KeyedMutex, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		locks:   locks,
		logger:  logger,
	}
}

// AddItem merges the variant into the customer's cart, creating the cart
// lazily on first use. Quantity defaults to 1.
func (s *Service) AddItem(ctx context.Context, customerID, productID string, quantity int, size, color string) (*domain.Cart, error) {
	if productID == "" {
		return nil, domain.Validationf("product id is required")
	}
	if size == "" || color == "" {
		return nil, domain.Validationf("size and color are required")
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, domain.Validationf("quantity must be positive")
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(quantity, product.Stock); err != nil {
		return nil, err
	}
	if err := domain.ValidateVariant(product, size, color); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	cart, err := s.store.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &domain.Cart{CustomerID: customerID}
	}

	if err := cart.AddItem(product, quantity, size, color); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.Info("item added to cart",
		"customer_id", customerID, "product_id", productID, "size", size, "color", color, "quantity", quantity)

	return s.store.GetByCustomer(ctx, customerID)
}

// UpdateItem sets the quantity of one variant, re-validating against the
// product's current stock.
func (s *Service) UpdateItem(ctx context.Context, customerID, productID string, quantity int, size, color string) (*domain.Cart, error) {
	if productID == "" || size == "" || color == "" {
		return nil, domain.Validationf("product id, size and color are required")
	}
	if quantity < 1 {
		return nil, domain.Validationf("quantity must be at least 1")
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	cart, err := s.store.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}

	if err := cart.SetQuantity(product, quantity, size, color); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.Info("cart item updated",
		"customer_id", customerID, "product_id", productID, "quantity", quantity)

	return s.store.GetByCustomer(ctx, customerID)
}

// UpdateQuantityOrRemove is the variant-insensitive legacy path: it targets
// the first line for the product, removing every line for that product when
// quantity drops to zero or below. Stock is re-checked like every other
// quantity mutation.
func (s *Service) UpdateQuantityOrRemove(ctx context.Context, customerID, productID string, quantity int) (*domain.Cart, error) {
	if productID == "" {
		return nil, domain.Validationf("product id is required")
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	cart, err := s.store.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}

	item := cart.FirstForProduct(productID)
	if item == nil {
		return nil, domain.ErrCartItemNotFound
	}

	if quantity <= 0 {
		cart.RemoveProduct(productID)
	} else {
		product, err := s.catalog.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateQuantity(quantity, product.Stock); err != nil {
			return nil, err
		}
		item.Quantity = quantity
	}

	if err := s.store.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.Info("cart quantity updated",
		"customer_id", customerID, "product_id", productID, "quantity", quantity)

	return s.store.GetByCustomer(ctx, customerID)
}

// RemoveItem drops one variant. Removing an absent variant is a no-op, but
// a missing cart is still not found.
func (s *Service) RemoveItem(ctx context.Context, customerID, productID, size, color string) (*domain.Cart, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	cart, err := s.store.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}

	cart.RemoveVariant(productID, size, color)

	if err := s.store.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.Info("cart item removed",
		"customer_id", customerID, "product_id", productID, "size", size, "color", color)

	return s.store.GetByCustomer(ctx, customerID)
}

// Clear deletes the cart entirely. Idempotent.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	if err := s.store.Delete(ctx, customerID); err != nil {
		return err
	}

	s.logger.Info("cart cleared", "customer_id", customerID)
	return nil
}

// Get returns the resolved cart, or an empty one when the customer has not
// added anything yet. Never a not-found.
func (s *Service) Get(ctx context.Context, customerID string) (*domain.Cart, error) {
	cart, err := s.store.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &domain.Cart{CustomerID: customerID, Items: []domain.CartItem{}}
	}
	return cart, nil
}
