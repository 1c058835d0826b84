package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("item not found in cart")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrOrderNotFound    = errors.New("invalid tracking number")
	ErrInvalidSize      = errors.New("invalid size for this product")
	ErrInvalidColor     = errors.New("invalid color for this product")
)

// ValidationError marks a request that is malformed or missing required
// fields. Handlers map it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientStockError carries the remaining stock so the message can name
// the exact available count.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d left in stock", e.Available)
}
