package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Sizes       []string        `json:"sizes"`
	Colors      []string        `json:"colors"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) HasSize(size string) bool {
	return slices.Contains(p.Sizes, size)
}

func (p *Product) HasColor(color string) bool {
	return slices.Contains(p.Colors, color)
}

// ValidateVariant checks size and color against the product's declared
// option lists. A miss is a client error, not a server fault.
func ValidateVariant(p *Product, size, color string) error {
	if !p.HasSize(size) {
		return ErrInvalidSize
	}
	if !p.HasColor(color) {
		return ErrInvalidColor
	}
	return nil
}

// ValidateQuantity rejects a request that exceeds the available stock. The
// returned error carries the remaining count for user display.
func ValidateQuantity(requested, available int) error {
	if requested > available {
		return &InsufficientStockError{Available: available}
	}
	return nil
}
