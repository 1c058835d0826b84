package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart holds a customer's pending line items. One cart per customer; within
// a cart no two items share the same (product, size, color) triple.
type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	Items      []CartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	// Product is the resolved catalog entry, nil when the reference is
	// dangling. Dangling lines contribute 0 to the total.
	Product *Product `json:"product,omitempty"`
}

// FindItem returns the line item matching the (productID, size, color)
// variant key exactly, or nil.
func (c *Cart) FindItem(productID, size, color string) *CartItem {
	for i := range c.Items {
		it := &c.Items[i]
		if it.ProductID == productID && it.Size == size && it.Color == color {
			return it
		}
	}
	return nil
}

// AddItem merges quantity into an existing line with the same variant key or
// appends a new line. When the merged quantity would exceed the product's
// stock the cart is left unmodified.
func (c *Cart) AddItem(p *Product, quantity int, size, color string) error {
	if existing := c.FindItem(p.ID, size, color); existing != nil {
		merged := existing.Quantity + quantity
		if err := ValidateQuantity(merged, p.Stock); err != nil {
			return err
		}
		existing.Quantity = merged
		existing.Product = p
		return nil
	}

	c.Items = append(c.Items, CartItem{
		ProductID: p.ID,
		Quantity:  quantity,
		Size:      size,
		Color:     color,
		Product:   p,
	})
	return nil
}

// SetQuantity updates the quantity of the line matching the variant key.
func (c *Cart) SetQuantity(p *Product, quantity int, size, color string) error {
	item := c.FindItem(p.ID, size, color)
	if item == nil {
		return ErrCartItemNotFound
	}
	if err := ValidateQuantity(quantity, p.Stock); err != nil {
		return err
	}
	item.Quantity = quantity
	item.Product = p
	return nil
}

// RemoveVariant drops the line matching the variant key. Filter based: a
// missing variant is a silent no-op.
func (c *Cart) RemoveVariant(productID, size, color string) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID == productID && it.Size == size && it.Color == color {
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
}

// RemoveProduct drops every line for the product regardless of variant.
func (c *Cart) RemoveProduct(productID string) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID == productID {
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
}

// FirstForProduct returns the first line for the product ignoring size and
// color. Legacy quantity-update path.
func (c *Cart) FirstForProduct(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// TotalCost sums quantity times selling price over all resolvable lines.
func (c *Cart) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		if it.Product == nil {
			continue
		}
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
