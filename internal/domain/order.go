package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

const (
	initialTrackingStatus   = "Order Placed"
	initialTrackingLocation = "Processing Center"

	estimatedDeliveryOffset = 4 * 24 * time.Hour
)

type Address struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

func (a Address) Validate() error {
	if a.FullName == "" || a.Phone == "" || a.Street == "" {
		return Validationf("delivery address requires full name, phone and street")
	}
	return nil
}

// TrackingEvent records one status change. History is kept newest-first:
// TrackingHistory[0] is always the most recent event.
type TrackingEvent struct {
	Status     string    `json:"status"`
	Location   string    `json:"location"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderItem snapshots a cart line at checkout. UnitPrice is the selling
// price at order time and never tracks later catalog changes.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Product   *Product        `json:"product,omitempty"`
}

type Order struct {
	ID                string          `json:"id"`
	CustomerID        string          `json:"customer_id"`
	Items             []OrderItem     `json:"items"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	Status            OrderStatus     `json:"status"`
	DeliveryAddress   Address         `json:"delivery_address"`
	TrackingNumber    string          `json:"tracking_number"`
	TrackingHistory   []TrackingEvent `json:"tracking_history"`
	EstimatedDelivery time.Time       `json:"estimated_delivery"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewTrackingNumber derives a tracking number from a coarse timestamp and
// the customer id suffix. Collisions are possible at millisecond resolution;
// the order store enforces a unique index and the caller regenerates on
// conflict.
func NewTrackingNumber(customerID string, now time.Time) string {
	suffix := customerID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("TRK-%d-%s", now.UnixMilli(), suffix)
}

// BuildOrder snapshots the cart into an immutable order. Prices are copied
// from the resolved products so later catalog edits cannot change the order.
func BuildOrder(customerID string, cart *Cart, address Address, now time.Time) (*Order, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}
	if cart == nil || cart.IsEmpty() {
		return nil, ErrCartEmpty
	}

	items := make([]OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		item := OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Size:      line.Size,
			Color:     line.Color,
		}
		if line.Product != nil {
			item.UnitPrice = line.Product.Price
		}
		items = append(items, item)
	}

	return &Order{
		CustomerID:      customerID,
		Items:           items,
		TotalAmount:     cart.TotalCost(),
		PaymentStatus:   PaymentStatusPaid,
		Status:          OrderStatusProcessing,
		DeliveryAddress: address,
		TrackingNumber:  NewTrackingNumber(customerID, now),
		TrackingHistory: []TrackingEvent{
			{Status: initialTrackingStatus, Location: initialTrackingLocation, OccurredAt: now},
		},
		EstimatedDelivery: now.Add(estimatedDeliveryOffset),
		CreatedAt:         now,
	}, nil
}

// AppendTracking prepends an event and moves the order status along with it.
func (o *Order) AppendTracking(status, location string, now time.Time) {
	o.Status = OrderStatus(status)
	o.TrackingHistory = append([]TrackingEvent{
		{Status: status, Location: location, OccurredAt: now},
	}, o.TrackingHistory...)
}
