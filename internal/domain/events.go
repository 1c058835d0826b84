package domain

import "time"

type OrderPlacedEvent struct {
	OrderID        string      `json:"order_id"`
	CustomerID     string      `json:"customer_id"`
	TrackingNumber string      `json:"tracking_number"`
	Items          []OrderItem `json:"items"`
	Timestamp      time.Time   `json:"timestamp"`
}
