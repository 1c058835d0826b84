package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/threadline/storefront/internal/catalog"
	"github.com/threadline/storefront/internal/domain"
)

const fulfillmentLocation = "Fulfillment Center"

// Inventory adjusts catalog stock levels.
type Inventory interface {
	DecrementStock(ctx context.Context, productID string, quantity int) error
	RestoreStock(ctx context.Context, productID string, quantity int) error
}

// Tracker moves an order along its tracking history.
type Tracker interface {
	AppendTrackingEvent(ctx context.Context, trackingNumber, status, location string) (*domain.Order, error)
}

// FulfillmentHandler consumes order placed events and commits stock for each
// line. A line that cannot be committed cancels the order and releases the
// stock already taken.
type FulfillmentHandler struct {
	inventory Inventory
	tracker   Tracker
	logger    *slog.Logger
}

func NewFulfillmentHandler(inventory Inventory, tracker Tracker, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{inventory: inventory, tracker: tracker, logger: logger}
}

type committedItem struct {
	ProductID string
	Quantity  int
}

func (h *FulfillmentHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "customer_id", event.CustomerID)

	committed, err := h.commitStock(ctx, event)
	if err != nil {
		if !errors.Is(err, catalog.ErrInsufficientStock) {
			return err
		}

		h.logger.Error("insufficient stock for order", "error", err, "order_id", event.OrderID)

		h.releaseStock(ctx, committed)

		if _, err := h.tracker.AppendTrackingEvent(ctx, event.TrackingNumber,
			string(domain.OrderStatusCancelled), fulfillmentLocation); err != nil {
			h.logger.Error("failed to cancel order", "error", err, "order_id", event.OrderID)
			return fmt.Errorf("cancel order after stock failure: %w", err)
		}

		h.logger.Info("order cancelled due to insufficient stock", "order_id", event.OrderID)
		return nil
	}

	if _, err := h.tracker.AppendTrackingEvent(ctx, event.TrackingNumber,
		string(domain.OrderStatusProcessing), fulfillmentLocation); err != nil {
		h.logger.Error("failed to update order status", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("update order status: %w", err)
	}

	h.logger.Info("order fulfillment committed", "order_id", event.OrderID, "items", len(event.Items))
	return nil
}

func (h *FulfillmentHandler) commitStock(ctx context.Context, event domain.OrderPlacedEvent) ([]committedItem, error) {
	var committed []committedItem

	for _, item := range event.Items {
		if err := h.inventory.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return committed, fmt.Errorf("commit stock for product %s: %w", item.ProductID, err)
		}
		committed = append(committed, committedItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return committed, nil
}

func (h *FulfillmentHandler) releaseStock(ctx context.Context, committed []committedItem) {
	for _, item := range committed {
		if err := h.inventory.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			h.logger.Error("failed to release stock", "error", err, "product_id", item.ProductID)
		}
	}
}
