package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/threadline/storefront/internal/catalog"
	"github.com/threadline/storefront/internal/domain"
)

type stubInventory struct {
	stock       map[string]int
	decremented []committedItem
	restored    []committedItem
}

func (s *stubInventory) DecrementStock(_ context.Context, productID string, quantity int) error {
	if s.stock[productID] < quantity {
		return fmt.Errorf("commit %s: %w", productID, catalog.ErrInsufficientStock)
	}
	s.stock[productID] -= quantity
	s.decremented = append(s.decremented, committedItem{ProductID: productID, Quantity: quantity})
	return nil
}

func (s *stubInventory) RestoreStock(_ context.Context, productID string, quantity int) error {
	s.stock[productID] += quantity
	s.restored = append(s.restored, committedItem{ProductID: productID, Quantity: quantity})
	return nil
}

type stubTracker struct {
	events []string
	err    error
}

func (s *stubTracker) AppendTrackingEvent(_ context.Context, trackingNumber, status, location string) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.events = append(s.events, status)
	return &domain.Order{TrackingNumber: trackingNumber, Status: domain.OrderStatus(status)}, nil
}

func placedEvent(items ...domain.OrderItem) []byte {
	payload, _ := json.Marshal(domain.OrderPlacedEvent{
		OrderID:        "order-1",
		CustomerID:     "customer-9999",
		TrackingNumber: "TRK-1-9999",
		Items:          items,
	})
	return payload
}

func TestFulfillmentHandler_Handle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("commits stock and confirms the order", func(t *testing.T) {
		inventory := &stubInventory{stock: map[string]int{"p1": 5, "p2": 5}}
		tracker := &stubTracker{}
		handler := NewFulfillmentHandler(inventory, tracker, logger)

		payload := placedEvent(
			domain.OrderItem{ProductID: "p1", Quantity: 2},
			domain.OrderItem{ProductID: "p2", Quantity: 1},
		)
		if err := handler.Handle(ctx, payload); err != nil {
			t.Fatalf("handle failed: %v", err)
		}

		if inventory.stock["p1"] != 3 || inventory.stock["p2"] != 4 {
			t.Fatalf("stock not committed: %v", inventory.stock)
		}
		if len(tracker.events) != 1 || tracker.events[0] != "processing" {
			t.Fatalf("expected a processing event, got %v", tracker.events)
		}
	})

	t.Run("cancels the order and releases stock on shortage", func(t *testing.T) {
		inventory := &stubInventory{stock: map[string]int{"p1": 5, "p2": 0}}
		tracker := &stubTracker{}
		handler := NewFulfillmentHandler(inventory, tracker, logger)

		payload := placedEvent(
			domain.OrderItem{ProductID: "p1", Quantity: 2},
			domain.OrderItem{ProductID: "p2", Quantity: 1},
		)
		if err := handler.Handle(ctx, payload); err != nil {
			t.Fatalf("a stock shortage is handled, not returned: %v", err)
		}

		if inventory.stock["p1"] != 5 {
			t.Fatalf("committed stock was not released: %v", inventory.stock)
		}
		if len(tracker.events) != 1 || tracker.events[0] != "cancelled" {
			t.Fatalf("expected a cancelled event, got %v", tracker.events)
		}
	})

	t.Run("returns other inventory errors for redelivery", func(t *testing.T) {
		inventory := &failingInventory{err: errors.New("connection reset")}
		tracker := &stubTracker{}
		handler := NewFulfillmentHandler(inventory, tracker, logger)

		err := handler.Handle(ctx, placedEvent(domain.OrderItem{ProductID: "p1", Quantity: 1}))
		if err == nil {
			t.Fatal("expected the error to propagate")
		}
		if len(tracker.events) != 0 {
			t.Fatalf("order must not move on a transient failure: %v", tracker.events)
		}
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		inventory := &stubInventory{stock: map[string]int{}}
		handler := NewFulfillmentHandler(inventory, &stubTracker{}, logger)

		if err := handler.Handle(ctx, []byte("not json")); err == nil {
			t.Fatal("expected an unmarshal error")
		}
	})
}

type failingInventory struct {
	err error
}

func (f *failingInventory) DecrementStock(context.Context, string, int) error { return f.err }
func (f *failingInventory) RestoreStock(context.Context, string, int) error   { return f.err }
