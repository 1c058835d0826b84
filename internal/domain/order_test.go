package domain

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var trackingPattern = regexp.MustCompile(`^TRK-\d+-.{4}$`)

func validAddress() Address {
	return Address{FullName: "Jo Bloggs", Phone: "555-0100", Street: "1 Main St"}
}

func TestBuildOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("snapshots cart into an order", func(t *testing.T) {
		cart := &Cart{CustomerID: "customer-1234"}
		_ = cart.AddItem(testProduct("p1", 10, 10), 2, "M", "red")
		_ = cart.AddItem(testProduct("p2", 25, 10), 1, "L", "blue")

		order, err := BuildOrder("customer-1234", cart, validAddress(), now)
		if err != nil {
			t.Fatalf("build order failed: %v", err)
		}

		if len(order.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(order.Items))
		}
		if !order.TotalAmount.Equal(decimal.NewFromInt(45)) {
			t.Fatalf("expected total 45, got %s", order.TotalAmount)
		}
		if order.PaymentStatus != PaymentStatusPaid {
			t.Fatalf("expected payment status paid, got %s", order.PaymentStatus)
		}
		if order.Status != OrderStatusProcessing {
			t.Fatalf("expected status processing, got %s", order.Status)
		}
		if !order.EstimatedDelivery.Equal(now.Add(4 * 24 * time.Hour)) {
			t.Fatalf("unexpected estimated delivery %s", order.EstimatedDelivery)
		}
	})

	t.Run("tracking number matches TRK-<digits>-<4 chars>", func(t *testing.T) {
		cart := &Cart{CustomerID: "customer-1234"}
		_ = cart.AddItem(testProduct("p1", 10, 10), 1, "M", "red")

		order, err := BuildOrder("customer-1234", cart, validAddress(), now)
		if err != nil {
			t.Fatalf("build order failed: %v", err)
		}
		if !trackingPattern.MatchString(order.TrackingNumber) {
			t.Fatalf("tracking number %q does not match pattern", order.TrackingNumber)
		}
	})

	t.Run("initial tracking history has the placement event", func(t *testing.T) {
		cart := &Cart{CustomerID: "customer-1234"}
		_ = cart.AddItem(testProduct("p1", 10, 10), 1, "M", "red")

		order, _ := BuildOrder("customer-1234", cart, validAddress(), now)
		if len(order.TrackingHistory) != 1 {
			t.Fatalf("expected 1 tracking event, got %d", len(order.TrackingHistory))
		}
		ev := order.TrackingHistory[0]
		if ev.Status != "Order Placed" || ev.Location != "Processing Center" {
			t.Fatalf("unexpected initial event %+v", ev)
		}
	})

	t.Run("order prices do not track later catalog changes", func(t *testing.T) {
		p := testProduct("p1", 10, 10)
		cart := &Cart{CustomerID: "customer-1234"}
		_ = cart.AddItem(p, 2, "M", "red")

		order, _ := BuildOrder("customer-1234", cart, validAddress(), now)

		p.Price = decimal.NewFromInt(999)

		if !order.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("unit price changed after catalog edit: %s", order.Items[0].UnitPrice)
		}
		if !order.TotalAmount.Equal(decimal.NewFromInt(20)) {
			t.Fatalf("total changed after catalog edit: %s", order.TotalAmount)
		}
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		if _, err := BuildOrder("c", &Cart{}, validAddress(), now); !errors.Is(err, ErrCartEmpty) {
			t.Fatalf("expected ErrCartEmpty, got %v", err)
		}
		if _, err := BuildOrder("c", nil, validAddress(), now); !errors.Is(err, ErrCartEmpty) {
			t.Fatalf("expected ErrCartEmpty for nil cart, got %v", err)
		}
	})

	t.Run("rejects incomplete address", func(t *testing.T) {
		cart := &Cart{CustomerID: "c"}
		_ = cart.AddItem(testProduct("p1", 10, 10), 1, "M", "red")

		_, err := BuildOrder("c", cart, Address{FullName: "Jo"}, now)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("missing size and color default to empty on the snapshot", func(t *testing.T) {
		cart := &Cart{
			CustomerID: "c",
			Items:      []CartItem{{ProductID: "p1", Quantity: 1, Product: testProduct("p1", 10, 10)}},
		}

		order, err := BuildOrder("c", cart, validAddress(), now)
		if err != nil {
			t.Fatalf("build order failed: %v", err)
		}
		if order.Items[0].Size != "" || order.Items[0].Color != "" {
			t.Fatalf("expected empty size/color, got %+v", order.Items[0])
		}
	})
}

func TestNewTrackingNumber(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tn := NewTrackingNumber("customer-abcd", now)
	if !trackingPattern.MatchString(tn) {
		t.Fatalf("tracking number %q does not match pattern", tn)
	}
	if tn[len(tn)-4:] != "abcd" {
		t.Fatalf("expected customer suffix abcd, got %q", tn[len(tn)-4:])
	}

	// short customer ids are used whole
	short := NewTrackingNumber("ab", now)
	if short != "TRK-1700000000000-ab" {
		t.Fatalf("unexpected tracking number for short id: %q", short)
	}
}

func TestOrder_AppendTracking(t *testing.T) {
	now := time.Now()
	order := &Order{
		Status: OrderStatusProcessing,
		TrackingHistory: []TrackingEvent{
			{Status: "Order Placed", Location: "Processing Center", OccurredAt: now.Add(-time.Hour)},
		},
	}

	order.AppendTracking("shipped", "Distribution Hub", now)

	if order.Status != OrderStatusShipped {
		t.Fatalf("expected status shipped, got %s", order.Status)
	}
	if len(order.TrackingHistory) != 2 {
		t.Fatalf("expected 2 events, got %d", len(order.TrackingHistory))
	}
	if order.TrackingHistory[0].Status != "shipped" {
		t.Fatalf("newest event must be at the head, got %+v", order.TrackingHistory[0])
	}

	order.AppendTracking("delivered", "Front Door", now.Add(time.Hour))
	if order.TrackingHistory[0].Status != "delivered" {
		t.Fatalf("newest event must be at the head after second append")
	}
}
