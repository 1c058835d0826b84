package cart

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/threadline/storefront/internal/auth"
)

func authedRequest(method, target, body, customerID string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{CustomerID: customerID}))
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	svc, _ := newTestService(shirt("p1", 10, 5))
	return NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestHandler_HandleAdd(t *testing.T) {
	t.Run("returns 201 with cart and total", func(t *testing.T) {
		handler := newTestHandler(t)

		req := authedRequest(http.MethodPost, "/cart/add",
			`{"productId":"p1","quantity":3,"size":"M","color":"red"}`, "cust-1")
		rec := httptest.NewRecorder()

		handler.HandleAdd(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["cart"] == nil {
			t.Fatal("expected cart in response")
		}
		if body["totalCost"] != "30" {
			t.Fatalf("expected totalCost 30, got %v", body["totalCost"])
		}
	})

	t.Run("missing size and color is a 400", func(t *testing.T) {
		handler := newTestHandler(t)

		req := authedRequest(http.MethodPost, "/cart/add", `{"productId":"p1"}`, "cust-1")
		rec := httptest.NewRecorder()

		handler.HandleAdd(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["error"] != "size and color are required" {
			t.Fatalf("unexpected error message: %v", body["error"])
		}
	})

	t.Run("unknown product is a 404", func(t *testing.T) {
		handler := newTestHandler(t)

		req := authedRequest(http.MethodPost, "/cart/add",
			`{"productId":"ghost","size":"M","color":"red"}`, "cust-1")
		rec := httptest.NewRecorder()

		handler.HandleAdd(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("merge exceeding stock is a 400 naming the available count", func(t *testing.T) {
		handler := newTestHandler(t)

		first := authedRequest(http.MethodPost, "/cart/add",
			`{"productId":"p1","quantity":3,"size":"M","color":"red"}`, "cust-1")
		rec := httptest.NewRecorder()
		handler.HandleAdd(rec, first)
		if rec.Code != http.StatusCreated {
			t.Fatalf("setup add failed: %d", rec.Code)
		}

		second := authedRequest(http.MethodPost, "/cart/add",
			`{"productId":"p1","quantity":3,"size":"M","color":"red"}`, "cust-1")
		rec = httptest.NewRecorder()
		handler.HandleAdd(rec, second)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["error"] != "only 5 left in stock" {
			t.Fatalf("unexpected error message: %v", body["error"])
		}
	})

	t.Run("invalid body is a 400", func(t *testing.T) {
		handler := newTestHandler(t)

		req := authedRequest(http.MethodPost, "/cart/add", `{not json`, "cust-1")
		rec := httptest.NewRecorder()

		handler.HandleAdd(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleGet(t *testing.T) {
	t.Run("empty cart is a 200 with isEmpty true", func(t *testing.T) {
		handler := newTestHandler(t)

		req := authedRequest(http.MethodGet, "/cart", "", "cust-1")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["isEmpty"] != true {
			t.Fatalf("expected isEmpty true, got %v", body["isEmpty"])
		}
		if body["totalCost"] != "0" {
			t.Fatalf("expected totalCost 0, got %v", body["totalCost"])
		}
	})
}

func TestHandler_HandleUpdate(t *testing.T) {
	t.Run("update on a missing cart is a 404", func(t *testing.T) {
		handler := newTestHandler(t)

		req := authedRequest(http.MethodPut, "/cart/update",
			`{"productId":"p1","size":"M","color":"red","quantity":2}`, "cust-1")
		rec := httptest.NewRecorder()

		handler.HandleUpdate(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("quantity above stock is a 400 naming the available count", func(t *testing.T) {
		handler := newTestHandler(t)

		add := authedRequest(http.MethodPost, "/cart/add",
			`{"productId":"p1","quantity":2,"size":"M","color":"red"}`, "cust-1")
		handler.HandleAdd(httptest.NewRecorder(), add)

		req := authedRequest(http.MethodPut, "/cart/update",
			`{"productId":"p1","size":"M","color":"red","quantity":9}`, "cust-1")
		rec := httptest.NewRecorder()

		handler.HandleUpdate(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["error"] != "only 5 left in stock" {
			t.Fatalf("unexpected error message: %v", body["error"])
		}
	})
}

func TestHandler_HandleRemove(t *testing.T) {
	handler := newTestHandler(t)

	add := authedRequest(http.MethodPost, "/cart/add",
		`{"productId":"p1","quantity":2,"size":"M","color":"red"}`, "cust-1")
	handler.HandleAdd(httptest.NewRecorder(), add)

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /cart/{productId}", handler.HandleRemove)

	req := authedRequest(http.MethodDelete, "/cart/p1?size=M&color=red", "", "cust-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["totalCost"] != "0" {
		t.Fatalf("expected empty cart total 0, got %v", body["totalCost"])
	}
}

func TestHandler_HandleClear(t *testing.T) {
	handler := newTestHandler(t)

	req := authedRequest(http.MethodDelete, "/cart", "", "cust-1")
	rec := httptest.NewRecorder()

	handler.HandleClear(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
