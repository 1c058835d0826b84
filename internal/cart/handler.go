package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/threadline/storefront/internal/auth"
	"github.com/threadline/storefront/internal/domain"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.svc.AddItem(r.Context(), identity.CustomerID, req.ProductID, req.Quantity, req.Size, req.Color)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeCart(w, http.StatusCreated, cart)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	cart, err := h.svc.Get(r.Context(), identity.CustomerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"cart":      cart,
		"isEmpty":   cart.IsEmpty(),
		"totalCost": cart.TotalCost(),
	})
}

type updateItemRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.svc.UpdateItem(r.Context(), identity.CustomerID, req.ProductID, req.Quantity, req.Size, req.Color)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeCart(w, http.StatusOK, cart)
}

type updateQuantityRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// HandleUpdateQuantity is the variant-insensitive legacy path.
func (h *Handler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.svc.UpdateQuantityOrRemove(r.Context(), identity.CustomerID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeCart(w, http.StatusOK, cart)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}
	size := r.URL.Query().Get("size")
	color := r.URL.Query().Get("color")

	cart, err := h.svc.RemoveItem(r.Context(), identity.CustomerID, productID, size, color)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeCart(w, http.StatusOK, cart)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	if err := h.svc.Clear(r.Context(), identity.CustomerID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, cart *domain.Cart) {
	h.writeJSON(w, status, map[string]any{
		"cart":      cart,
		"totalCost": cart.TotalCost(),
	})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	var stockErr *domain.InsufficientStockError

	switch {
	case errors.As(err, &vErr),
		errors.As(err, &stockErr),
		errors.Is(err, domain.ErrInvalidSize),
		errors.Is(err, domain.ErrInvalidColor):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrCartItemNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("cart operation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
