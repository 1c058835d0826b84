package orders

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

type createOrderRequest struct {
	Address domain.Address `json:"address"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), identity.CustomerID, req.Address)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	trackingNumber := r.PathValue("tracking")
	if trackingNumber == "" {
		h.writeError(w, http.StatusBadRequest, "missing tracking number")
		return
	}

	order, err := h.svc.Track(r.Context(), trackingNumber)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

type updateStatusRequest struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	trackingNumber := r.PathValue("tracking")
	if trackingNumber == "" {
		h.writeError(w, http.StatusBadRequest, "missing tracking number")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), trackingNumber, req.Status, req.Location)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	orders, err := h.svc.List(r.Context(), identity.CustomerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError

	switch {
	case errors.As(err, &vErr), errors.Is(err, domain.ErrCartEmpty):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("order operation failed", "error", err)
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
