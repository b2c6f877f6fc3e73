package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"miniecom/internal/inventory/application"
	"miniecom/internal/inventory/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", healthz)
	r.Post("/inventory", h.setQuantity)
	r.Get("/inventory/{productId}", h.get)
	r.Put("/inventory/{productId}", h.adjust)
	r.Post("/inventory/{productId}/reserve", h.reserve)
	r.Post("/inventory/{productId}/release", h.release)
	return r
}

type setQuantityReq struct {
	ProductID string `json:"productId"`
	Qty       int64  `json:"qty"`
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId required")
		return
	}

	entry, err := h.service.SetQuantity(r.Context(), req.ProductID, req.Qty)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type adjustReq struct {
	Delta int64 `json:"delta"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	entry, err := h.service.Adjust(r.Context(), chi.URLParam(r, "productId"), req.Delta)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type reserveReq struct {
	OrderID string `json:"orderId"`
	Qty     int64  `json:"qty"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.OrderID == "" || req.Qty <= 0 {
		writeError(w, http.StatusBadRequest, "orderId and qty required")
		return
	}

	entry, err := h.service.Reserve(r.Context(), chi.URLParam(r, "productId"), req.OrderID, req.Qty)
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":         "insufficient_stock",
				"available_qty": insufficient.Available,
			})
			return
		}
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "inventory": entry})
}

type releaseReq struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	var req releaseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId required")
		return
	}

	entry, released, err := h.service.Release(r.Context(), chi.URLParam(r, "productId"), req.OrderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !released {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "no reservation"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "inventory": entry})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, application.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid request")
	default:
		h.log.Error("inventory request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
