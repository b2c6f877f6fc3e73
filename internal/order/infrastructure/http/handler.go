package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"miniecom/internal/order/application"
	"miniecom/internal/order/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", healthz)
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
	return r
}

type placeOrderReq struct {
	UserID string             `json:"userId"`
	Items  []domain.OrderItem `json:"items"`
}

type reservedItem struct {
	ProductID string `json:"productId"`
	Qty       int64  `json:"qty"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	traceparent := r.Header.Get("traceparent")
	if traceparent == "" {
		carrier := propagation.MapCarrier{}
		otel.GetTextMapPropagator().Inject(ctx, carrier)
		traceparent = carrier["traceparent"]
	}

	order, err := h.service.PlaceOrder(ctx, req.UserID, req.Items, traceparent)
	if err != nil {
		h.writePlacementError(w, err)
		return
	}

	reserved := make([]reservedItem, 0, len(order.Items))
	for _, item := range order.Items {
		reserved = append(reserved, reservedItem{ProductID: item.ProductID, Qty: item.Qty})
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": order, "reserved": reserved})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context())
	if err != nil {
		h.log.Error("list orders failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": order})
}

// writePlacementError keeps terminal rejections (bad request, unknown
// product, insufficient stock) on 400 and transient ones (ledger down,
// store write failed) on 500, with a retryable hint either way.
func (h *Handler) writePlacementError(w http.ResponseWriter, err error) {
	if errors.Is(err, application.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, "userId and items required")
		return
	}

	var placement *application.PlacementError
	if errors.As(err, &placement) {
		status := http.StatusBadRequest
		if placement.Retryable() {
			status = http.StatusInternalServerError
		}
		body := map[string]any{
			"error":     "could_not_create_order",
			"details":   placement.Err.Error(),
			"retryable": placement.Retryable(),
		}
		if placement.ProductID != "" {
			body["productId"] = placement.ProductID
		}
		writeJSON(w, status, body)
		return
	}

	h.log.Error("place order failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, application.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order_not_found")
		return
	}
	h.log.Error("order lookup failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
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
