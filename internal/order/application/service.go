package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"miniecom/internal/order/domain"
)

const listLimit = 100

// Service drives the order-placement saga: reserve every line item against
// the inventory ledger in caller order, then persist the order; on any
// reservation or persistence failure, release whatever was reserved and
// report the original failure.
type Service struct {
	log    *slog.Logger
	repo   OrderRepository
	sagas  SagaLog
	inv    InventoryClient
	tracer trace.Tracer
}

func NewService(log *slog.Logger, repo OrderRepository, sagas SagaLog, inv InventoryClient) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		sagas:  sagas,
		inv:    inv,
		tracer: otel.Tracer("order-service"),
	}
}

func (s *Service) PlaceOrder(ctx context.Context, userID string, items []domain.OrderItem, traceparent string) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder")
	defer span.End()

	if userID == "" || len(items) == 0 {
		return domain.Order{}, ErrInvalidRequest
	}
	for _, item := range items {
		if item.ProductID == "" || item.Qty <= 0 {
			return domain.Order{}, ErrInvalidRequest
		}
	}

	// The order id is minted before the first reservation call: it is the
	// idempotency key for every reserve/release belonging to this attempt.
	orderID := uuid.NewString()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.Int("order.items", len(items)))

	order := domain.NewOrder(orderID, userID, items)

	// Durable intent first, so a crash mid-saga leaves a pending record
	// the reconciler can unwind instead of orphaned reservations.
	intent := domain.SagaIntent{
		OrderID: orderID,
		UserID:  userID,
		Items:   items,
		State:   domain.SagaPending,
	}
	if err := s.sagas.Begin(ctx, intent); err != nil {
		return domain.Order{}, &PlacementError{Err: fmt.Errorf("%w: %v", ErrPersistence, err)}
	}

	reserved := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if err := s.inv.Reserve(ctx, item.ProductID, orderID, item.Qty); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reservation failed")
			s.log.Warn("reservation failed, compensating",
				"order_id", orderID, "product_id", item.ProductID, "reserved_so_far", len(reserved), "err", err)

			s.compensate(ctx, orderID, reserved)
			s.markSaga(ctx, orderID, domain.SagaCompensated)
			return domain.Order{}, &PlacementError{ProductID: item.ProductID, Err: err}
		}
		reserved = append(reserved, item)
	}

	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalCents: order.TotalCents,
		Items:      order.Items,
	})
	if err != nil {
		s.compensate(ctx, orderID, reserved)
		s.markSaga(ctx, orderID, domain.SagaCompensated)
		return domain.Order{}, &PlacementError{Err: fmt.Errorf("%w: %v", ErrPersistence, err)}
	}

	if err := s.repo.SaveWithOutbox(ctx, order, "OrderCreated", payload, traceparent); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		s.log.Error("order persistence failed, compensating", "order_id", orderID, "err", err)

		// Full compensation: the order must never exist without its
		// reservations, and never the other way around either.
		s.compensate(ctx, orderID, reserved)
		s.markSaga(ctx, orderID, domain.SagaCompensated)
		return domain.Order{}, &PlacementError{Err: fmt.Errorf("%w: %v", ErrPersistence, err)}
	}

	s.markSaga(ctx, orderID, domain.SagaCompleted)
	s.log.Info("order created", "order_id", orderID, "user_id", userID, "total_cents", order.TotalCents)
	return order, nil
}

// compensate releases every reserved item, best-effort: a failed release is
// logged and skipped, never escalated. Each release is idempotent, so the
// reconciler can retry the whole set later.
func (s *Service) compensate(ctx context.Context, orderID string, reserved []domain.OrderItem) {
	ctx, span := s.tracer.Start(ctx, "CompensateReservations")
	defer span.End()

	for _, item := range reserved {
		if err := s.inv.Release(ctx, item.ProductID, orderID); err != nil {
			span.RecordError(err)
			s.log.Error("compensation release failed",
				"order_id", orderID, "product_id", item.ProductID, "err", err)
		}
	}
}

func (s *Service) markSaga(ctx context.Context, orderID string, state domain.SagaState) {
	if err := s.sagas.MarkState(ctx, orderID, state); err != nil {
		// The reconciler resolves a stale pending record against the
		// order store before touching any reservation.
		s.log.Error("saga state update failed", "order_id", orderID, "state", state, "err", err)
	}
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.repo.List(ctx, listLimit)
}

func (s *Service) Delete(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Delete(ctx, id)
}
