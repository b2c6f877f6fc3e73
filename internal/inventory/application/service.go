package application

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"miniecom/internal/inventory/domain"
)

var ErrInvalidRequest = errors.New("invalid request")

// Service fronts the stock ledger: input validation, tracing and logging
// around the store, which owns the concurrency contract.
type Service struct {
	log    *slog.Logger
	store  StockStore
	tracer trace.Tracer
}

func NewService(log *slog.Logger, store StockStore) *Service {
	return &Service{
		log:    log,
		store:  store,
		tracer: otel.Tracer("inventory-service"),
	}
}

func (s *Service) SetQuantity(ctx context.Context, productID string, qty int64) (domain.StockEntry, error) {
	if productID == "" {
		return domain.StockEntry{}, ErrInvalidRequest
	}
	entry, err := s.store.SetQuantity(ctx, productID, qty)
	if err != nil {
		return domain.StockEntry{}, err
	}
	s.log.Info("stock set", "product_id", productID, "qty", qty)
	return entry, nil
}

func (s *Service) Adjust(ctx context.Context, productID string, delta int64) (domain.StockEntry, error) {
	if productID == "" {
		return domain.StockEntry{}, ErrInvalidRequest
	}
	entry, err := s.store.Adjust(ctx, productID, delta)
	if err != nil {
		return domain.StockEntry{}, err
	}
	s.log.Info("stock adjusted", "product_id", productID, "delta", delta, "available", entry.AvailableQty)
	return entry, nil
}

func (s *Service) Get(ctx context.Context, productID string) (domain.StockEntry, error) {
	return s.store.Get(ctx, productID)
}

func (s *Service) Reserve(ctx context.Context, productID, orderID string, qty int64) (domain.StockEntry, error) {
	ctx, span := s.tracer.Start(ctx, "ReserveStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.String("order.id", orderID),
		attribute.Int64("qty", qty),
	)

	if productID == "" || orderID == "" || qty <= 0 {
		return domain.StockEntry{}, ErrInvalidRequest
	}

	entry, err := s.store.Reserve(ctx, productID, orderID, qty)
	if err != nil {
		span.RecordError(err)
		s.log.Warn("reserve rejected", "product_id", productID, "order_id", orderID, "err", err)
		return domain.StockEntry{}, err
	}
	s.log.Info("stock reserved", "product_id", productID, "order_id", orderID, "qty", qty)
	return entry, nil
}

func (s *Service) Release(ctx context.Context, productID, orderID string) (domain.StockEntry, bool, error) {
	ctx, span := s.tracer.Start(ctx, "ReleaseStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.String("order.id", orderID),
	)

	if productID == "" || orderID == "" {
		return domain.StockEntry{}, false, ErrInvalidRequest
	}

	entry, released, err := s.store.Release(ctx, productID, orderID)
	if err != nil {
		span.RecordError(err)
		return domain.StockEntry{}, false, err
	}
	if released {
		s.log.Info("reservation released", "product_id", productID, "order_id", orderID)
	}
	return entry, released, nil
}
