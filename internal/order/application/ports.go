package application

import (
	"context"
	"time"

	"miniecom/internal/order/domain"
)

type OrderRepository interface {
	// SaveWithOutbox persists the order and an outbox event in one
	// transaction.
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// List returns orders most-recently-created first, at most limit.
	List(ctx context.Context, limit int) ([]domain.Order, error)
	Delete(ctx context.Context, id string) (domain.Order, error)
}

type SagaLog interface {
	Begin(ctx context.Context, intent domain.SagaIntent) error
	MarkState(ctx context.Context, orderID string, state domain.SagaState) error
	// ListStale returns pending intents untouched since the cutoff.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.SagaIntent, error)
}

// InventoryClient is the orchestrator's view of the stock ledger. Both
// calls are idempotent per (productID, orderID) on the ledger side.
type InventoryClient interface {
	Reserve(ctx context.Context, productID, orderID string, qty int64) error
	Release(ctx context.Context, productID, orderID string) error
}
