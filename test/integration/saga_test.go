package integration

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	invdomain "miniecom/internal/inventory/domain"
	invpg "miniecom/internal/inventory/infrastructure/postgres"
	orderapp "miniecom/internal/order/application"
	"miniecom/internal/order/domain"
	orderpg "miniecom/internal/order/infrastructure/postgres"
	proddomain "miniecom/internal/product/domain"
	prodpg "miniecom/internal/product/infrastructure/postgres"
)

// These tests spin up real containers. Run them with INTEGRATION=1 and a
// working Docker daemon.
func setupEnv(t *testing.T) (*Env, *pgxpool.Pool) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run container tests")
	}

	ctx := context.Background()
	env, err := Setup(ctx)
	if err != nil {
		t.Fatalf("container setup: %v", err)
	}
	t.Cleanup(func() { env.Teardown(context.Background()) })

	pool, err := pgxpool.New(ctx, env.PGURL)
	if err != nil {
		t.Fatalf("pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return env, pool
}

func TestInventoryRepositoryRoundTrip(t *testing.T) {
	_, pool := setupEnv(t)
	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)

	repo := invpg.NewRepository(log, pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	if _, err := repo.SetQuantity(ctx, "P1", 10); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}

	entry, err := repo.Reserve(ctx, "P1", "o1", 4)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if entry.AvailableQty != 6 {
		t.Errorf("expected available 6, got %d", entry.AvailableQty)
	}

	// Same order id again: idempotent, no second decrement.
	entry, err = repo.Reserve(ctx, "P1", "o1", 4)
	if err != nil {
		t.Fatalf("duplicate Reserve: %v", err)
	}
	if entry.AvailableQty != 6 || len(entry.Reservations) != 1 {
		t.Errorf("duplicate reserve mutated state: %+v", entry)
	}

	_, err = repo.Reserve(ctx, "P1", "o2", 100)
	var insufficient *invdomain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 6 {
		t.Errorf("expected available 6 in rejection, got %d", insufficient.Available)
	}

	entry, released, err := repo.Release(ctx, "P1", "o1")
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !released || entry.AvailableQty != 10 {
		t.Errorf("expected release to restore 10, got released=%v qty=%d", released, entry.AvailableQty)
	}

	_, released, err = repo.Release(ctx, "P1", "o1")
	if err != nil {
		t.Fatalf("duplicate Release: %v", err)
	}
	if released {
		t.Error("duplicate release must be a no-op")
	}

	// Adjust is the administrative correction path and has no floor: it
	// may drive the balance negative, unlike reserve.
	entry, err = repo.Adjust(ctx, "P1", -25)
	if err != nil {
		t.Fatalf("Adjust below zero: %v", err)
	}
	if entry.AvailableQty != -15 {
		t.Errorf("expected available -15, got %d", entry.AvailableQty)
	}
}

func TestOrderRepositoryAndSagaLog(t *testing.T) {
	_, pool := setupEnv(t)
	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)

	repo := orderpg.NewRepository(log, pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	sagas := orderpg.NewSagaStore(pool)

	items := []domain.OrderItem{
		{ProductID: "P1", Qty: 2, UnitPriceCents: 1000},
		{ProductID: "P2", Qty: 1, UnitPriceCents: 500},
	}
	order := domain.NewOrder("ord-1", "u1", items)

	intent := domain.SagaIntent{OrderID: order.ID, UserID: "u1", Items: items, State: domain.SagaPending}
	if err := sagas.Begin(ctx, intent); err != nil {
		t.Fatalf("saga Begin: %v", err)
	}

	if err := repo.SaveWithOutbox(ctx, order, "OrderCreated", []byte(`{"orderId":"ord-1"}`), ""); err != nil {
		t.Fatalf("SaveWithOutbox: %v", err)
	}
	if err := sagas.MarkState(ctx, order.ID, domain.SagaCompleted); err != nil {
		t.Fatalf("MarkState: %v", err)
	}

	got, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TotalCents != 2500 || len(got.Items) != 2 {
		t.Errorf("unexpected stored order: %+v", got)
	}
	if got.Items[0].ProductID != "P1" {
		t.Errorf("items must come back in insertion order, got %+v", got.Items)
	}

	// The outbox row written in the same transaction must be lockable.
	ob := orderpg.NewOutboxStore(log, pool)
	events, err := ob.LockBatch(ctx, "relay-test", 10, time.Minute)
	if err != nil {
		t.Fatalf("LockBatch: %v", err)
	}
	if len(events) != 1 || events[0].Type != "OrderCreated" {
		t.Fatalf("expected one OrderCreated outbox event, got %+v", events)
	}
	if err := ob.MarkSent(ctx, []int64{events[0].ID}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	events, err = ob.LockBatch(ctx, "relay-test", 10, time.Minute)
	if err != nil {
		t.Fatalf("second LockBatch: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("sent events must not be re-locked, got %+v", events)
	}

	stale, err := sagas.ListStale(ctx, time.Now().UTC().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("completed saga must not be listed stale, got %+v", stale)
	}

	// Listing is most-recently-created first, regardless of insertion
	// order.
	older := domain.NewOrder("ord-0", "u1", items)
	older.CreatedAt = order.CreatedAt.Add(-time.Hour)
	newer := domain.NewOrder("ord-2", "u1", items)
	newer.CreatedAt = order.CreatedAt.Add(time.Hour)
	if err := repo.SaveWithOutbox(ctx, newer, "OrderCreated", []byte(`{}`), ""); err != nil {
		t.Fatalf("save newer: %v", err)
	}
	if err := repo.SaveWithOutbox(ctx, older, "OrderCreated", []byte(`{}`), ""); err != nil {
		t.Fatalf("save older: %v", err)
	}
	list, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(list))
	}
	for i, want := range []string{"ord-2", "ord-1", "ord-0"} {
		if list[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].ID)
		}
	}

	deleted, err := repo.Delete(ctx, order.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.ID != order.ID {
		t.Errorf("expected deleted order %s, got %s", order.ID, deleted.ID)
	}
	if _, err := repo.Get(ctx, order.ID); !errors.Is(err, orderapp.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestProductRepositoryMetaRoundTrip(t *testing.T) {
	_, pool := setupEnv(t)
	ctx := context.Background()

	repo := prodpg.NewRepository(slog.New(slog.DiscardHandler), pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := proddomain.Product{
		ID:         "prod-1",
		Name:       "Widget",
		PriceCents: 1999,
		Currency:   "USD",
		Meta:       map[string]any{"color": "red", "weight_g": float64(120)},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, "prod-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Meta["color"] != "red" || got.Meta["weight_g"] != float64(120) {
		t.Errorf("meta must survive the round trip, got %v", got.Meta)
	}

	list, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Meta["color"] != "red" {
		t.Errorf("unexpected listing: %+v", list)
	}
}
