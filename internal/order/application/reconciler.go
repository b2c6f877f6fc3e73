package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"miniecom/internal/order/domain"
	"miniecom/pkg/idempotency"
)

// Reconciler sweeps saga intents stuck in pending past the staleness
// window. Those belong to placement attempts that crashed mid-saga: their
// reservations are orphaned and must be released. An intent whose order
// actually exists (the saga finished but the completed mark was lost)
// is marked completed instead, never released.
type Reconciler struct {
	log      *slog.Logger
	sagas    SagaLog
	repo     OrderRepository
	inv      InventoryClient
	leases   *idempotency.Store
	interval time.Duration
	window   time.Duration
	batch    int
}

func NewReconciler(log *slog.Logger, sagas SagaLog, repo OrderRepository, inv InventoryClient, leases *idempotency.Store, interval, window time.Duration) *Reconciler {
	return &Reconciler{
		log:      log,
		sagas:    sagas,
		repo:     repo,
		inv:      inv,
		leases:   leases,
		interval: interval,
		window:   window,
		batch:    50,
	}
}

func (r *Reconciler) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler stopping")
			return nil
		case <-t.C:
			if err := r.Sweep(ctx); err != nil {
				r.log.Error("reconcile sweep failed", "err", err)
			}
		}
	}
}

// Sweep runs one reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.window)
	stale, err := r.sagas.ListStale(ctx, cutoff, r.batch)
	if err != nil {
		return err
	}

	for _, intent := range stale {
		if !r.acquire(ctx, intent.OrderID) {
			continue
		}
		r.reconcile(ctx, intent)
	}
	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, intent domain.SagaIntent) {
	if _, err := r.repo.Get(ctx, intent.OrderID); err == nil {
		// The order made it: only the completion mark was lost.
		if err := r.sagas.MarkState(ctx, intent.OrderID, domain.SagaCompleted); err != nil {
			r.log.Error("reconcile mark completed failed", "order_id", intent.OrderID, "err", err)
		}
		return
	} else if !errors.Is(err, ErrNotFound) {
		// Can't tell whether the order exists; releasing now could strip
		// a live order of its reservations. Leave it for the next pass.
		r.log.Error("reconcile order lookup failed", "order_id", intent.OrderID, "err", err)
		return
	}

	failed := false
	for _, item := range intent.Items {
		if err := r.inv.Release(ctx, item.ProductID, intent.OrderID); err != nil {
			failed = true
			r.log.Error("reconcile release failed",
				"order_id", intent.OrderID, "product_id", item.ProductID, "err", err)
		}
	}
	if failed {
		// Stay pending so the next sweep retries; release is idempotent.
		return
	}

	if err := r.sagas.MarkState(ctx, intent.OrderID, domain.SagaCompensated); err != nil {
		r.log.Error("reconcile mark compensated failed", "order_id", intent.OrderID, "err", err)
		return
	}
	r.log.Info("orphaned saga compensated", "order_id", intent.OrderID, "items", len(intent.Items))
}

// acquire takes the cross-replica sweep lease for one order. Without a
// lease store every sweep proceeds; release idempotency keeps duplicate
// sweeps harmless, the lease just avoids the redundant work.
func (r *Reconciler) acquire(ctx context.Context, orderID string) bool {
	if r.leases == nil {
		return true
	}
	ok, err := r.leases.Acquire(ctx, r.leases.SweepKey(orderID))
	if err != nil {
		r.log.Warn("sweep lease unavailable, proceeding", "order_id", orderID, "err", err)
		return true
	}
	return ok
}
