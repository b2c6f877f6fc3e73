package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"miniecom/internal/order/application"
	"miniecom/internal/order/domain"
	"miniecom/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			total_cents BIGINT NOT NULL,
			status      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS order_items (
			order_id         TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position         INT NOT NULL,
			product_id       TEXT NOT NULL,
			qty              BIGINT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			PRIMARY KEY (order_id, position)
		);
		CREATE TABLE IF NOT EXISTS order_sagas (
			order_id   TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			items      JSONB NOT NULL,
			state      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS outbox (
			id             BIGSERIAL PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id   TEXT NOT NULL,
			type           TEXT NOT NULL,
			payload        BYTEA NOT NULL,
			traceparent    TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'pending',
			relay_id       TEXT,
			lease_until    TIMESTAMPTZ,
			retry_count    INT NOT NULL DEFAULT 0,
			last_error     TEXT,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_cents, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.UserID, o.TotalCents, o.Status, o.CreatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, position, product_id, qty, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, item.ProductID, item.Qty, item.UnitPriceCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')`,
		"order", o.ID, eventType, payload, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, total_cents, status, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, application.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.itemsFor(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, total_cents, status, created_at
		FROM orders ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (domain.Order, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	if ct.RowsAffected() == 0 {
		return domain.Order{}, application.ErrNotFound
	}
	return o, nil
}

func (r *Repository) itemsFor(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, qty, unit_price_cents
		FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SagaStore is the postgres SagaLog.
type SagaStore struct {
	pool *pgxpool.Pool
}

func NewSagaStore(pool *pgxpool.Pool) *SagaStore {
	return &SagaStore{pool: pool}
}

func (s *SagaStore) Begin(ctx context.Context, intent domain.SagaIntent) error {
	items, err := json.Marshal(intent.Items)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO order_sagas (order_id, user_id, items, state, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		intent.OrderID, intent.UserID, items, domain.SagaPending, time.Now().UTC())
	return err
}

func (s *SagaStore) MarkState(ctx context.Context, orderID string, state domain.SagaState) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE order_sagas SET state = $2, updated_at = $3 WHERE order_id = $1`,
		orderID, state, time.Now().UTC())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("saga intent not found")
	}
	return nil
}

func (s *SagaStore) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.SagaIntent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_id, user_id, items, state, updated_at
		FROM order_sagas
		WHERE state = $1 AND updated_at < $2
		ORDER BY updated_at LIMIT $3`,
		domain.SagaPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []domain.SagaIntent
	for rows.Next() {
		var intent domain.SagaIntent
		var items []byte
		if err := rows.Scan(&intent.OrderID, &intent.UserID, &items, &intent.State, &intent.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &intent.Items); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

// OutboxStore locks and settles outbox batches for the relay. A batch is
// claimed under a lease so a crashed relay's rows become eligible again.
type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, traceparent, created_at
		FROM outbox
		WHERE status = 'pending' OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1`, batchSize)
	if err != nil {
		return nil, err
	}

	var events []outbox.Event
	for rows.Next() {
		var ev outbox.Event
		if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &ev.Traceparent, &ev.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		events = append(events, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	_, err = tx.Exec(ctx, `
		UPDATE outbox SET status = 'in_progress', relay_id = $1, lease_until = now() + $2::interval
		WHERE id = ANY($3)`, relayID, lease.String(), ids)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status = 'sent' WHERE id = ANY($1)`, ids)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox SET status = 'failed', last_error = $2, retry_count = retry_count + 1
		WHERE id = $1`, id, errMsg)
	return err
}
