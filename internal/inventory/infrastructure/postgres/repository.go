package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"miniecom/internal/inventory/domain"
)

// Repository is the postgres StockStore. The reserve path relies on a
// guarded UPDATE (available_qty >= qty) so the check and the decrement are
// one statement: concurrent reservations for the same product serialize on
// the row and the loser of a race sees the already-decremented balance.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// EnsureSchema creates the ledger tables when absent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS inventory (
			product_id    TEXT PRIMARY KEY,
			available_qty BIGINT NOT NULL DEFAULT 0,
			updated_at    TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS reservations (
			product_id TEXT NOT NULL REFERENCES inventory(product_id),
			order_id   TEXT NOT NULL,
			qty        BIGINT NOT NULL CHECK (qty > 0),
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (product_id, order_id)
		)`)
	return err
}

func (r *Repository) SetQuantity(ctx context.Context, productID string, qty int64) (domain.StockEntry, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory (product_id, available_qty, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET available_qty = $2, updated_at = $3`,
		productID, qty, time.Now().UTC())
	if err != nil {
		return domain.StockEntry{}, err
	}
	return r.Get(ctx, productID)
}

func (r *Repository) Adjust(ctx context.Context, productID string, delta int64) (domain.StockEntry, error) {
	// No floor guard here: adjust is the administrative correction path
	// and may drive the balance negative.
	ct, err := r.pool.Exec(ctx, `
		UPDATE inventory SET available_qty = available_qty + $2, updated_at = $3
		WHERE product_id = $1`,
		productID, delta, time.Now().UTC())
	if err != nil {
		return domain.StockEntry{}, err
	}
	if ct.RowsAffected() == 0 {
		return domain.StockEntry{}, domain.ErrNotFound
	}
	return r.Get(ctx, productID)
}

func (r *Repository) Get(ctx context.Context, productID string) (domain.StockEntry, error) {
	var e domain.StockEntry
	err := r.pool.QueryRow(ctx,
		`SELECT product_id, available_qty, updated_at FROM inventory WHERE product_id = $1`,
		productID).Scan(&e.ProductID, &e.AvailableQty, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StockEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StockEntry{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, qty, created_at FROM reservations WHERE product_id = $1 ORDER BY created_at`,
		productID)
	if err != nil {
		return domain.StockEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.OrderID, &res.Qty, &res.CreatedAt); err != nil {
			return domain.StockEntry{}, err
		}
		e.Reservations = append(e.Reservations, res)
	}
	return e, rows.Err()
}

func (r *Repository) Reserve(ctx context.Context, productID, orderID string, qty int64) (domain.StockEntry, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.StockEntry{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Idempotency probe: a conflicting row means this order already holds
	// a reservation on the product, so the call is a no-op success.
	ct, err := tx.Exec(ctx, `
		INSERT INTO reservations (product_id, order_id, qty, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, order_id) DO NOTHING`,
		productID, orderID, qty, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.StockEntry{}, domain.ErrNotFound
		}
		return domain.StockEntry{}, err
	}
	if ct.RowsAffected() == 0 {
		if err := tx.Commit(ctx); err != nil {
			return domain.StockEntry{}, err
		}
		return r.Get(ctx, productID)
	}

	ct, err = tx.Exec(ctx, `
		UPDATE inventory SET available_qty = available_qty - $2, updated_at = $3
		WHERE product_id = $1 AND available_qty >= $2`,
		productID, qty, time.Now().UTC())
	if err != nil {
		return domain.StockEntry{}, err
	}
	if ct.RowsAffected() == 0 {
		// Guard rejected: the tx rollback also discards the reservation
		// row, so a failed attempt leaves no trace.
		var available int64
		err := tx.QueryRow(ctx,
			`SELECT available_qty FROM inventory WHERE product_id = $1`, productID).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StockEntry{}, domain.ErrNotFound
		}
		if err != nil {
			return domain.StockEntry{}, err
		}
		return domain.StockEntry{}, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: available,
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StockEntry{}, err
	}
	return r.Get(ctx, productID)
}

func (r *Repository) Release(ctx context.Context, productID, orderID string) (domain.StockEntry, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.StockEntry{}, false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var qty int64
	err = tx.QueryRow(ctx, `
		DELETE FROM reservations WHERE product_id = $1 AND order_id = $2
		RETURNING qty`,
		productID, orderID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		// Nothing held: releasing is retry-safe, report success.
		if err := tx.Commit(ctx); err != nil {
			return domain.StockEntry{}, false, err
		}
		entry, getErr := r.Get(ctx, productID)
		return entry, false, getErr
	}
	if err != nil {
		return domain.StockEntry{}, false, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE inventory SET available_qty = available_qty + $2, updated_at = $3
		WHERE product_id = $1`,
		productID, qty, time.Now().UTC())
	if err != nil {
		return domain.StockEntry{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.StockEntry{}, false, err
	}

	entry, err := r.Get(ctx, productID)
	return entry, true, err
}

func isForeignKeyViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23503"
}
