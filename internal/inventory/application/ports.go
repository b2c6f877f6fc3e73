package application

import (
	"context"

	"miniecom/internal/inventory/domain"
)

// StockStore is the ledger's storage contract. Implementations must make
// Reserve a single atomic check-and-decrement: two concurrent reservations
// for the last units of a product may not both succeed.
type StockStore interface {
	// SetQuantity upserts the entry, overwriting available quantity.
	// Existing reservations are untouched.
	SetQuantity(ctx context.Context, productID string, qty int64) (domain.StockEntry, error)

	// Adjust adds delta (either sign) to available quantity. It has no
	// floor check: negative balances are allowed on this path.
	Adjust(ctx context.Context, productID string, delta int64) (domain.StockEntry, error)

	// Get returns the entry or domain.ErrNotFound.
	Get(ctx context.Context, productID string) (domain.StockEntry, error)

	// Reserve is idempotent per (productID, orderID): a repeated call
	// returns the current entry without touching state. Otherwise it
	// atomically moves qty from available into a new reservation, or
	// fails with domain.ErrNotFound / *domain.InsufficientStockError
	// leaving no partial mutation behind.
	Reserve(ctx context.Context, productID, orderID string, qty int64) (domain.StockEntry, error)

	// Release removes the order's reservation and credits its quantity
	// back. A missing reservation is a no-op success.
	Release(ctx context.Context, productID, orderID string) (domain.StockEntry, bool, error)
}
