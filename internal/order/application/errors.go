package application

import (
	"errors"
	"fmt"

	invdomain "miniecom/internal/inventory/domain"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("order not found")
	// ErrLedgerUnavailable marks transport-level failures talking to the
	// inventory ledger. Unlike a stock rejection, these are retryable.
	ErrLedgerUnavailable = errors.New("inventory ledger unavailable")
	// ErrPersistence marks an order-store write failure after all
	// reservations succeeded. Retryable from the caller's point of view.
	ErrPersistence = errors.New("order persistence failed")
)

// PlacementError is the structured failure of an order-placement attempt:
// which item broke the saga, why, and whether resubmitting can help.
type PlacementError struct {
	ProductID string
	Err       error
}

func (e *PlacementError) Error() string {
	if e.ProductID == "" {
		return fmt.Sprintf("could not create order: %v", e.Err)
	}
	return fmt.Sprintf("could not create order: item %s: %v", e.ProductID, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }

// Retryable distinguishes transient failures (ledger unreachable, store
// write failed) from terminal ones (unknown product, not enough stock).
func (e *PlacementError) Retryable() bool {
	return errors.Is(e.Err, ErrLedgerUnavailable) || errors.Is(e.Err, ErrPersistence)
}

// IsTerminalStockFailure reports whether err is a business rejection from
// the ledger rather than an infrastructure problem.
func IsTerminalStockFailure(err error) bool {
	return errors.Is(err, invdomain.ErrInsufficientStock) || errors.Is(err, invdomain.ErrNotFound)
}
