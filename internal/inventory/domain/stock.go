package domain

import (
	"errors"
	"fmt"
	"time"
)

// Reservation is a hold against available stock, keyed by the order that
// asked for it. At most one active reservation per (product, order) pair.
type Reservation struct {
	OrderID   string    `json:"orderId"`
	Qty       int64     `json:"qty"`
	CreatedAt time.Time `json:"createdAt"`
}

// StockEntry is the per-product ledger record. AvailableQty plus the sum of
// reservation quantities equals the total stock last set for the product:
// reserving moves quantity from available into held, releasing moves it back.
type StockEntry struct {
	ProductID    string        `json:"productId"`
	AvailableQty int64         `json:"available_qty"`
	Reservations []Reservation `json:"reservations"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// FindReservation returns the active reservation held by orderID, if any.
func (e *StockEntry) FindReservation(orderID string) (Reservation, bool) {
	for _, r := range e.Reservations {
		if r.OrderID == orderID {
			return r, true
		}
	}
	return Reservation{}, false
}

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports a rejected reservation along with the
// quantity still available, so callers can surface it to the user.
type InsufficientStockError struct {
	ProductID string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
