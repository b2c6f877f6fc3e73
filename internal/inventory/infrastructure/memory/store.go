package memory

import (
	"context"
	"sync"
	"time"

	"miniecom/internal/inventory/domain"
)

// Store is an in-process StockStore. A single mutex serializes every
// mutation, which gives the same check-and-decrement atomicity the
// postgres implementation gets from its guarded UPDATE.
type Store struct {
	mu      sync.Mutex
	entries map[string]*domain.StockEntry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*domain.StockEntry)}
}

func (s *Store) SetQuantity(_ context.Context, productID string, qty int64) (domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[productID]
	if !ok {
		e = &domain.StockEntry{ProductID: productID}
		s.entries[productID] = e
	}
	e.AvailableQty = qty
	e.UpdatedAt = time.Now().UTC()
	return snapshot(e), nil
}

func (s *Store) Adjust(_ context.Context, productID string, delta int64) (domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[productID]
	if !ok {
		return domain.StockEntry{}, domain.ErrNotFound
	}
	e.AvailableQty += delta
	e.UpdatedAt = time.Now().UTC()
	return snapshot(e), nil
}

func (s *Store) Get(_ context.Context, productID string) (domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[productID]
	if !ok {
		return domain.StockEntry{}, domain.ErrNotFound
	}
	return snapshot(e), nil
}

func (s *Store) Reserve(_ context.Context, productID, orderID string, qty int64) (domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[productID]
	if !ok {
		return domain.StockEntry{}, domain.ErrNotFound
	}
	if _, held := e.FindReservation(orderID); held {
		return snapshot(e), nil
	}
	if e.AvailableQty < qty {
		return domain.StockEntry{}, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: e.AvailableQty,
		}
	}

	e.AvailableQty -= qty
	e.Reservations = append(e.Reservations, domain.Reservation{
		OrderID:   orderID,
		Qty:       qty,
		CreatedAt: time.Now().UTC(),
	})
	e.UpdatedAt = time.Now().UTC()
	return snapshot(e), nil
}

func (s *Store) Release(_ context.Context, productID, orderID string) (domain.StockEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[productID]
	if !ok {
		return domain.StockEntry{}, false, domain.ErrNotFound
	}

	for i, r := range e.Reservations {
		if r.OrderID == orderID {
			e.AvailableQty += r.Qty
			e.Reservations = append(e.Reservations[:i], e.Reservations[i+1:]...)
			e.UpdatedAt = time.Now().UTC()
			return snapshot(e), true, nil
		}
	}
	return snapshot(e), false, nil
}

func snapshot(e *domain.StockEntry) domain.StockEntry {
	out := *e
	out.Reservations = append([]domain.Reservation(nil), e.Reservations...)
	return out
}
