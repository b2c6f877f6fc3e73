package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	invdomain "miniecom/internal/inventory/domain"
	"miniecom/internal/order/application"
)

func newClientAgainst(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(slog.New(slog.DiscardHandler), srv.URL)
}

func TestReserveOK(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	if err := c.Reserve(context.Background(), "P1", "o1", 3); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if gotPath != "/inventory/P1/reserve" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotBody["orderId"] != "o1" || gotBody["qty"].(float64) != 3 {
		t.Errorf("unexpected request body %v", gotBody)
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	c := newClientAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "insufficient_stock", "available_qty": 2})
	})

	err := c.Reserve(context.Background(), "P1", "o1", 5)
	var insufficient *invdomain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 2 || insufficient.Requested != 5 {
		t.Errorf("unexpected error detail: %+v", insufficient)
	}
	if errors.Is(err, application.ErrLedgerUnavailable) {
		t.Error("a stock rejection is not a ledger outage")
	}
}

func TestReserveUnknownProduct(t *testing.T) {
	c := newClientAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	})

	if err := c.Reserve(context.Background(), "ghost", "o1", 1); !errors.Is(err, invdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReserveServerError(t *testing.T) {
	c := newClientAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
	})

	if err := c.Reserve(context.Background(), "P1", "o1", 1); !errors.Is(err, application.ErrLedgerUnavailable) {
		t.Fatalf("expected ErrLedgerUnavailable, got %v", err)
	}
}

func TestReserveConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(slog.New(slog.DiscardHandler), srv.URL)

	if err := c.Reserve(context.Background(), "P1", "o1", 1); !errors.Is(err, application.ErrLedgerUnavailable) {
		t.Fatalf("expected ErrLedgerUnavailable, got %v", err)
	}
}

func TestReleaseOK(t *testing.T) {
	var gotPath string
	c := newClientAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "message": "no reservation"})
	})

	if err := c.Release(context.Background(), "P1", "o1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if gotPath != "/inventory/P1/release" {
		t.Errorf("unexpected path %s", gotPath)
	}
}

func TestReleaseUnknownProduct(t *testing.T) {
	c := newClientAgainst(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	})

	if err := c.Release(context.Background(), "ghost", "o1"); !errors.Is(err, invdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
