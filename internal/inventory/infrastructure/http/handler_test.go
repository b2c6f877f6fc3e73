package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"miniecom/internal/inventory/application"
	"miniecom/internal/inventory/infrastructure/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := application.NewService(slog.New(slog.DiscardHandler), memory.NewStore())
	srv := httptest.NewServer(NewHandler(slog.New(slog.DiscardHandler), svc).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestSetAndQueryInventory(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/inventory", map[string]any{"productId": "P1", "qty": 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set: expected 200, got %d", resp.StatusCode)
	}
	if body["available_qty"].(float64) != 10 {
		t.Errorf("expected available_qty 10, got %v", body["available_qty"])
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/inventory/P1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if body["productId"] != "P1" {
		t.Errorf("expected productId P1, got %v", body["productId"])
	}
}

func TestSetInventoryRequiresProductID(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/inventory", map[string]any{"qty": 10})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["error"] != "productId required" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestQueryUnknownProduct(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/inventory/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body["error"] != "not_found" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestAdjustInventory(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/inventory", map[string]any{"productId": "P1", "qty": 10})

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/inventory/P1", map[string]any{"delta": -4})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["available_qty"].(float64) != 6 {
		t.Errorf("expected available_qty 6, got %v", body["available_qty"])
	}

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/inventory/ghost", map[string]any{"delta": 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("adjust unknown: expected 404, got %d", resp.StatusCode)
	}
}

func TestReserveAndRelease(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/inventory", map[string]any{"productId": "P1", "qty": 10})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/inventory/P1/reserve", map[string]any{"orderId": "o1", "qty": 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reserve: expected 200, got %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Errorf("expected ok:true, got %v", body)
	}
	inv := body["inventory"].(map[string]any)
	if inv["available_qty"].(float64) != 7 {
		t.Errorf("expected available_qty 7, got %v", inv["available_qty"])
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/inventory/P1/release", map[string]any{"orderId": "o1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("release: expected 200, got %d", resp.StatusCode)
	}
	inv = body["inventory"].(map[string]any)
	if inv["available_qty"].(float64) != 10 {
		t.Errorf("expected available_qty restored to 10, got %v", inv["available_qty"])
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/inventory", map[string]any{"productId": "P1", "qty": 5})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/inventory/P1/reserve", map[string]any{"orderId": "o1", "qty": 50})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["error"] != "insufficient_stock" {
		t.Errorf("expected insufficient_stock, got %v", body["error"])
	}
	if body["available_qty"].(float64) != 5 {
		t.Errorf("expected available_qty 5 in rejection, got %v", body["available_qty"])
	}
}

func TestReserveMissingFields(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/inventory", map[string]any{"productId": "P1", "qty": 5})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/inventory/P1/reserve", map[string]any{"qty": 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing orderId: expected 400, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/inventory/P1/reserve", map[string]any{"orderId": "o1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing qty: expected 400, got %d", resp.StatusCode)
	}
}

func TestReleaseWithoutReservation(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/inventory", map[string]any{"productId": "P1", "qty": 5})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/inventory/P1/release", map[string]any{"orderId": "never"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["message"] != "no reservation" {
		t.Errorf("expected no-reservation message, got %v", body)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/inventory/ghost/release", map[string]any{"orderId": "o1"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("release on unknown product: expected 404, got %d", resp.StatusCode)
	}
}
