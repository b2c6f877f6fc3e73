package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	invdomain "miniecom/internal/inventory/domain"
	"miniecom/internal/order/application"
)

// Client talks to the inventory ledger over its HTTP surface and maps the
// wire-level outcomes onto the orchestrator's error taxonomy.
type Client struct {
	log     *slog.Logger
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

func NewClient(log *slog.Logger, baseURL string) *Client {
	return &Client{
		log:     log,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		tracer: otel.Tracer("inventory-client"),
	}
}

type reserveReq struct {
	OrderID string `json:"orderId"`
	Qty     int64  `json:"qty"`
}

type releaseReq struct {
	OrderID string `json:"orderId"`
}

type errorResp struct {
	Error        string `json:"error"`
	AvailableQty int64  `json:"available_qty"`
}

func (c *Client) Reserve(ctx context.Context, productID, orderID string, qty int64) error {
	ctx, span := c.tracer.Start(ctx, "inventory.Reserve", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	status, body, err := c.post(ctx, productID, "reserve", reserveReq{OrderID: orderID, Qty: qty})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %v", application.ErrLedgerUnavailable, err)
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return invdomain.ErrNotFound
	case http.StatusBadRequest:
		var resp errorResp
		if jsonErr := json.Unmarshal(body, &resp); jsonErr == nil && resp.Error == "insufficient_stock" {
			return &invdomain.InsufficientStockError{
				ProductID: productID,
				Requested: qty,
				Available: resp.AvailableQty,
			}
		}
		return fmt.Errorf("%w: ledger rejected reserve: %s", application.ErrLedgerUnavailable, body)
	default:
		return fmt.Errorf("%w: unexpected status %d", application.ErrLedgerUnavailable, status)
	}
}

func (c *Client) Release(ctx context.Context, productID, orderID string) error {
	ctx, span := c.tracer.Start(ctx, "inventory.Release", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	status, _, err := c.post(ctx, productID, "release", releaseReq{OrderID: orderID})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %v", application.ErrLedgerUnavailable, err)
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return invdomain.ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected status %d", application.ErrLedgerUnavailable, status)
	}
}

func (c *Client) post(ctx context.Context, productID, action string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	endpoint := fmt.Sprintf("%s/inventory/%s/%s", c.baseURL, url.PathEscape(productID), action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}
