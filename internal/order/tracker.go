package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/backend-garment/internal/resilience"
)

// ErrNotFound is returned when the tracker has no record of the order.
var ErrNotFound = errors.New("order: not found")

// Order statuses understood by the tracker.
const (
	StatusPending = "PENDING"
	StatusSettled = "SETTLED"
)

// Info describes an order as reported by the tracking service.
type Info struct {
	OrderID    string `json:"orderId"`
	CustomerID string `json:"customerId"`
	Status     string `json:"status"`
}

// Tracker defines the behaviour required to resolve and advance online orders.
type Tracker interface {
	Lookup(ctx context.Context, orderID string) (Info, error)
	Advance(ctx context.Context, orderID, status string) error
}

// HTTPTracker talks to the external order-tracking service over HTTP.
type HTTPTracker struct {
	BaseURL string
	HTTP    *resilience.HTTPClient
}

// Lookup fetches the order record. A 404 maps to ErrNotFound.
func (t *HTTPTracker) Lookup(ctx context.Context, orderID string) (Info, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Info{}, ErrNotFound
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint(orderID, ""), nil)
	if err != nil {
		return Info{}, err
	}
	resp, err := t.HTTP.Do(ctx, req)
	if err != nil {
		return Info{}, fmt.Errorf("order: lookup %s: %w", orderID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return Info{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("order: lookup %s: unexpected status %s", orderID, resp.Status)
	}
	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Info{}, fmt.Errorf("order: decode lookup response: %w", err)
	}
	if info.OrderID == "" {
		info.OrderID = orderID
	}
	return info, nil
}

// Advance moves the order to the given status.
func (t *HTTPTracker) Advance(ctx context.Context, orderID, status string) error {
	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(orderID, "status"), strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("order: advance %s: %w", orderID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("order: advance %s: unexpected status %s", orderID, resp.Status)
	}
	return nil
}

func (t *HTTPTracker) endpoint(orderID, suffix string) string {
	base := strings.TrimRight(t.BaseURL, "/")
	path := base + "/orders/" + url.PathEscape(orderID)
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}
