package order

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-garment/internal/events"
	"github.com/noah-isme/backend-garment/internal/repo"
)

// AdvanceNotifier moves the tracked order forward once its settlement batch is
// finalized. Failures are logged, never propagated: the sale already committed.
type AdvanceNotifier struct {
	Tracker Tracker
	Logger  zerolog.Logger
}

// Notify implements events.Notifier.
func (n *AdvanceNotifier) Notify(ctx context.Context, event repo.DomainEvent) error {
	if n == nil || n.Tracker == nil {
		return nil
	}
	if event.Topic != events.TopicBatchFinalized {
		return nil
	}
	var payload struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.Logger.Error().Err(err).Str("topic", event.Topic).Msg("order_advance_bad_payload")
		return nil
	}
	orderID := strings.TrimSpace(payload.OrderID)
	if orderID == "" {
		return nil
	}
	if err := n.Tracker.Advance(ctx, orderID, StatusSettled); err != nil {
		n.Logger.Error().Err(err).Str("order_id", orderID).Msg("order_advance_failed")
	}
	return nil
}
