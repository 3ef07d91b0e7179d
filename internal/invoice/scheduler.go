package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-garment/internal/events"
	"github.com/noah-isme/backend-garment/internal/repo"
)

// Enqueuer is the subset of the asynq client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler turns finalized-batch events into invoice generation tasks. It
// implements events.DeliveryScheduler and ignores every other topic.
type Scheduler struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
}

// Schedule enqueues the invoice task for a finalized batch.
func (s Scheduler) Schedule(ctx context.Context, event repo.DomainEvent) error {
	if event.Topic != events.TopicBatchFinalized {
		return nil
	}
	if s.Client == nil {
		return errors.New("invoice: task client not configured")
	}
	var meta struct {
		BatchNumber string `json:"batchNumber"`
	}
	_ = json.Unmarshal(event.Payload, &meta)
	task, err := NewGenerateTask(uuid.UUID(event.AggregateID.Bytes).String(), meta.BatchNumber)
	if err != nil {
		return err
	}
	opts := []asynq.Option{}
	if s.Queue != "" {
		opts = append(opts, asynq.Queue(s.Queue))
	}
	if s.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(s.MaxRetry))
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("invoice: enqueue: %w", err)
	}
	return nil
}
