package invoice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-garment/internal/obs"
	"github.com/noah-isme/backend-garment/internal/repo"
)

// Querier lists the queries the worker needs.
type Querier interface {
	GetBatchByID(ctx context.Context, id pgtype.UUID) (repo.Batch, error)
	ListSaleLinesByBatch(ctx context.Context, batchID pgtype.UUID) ([]repo.SaleLine, error)
	SetBatchInvoiceURL(ctx context.Context, id pgtype.UUID, url string) error
}

// Worker consumes invoice tasks, renders the document through the external
// generator and stores the resulting reference on the batch. It runs strictly
// outside the checkout transaction; its failures are retried by asynq and
// never surface to the sale.
type Worker struct {
	Q      Querier
	Gen    Generator
	Blobs  BlobStore
	Logger zerolog.Logger
}

// HandleGenerate processes one invoice:generate task.
func (w Worker) HandleGenerate(ctx context.Context, t *asynq.Task) error {
	var payload GeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// malformed payloads can never succeed; drop instead of retrying
		w.Logger.Error().Err(err).Msg("invoice_payload_malformed")
		return nil
	}
	parsed, err := uuid.Parse(payload.BatchID)
	if err != nil {
		w.Logger.Error().Err(err).Str("batch_id", payload.BatchID).Msg("invoice_batch_id_invalid")
		return nil
	}
	batchID := pgtype.UUID{Bytes: parsed, Valid: true}

	b, err := w.Q.GetBatchByID(ctx, batchID)
	if err != nil {
		return fmt.Errorf("invoice: load batch: %w", err)
	}
	lines, err := w.Q.ListSaleLinesByBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("invoice: load lines: %w", err)
	}
	doc, err := w.Gen.Render(ctx, b, lines)
	if err != nil {
		w.Logger.Error().Err(err).Str("batch_number", b.BatchNumber).Msg("invoice_render_failed")
		recordGeneration("failed")
		return fmt.Errorf("invoice: render: %w", err)
	}
	url, err := w.Blobs.Store(ctx, doc, b.BatchNumber)
	if err != nil {
		w.Logger.Error().Err(err).Str("batch_number", b.BatchNumber).Msg("invoice_store_failed")
		recordGeneration("failed")
		return fmt.Errorf("invoice: store: %w", err)
	}
	if err := w.Q.SetBatchInvoiceURL(ctx, batchID, url); err != nil {
		recordGeneration("failed")
		return fmt.Errorf("invoice: save url: %w", err)
	}
	w.Logger.Info().Str("batch_number", b.BatchNumber).Str("url", url).Msg("invoice_generated")
	recordGeneration("success")
	return nil
}

func recordGeneration(result string) {
	if obs.InvoiceGenerationTotal != nil {
		obs.InvoiceGenerationTotal.WithLabelValues(result).Inc()
	}
}
