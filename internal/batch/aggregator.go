package batch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-garment/internal/repo"
)

// Sale-type tags carried on a batch.
const (
	KindOffline = "OFFLINE"
	KindOnline  = "ONLINE"
)

// ErrUnknownKind is returned for a sale type outside the supported set.
var ErrUnknownKind = errors.New("unknown sale type")

// Querier lists the batch queries used by the aggregator.
type Querier interface {
	NextInvoiceNumber(ctx context.Context, kind string) (int64, error)
	InsertBatch(ctx context.Context, arg repo.InsertBatchParams) (repo.Batch, error)
	CloseBatch(ctx context.Context, arg repo.CloseBatchParams) error
	DeleteBatch(ctx context.Context, id pgtype.UUID) error
}

// Aggregator opens, finalizes and discards checkout batches.
type Aggregator struct {
	Now  func() time.Time
	Rand io.Reader
}

func (a Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a Aggregator) rand() io.Reader {
	if a.Rand != nil {
		return a.Rand
	}
	return rand.Reader
}

// OpenParams describes a batch to open.
type OpenParams struct {
	Kind          string
	GSTType       string
	CustomerName  string
	CustomerPhone string
	Biller        string
	Location      string
}

// Open creates a batch with zero totals, a fresh time-derived batch number and
// the next invoice number for the batch kind.
func (a Aggregator) Open(ctx context.Context, q Querier, arg OpenParams) (repo.Batch, error) {
	kind := strings.ToUpper(strings.TrimSpace(arg.Kind))
	if kind != KindOffline && kind != KindOnline {
		return repo.Batch{}, fmt.Errorf("%w: %s", ErrUnknownKind, arg.Kind)
	}
	invoiceNumber, err := q.NextInvoiceNumber(ctx, kind)
	if err != nil {
		return repo.Batch{}, fmt.Errorf("next invoice number: %w", err)
	}
	number, err := a.BatchNumber()
	if err != nil {
		return repo.Batch{}, err
	}
	params := repo.InsertBatchParams{
		BatchNumber:   number,
		InvoiceNumber: invoiceNumber,
		Kind:          kind,
		CustomerName:  arg.CustomerName,
		Biller:        arg.Biller,
		Location:      arg.Location,
	}
	if gst := strings.TrimSpace(arg.GSTType); gst != "" {
		params.GSTType = pgtype.Text{String: gst, Valid: true}
	}
	if phone := strings.TrimSpace(arg.CustomerPhone); phone != "" {
		params.CustomerPhone = pgtype.Text{String: phone, Valid: true}
	}
	return q.InsertBatch(ctx, params)
}

// Close stores the finalized totals summed over the successful lines.
func (a Aggregator) Close(ctx context.Context, q Querier, id pgtype.UUID, totalAmount, totalItems int64) error {
	return q.CloseBatch(ctx, repo.CloseBatchParams{ID: id, TotalAmount: totalAmount, TotalItems: totalItems})
}

// Discard deletes a batch whose checkout produced zero successful lines.
func (a Aggregator) Discard(ctx context.Context, q Querier, id pgtype.UUID) error {
	return q.DeleteBatch(ctx, id)
}

// BatchNumber derives a unique batch number from the clock plus a short random
// suffix guarding against two checkouts in the same millisecond.
func (a Aggregator) BatchNumber() (string, error) {
	var suffix [2]byte
	if _, err := io.ReadFull(a.rand(), suffix[:]); err != nil {
		return "", fmt.Errorf("batch number suffix: %w", err)
	}
	return fmt.Sprintf("GB%d%s", a.now().UnixMilli(), strings.ToUpper(hex.EncodeToString(suffix[:]))), nil
}
