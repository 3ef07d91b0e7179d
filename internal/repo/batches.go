package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const batchColumns = `id, batch_number, invoice_number, kind, gst_type, customer_name, customer_phone, biller, location, total_amount, total_items, payment_status, invoice_url, created_at`

func scanBatch(row interface{ Scan(...any) error }) (Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.BatchNumber, &b.InvoiceNumber, &b.Kind, &b.GSTType, &b.CustomerName,
		&b.CustomerPhone, &b.Biller, &b.Location, &b.TotalAmount, &b.TotalItems, &b.PaymentStatus,
		&b.InvoiceURL, &b.CreatedAt)
	return b, err
}

// NextInvoiceNumber advances and returns the monotonic invoice sequence for a
// batch kind. The upsert runs under the row lock of the counter, so two
// concurrent checkouts of the same kind can never draw the same number.
func (q *Queries) NextInvoiceNumber(ctx context.Context, kind string) (int64, error) {
	var value int64
	err := q.db.QueryRow(ctx, `
		INSERT INTO invoice_counters (kind, value) VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET value = invoice_counters.value + 1
		RETURNING value`, kind).Scan(&value)
	return value, err
}

// InsertBatchParams carries the fields for a freshly opened batch.
type InsertBatchParams struct {
	BatchNumber   string
	InvoiceNumber int64
	Kind          string
	GSTType       pgtype.Text
	CustomerName  string
	CustomerPhone pgtype.Text
	Biller        string
	Location      string
}

// InsertBatch opens a batch with zero totals and PENDING payment status.
func (q *Queries) InsertBatch(ctx context.Context, arg InsertBatchParams) (Batch, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO batches (batch_number, invoice_number, kind, gst_type, customer_name, customer_phone, biller, location, total_amount, total_items, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 'PENDING')
		RETURNING `+batchColumns,
		arg.BatchNumber, arg.InvoiceNumber, arg.Kind, arg.GSTType, arg.CustomerName, arg.CustomerPhone, arg.Biller, arg.Location)
	return scanBatch(row)
}

// CloseBatchParams finalizes a batch's totals.
type CloseBatchParams struct {
	ID          pgtype.UUID
	TotalAmount int64
	TotalItems  int64
}

// CloseBatch stores the summed totals over the batch's successful lines.
func (q *Queries) CloseBatch(ctx context.Context, arg CloseBatchParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE batches SET total_amount = $2, total_items = $3 WHERE id = $1`,
		arg.ID, arg.TotalAmount, arg.TotalItems)
	return err
}

// SetBatchPaymentStatus updates the payment status of a batch.
func (q *Queries) SetBatchPaymentStatus(ctx context.Context, id pgtype.UUID, status string) error {
	_, err := q.db.Exec(ctx, `UPDATE batches SET payment_status = $2 WHERE id = $1`, id, status)
	return err
}

// SetBatchInvoiceURL records the stored invoice document reference.
func (q *Queries) SetBatchInvoiceURL(ctx context.Context, id pgtype.UUID, url string) error {
	_, err := q.db.Exec(ctx, `UPDATE batches SET invoice_url = $2 WHERE id = $1`, id, pgtype.Text{String: url, Valid: true})
	return err
}

// DeleteBatch removes a batch that ended with zero successful lines.
func (q *Queries) DeleteBatch(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	return err
}

// GetBatchByID loads one batch.
func (q *Queries) GetBatchByID(ctx context.Context, id pgtype.UUID) (Batch, error) {
	row := q.db.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)
	return scanBatch(row)
}
