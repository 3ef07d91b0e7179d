package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const saleLineColumns = `id, batch_id, product_id, product_code, size, quantity, unit_price, customer_name, customer_phone, location, created_at`

// InsertSaleLineParams carries one sold line.
type InsertSaleLineParams struct {
	BatchID       pgtype.UUID
	ProductID     pgtype.UUID
	ProductCode   string
	Size          string
	Quantity      int32
	UnitPrice     int64
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	Location      string
}

// InsertSaleLine appends one sale record; sale lines are never updated or deleted.
func (q *Queries) InsertSaleLine(ctx context.Context, arg InsertSaleLineParams) (SaleLine, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO sale_lines (batch_id, product_id, product_code, size, quantity, unit_price, customer_name, customer_phone, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+saleLineColumns,
		arg.BatchID, arg.ProductID, arg.ProductCode, arg.Size, arg.Quantity, arg.UnitPrice,
		arg.CustomerName, arg.CustomerPhone, arg.Location)
	var line SaleLine
	err := row.Scan(&line.ID, &line.BatchID, &line.ProductID, &line.ProductCode, &line.Size,
		&line.Quantity, &line.UnitPrice, &line.CustomerName, &line.CustomerPhone, &line.Location, &line.CreatedAt)
	return line, err
}

// ListSaleLinesByBatch returns the lines of a batch in insertion order.
func (q *Queries) ListSaleLinesByBatch(ctx context.Context, batchID pgtype.UUID) ([]SaleLine, error) {
	rows, err := q.db.Query(ctx, `SELECT `+saleLineColumns+` FROM sale_lines WHERE batch_id = $1 ORDER BY created_at, id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []SaleLine
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.BatchID, &line.ProductID, &line.ProductCode, &line.Size,
			&line.Quantity, &line.UnitPrice, &line.CustomerName, &line.CustomerPhone, &line.Location, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
