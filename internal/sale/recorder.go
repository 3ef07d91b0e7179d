package sale

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-garment/internal/aggregate"
	"github.com/noah-isme/backend-garment/internal/repo"
)

// Querier lists the queries one recorded line needs.
type Querier interface {
	InsertSaleLine(ctx context.Context, arg repo.InsertSaleLineParams) (repo.SaleLine, error)
	aggregate.Querier
}

// Recorder appends sale lines. A line is recorded only after its stock
// mutation succeeded, so recording performs no further validation; the
// aggregate bump rides along because both are effects of one successful line.
type Recorder struct {
	Aggregates aggregate.Updater
}

// RecordParams describes one successful line.
type RecordParams struct {
	BatchID       pgtype.UUID
	Product       repo.Product
	Size          string
	Quantity      int
	UnitPrice     int64
	CustomerName  string
	CustomerPhone string
	Location      string
}

// Record inserts the sale line and applies the aggregate counters.
func (r Recorder) Record(ctx context.Context, q Querier, arg RecordParams) (repo.SaleLine, error) {
	params := repo.InsertSaleLineParams{
		BatchID:     arg.BatchID,
		ProductID:   arg.Product.ID,
		ProductCode: arg.Product.Code,
		Size:        arg.Size,
		Quantity:    int32(arg.Quantity),
		UnitPrice:   arg.UnitPrice,
		Location:    arg.Location,
	}
	if name := strings.TrimSpace(arg.CustomerName); name != "" {
		params.CustomerName = pgtype.Text{String: name, Valid: true}
	}
	if phone := strings.TrimSpace(arg.CustomerPhone); phone != "" {
		params.CustomerPhone = pgtype.Text{String: phone, Valid: true}
	}
	line, err := q.InsertSaleLine(ctx, params)
	if err != nil {
		return repo.SaleLine{}, fmt.Errorf("insert sale line: %w", err)
	}
	if err := r.Aggregates.Bump(ctx, q, arg.Product.CategoryCode, arg.Product.ID, arg.Quantity); err != nil {
		return repo.SaleLine{}, err
	}
	return line, nil
}
