package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// AddCategoryPieces adjusts the category's running in-stock piece count by
// delta (negative for a sale).
func (q *Queries) AddCategoryPieces(ctx context.Context, categoryCode string, delta int64) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO category_totals (category_code, pieces) VALUES ($1, $2)
		ON CONFLICT (category_code) DO UPDATE SET pieces = category_totals.pieces + $2`,
		categoryCode, delta)
	return err
}

// UpsertProductSold increments the product's units-ever-sold counter,
// creating the row at qty when absent.
func (q *Queries) UpsertProductSold(ctx context.Context, productID pgtype.UUID, qty int64) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO product_sold_counts (product_id, units) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET units = product_sold_counts.units + $2`,
		productID, qty)
	return err
}
