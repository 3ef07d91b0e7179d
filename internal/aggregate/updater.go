package aggregate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// Querier lists the counter queries used by the updater.
type Querier interface {
	AddCategoryPieces(ctx context.Context, categoryCode string, delta int64) error
	UpsertProductSold(ctx context.Context, productID pgtype.UUID, qty int64) error
}

// Updater maintains the denormalized counters: category in-stock piece totals
// and per-product units-ever-sold ("top sold"). Both are additive; a separate
// reconciliation job recomputes them from scratch when needed.
type Updater struct{}

// Bump applies one successful sale line's counter effects. It must run inside
// the same unit of work as the stock mutation so a rolled-back sale never
// leaves a dangling counter change.
func (Updater) Bump(ctx context.Context, q Querier, categoryCode string, productID pgtype.UUID, qty int) error {
	if err := q.AddCategoryPieces(ctx, categoryCode, -int64(qty)); err != nil {
		return fmt.Errorf("category total: %w", err)
	}
	if err := q.UpsertProductSold(ctx, productID, int64(qty)); err != nil {
		return fmt.Errorf("top sold: %w", err)
	}
	return nil
}
