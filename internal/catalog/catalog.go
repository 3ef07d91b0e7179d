package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-garment/internal/repo"
	"github.com/noah-isme/backend-garment/internal/stock"
)

// ErrProductNotFound indicates the code references an unknown or deleted product.
var ErrProductNotFound = errors.New("product not found")

// ProductNotFoundError carries the offending code for per-line error messages.
type ProductNotFoundError struct {
	Code string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.Code)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// legacy catalog-upload prefixes that were renamed; older bills and barcode
// labels still circulate with the old form.
var legacyPrefixes = map[string]string{
	"GRM": "GM",
	"KDS": "KD",
	"SRE": "SR",
}

// NormalizeCode canonicalizes a scanned or typed product code: upper-case,
// whitespace and scanner artifacts stripped, legacy prefixes rewritten.
func NormalizeCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	c = strings.Trim(c, "*#")
	c = strings.ReplaceAll(c, " ", "")
	for old, current := range legacyPrefixes {
		if strings.HasPrefix(c, old) {
			return current + c[len(old):]
		}
	}
	return c
}

// Querier lists the product queries used during a sale.
type Querier interface {
	GetProductByCodeForUpdate(ctx context.Context, code string) (repo.Product, error)
	UpdateProductStock(ctx context.Context, id pgtype.UUID, sizes, reserved stock.Vector) error
}

// ResolveForSale normalizes the code and loads the product under its row lock.
func ResolveForSale(ctx context.Context, q Querier, code string) (repo.Product, error) {
	normalized := NormalizeCode(code)
	p, err := q.GetProductByCodeForUpdate(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Product{}, &ProductNotFoundError{Code: normalized}
		}
		return repo.Product{}, err
	}
	return p, nil
}
