package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-garment/internal/stock"
)

const productColumns = `id, code, name, category_code, selling_price, sizes, reserved_sizes, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var (
		p           Product
		sizesRaw    []byte
		reservedRaw []byte
	)
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.CategoryCode, &p.SellingPrice, &sizesRaw, &reservedRaw, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if len(sizesRaw) > 0 {
		if err := json.Unmarshal(sizesRaw, &p.Sizes); err != nil {
			return Product{}, fmt.Errorf("decode sizes: %w", err)
		}
	}
	if len(reservedRaw) > 0 {
		if err := json.Unmarshal(reservedRaw, &p.ReservedSizes); err != nil {
			return Product{}, fmt.Errorf("decode reserved sizes: %w", err)
		}
	}
	return p, nil
}

// GetProductByCode loads a product without locking it.
func (q *Queries) GetProductByCode(ctx context.Context, code string) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, code)
	return scanProduct(row)
}

// GetProductByCodeForUpdate loads a product holding its row lock until the
// surrounding transaction ends, so concurrent checkouts on the same product
// serialize on the check-then-decrement.
func (q *Queries) GetProductByCodeForUpdate(ctx context.Context, code string) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1 FOR UPDATE`, code)
	return scanProduct(row)
}

// UpdateProductStock persists the mutated size vectors.
func (q *Queries) UpdateProductStock(ctx context.Context, id pgtype.UUID, sizes, reserved stock.Vector) error {
	sizesRaw, err := json.Marshal(sizes)
	if err != nil {
		return fmt.Errorf("encode sizes: %w", err)
	}
	reservedRaw, err := json.Marshal(reserved)
	if err != nil {
		return fmt.Errorf("encode reserved sizes: %w", err)
	}
	_, err = q.db.Exec(ctx, `
		UPDATE products
		SET sizes = $2, reserved_sizes = $3, updated_at = now()
		WHERE id = $1`, id, sizesRaw, reservedRaw)
	return err
}
