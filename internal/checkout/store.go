package checkout

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-garment/internal/repo"
)

// PGStore runs checkouts against postgres: queries outside a transaction go
// through the pool, ExecTx binds them to one pgx transaction.
type PGStore struct {
	*repo.Queries
	Pool *pgxpool.Pool
}

// NewStore constructs the postgres-backed checkout store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Queries: repo.New(pool), Pool: pool}
}

// ExecTx runs fn inside a transaction, committing when it returns nil and
// rolling back otherwise.
func (s *PGStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
