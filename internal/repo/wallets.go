package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// GetWalletAccount loads a customer's stored balance without locking it.
func (q *Queries) GetWalletAccount(ctx context.Context, userID pgtype.UUID) (WalletAccount, error) {
	var acc WalletAccount
	err := q.db.QueryRow(ctx, `SELECT user_id, balance FROM wallet_accounts WHERE user_id = $1`, userID).
		Scan(&acc.UserID, &acc.Balance)
	return acc, err
}

// GetWalletForUpdate loads the balance under its row lock for settlement.
func (q *Queries) GetWalletForUpdate(ctx context.Context, userID pgtype.UUID) (WalletAccount, error) {
	var acc WalletAccount
	err := q.db.QueryRow(ctx, `SELECT user_id, balance FROM wallet_accounts WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&acc.UserID, &acc.Balance)
	return acc, err
}

// DebitWallet subtracts the amount from the customer's balance.
func (q *Queries) DebitWallet(ctx context.Context, userID pgtype.UUID, amount int64) error {
	_, err := q.db.Exec(ctx, `UPDATE wallet_accounts SET balance = balance - $2 WHERE user_id = $1`, userID, amount)
	return err
}

// InsertWalletEntryParams carries one wallet ledger row.
type InsertWalletEntryParams struct {
	UserID    pgtype.UUID
	Amount    int64
	Direction string
	Method    string
	BatchID   pgtype.UUID
}

// InsertWalletEntry appends one immutable wallet ledger row.
func (q *Queries) InsertWalletEntry(ctx context.Context, arg InsertWalletEntryParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO wallet_entries (user_id, amount, direction, method, batch_id)
		VALUES ($1, $2, $3, $4, $5)`,
		arg.UserID, arg.Amount, arg.Direction, arg.Method, arg.BatchID)
	return err
}
