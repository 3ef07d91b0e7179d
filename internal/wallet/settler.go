package wallet

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-garment/internal/repo"
)

// MethodWallet tags entries settled against the stored balance.
const MethodWallet = "WALLET"

// Querier lists the queries settlement needs.
type Querier interface {
	GetWalletForUpdate(ctx context.Context, userID pgtype.UUID) (repo.WalletAccount, error)
	DebitWallet(ctx context.Context, userID pgtype.UUID, amount int64) error
	InsertWalletEntry(ctx context.Context, arg repo.InsertWalletEntryParams) error
	SetBatchPaymentStatus(ctx context.Context, id pgtype.UUID, status string) error
}

// Settler pays a batch from the customer's stored balance.
type Settler struct {
	Logger zerolog.Logger
}

// Settle debits the balance and writes one ledger entry when the balance
// covers the batch total. A short balance is not an error: the batch stays
// PENDING, the balance stays untouched, and the sale still goes through.
func (s Settler) Settle(ctx context.Context, q Querier, b repo.Batch, userID pgtype.UUID) (string, error) {
	acc, err := q.GetWalletForUpdate(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load wallet: %w", err)
	}
	if acc.Balance < b.TotalAmount {
		s.Logger.Warn().
			Str("batch_number", b.BatchNumber).
			Int64("balance", acc.Balance).
			Int64("total", b.TotalAmount).
			Msg("wallet_short")
		return repo.PaymentPending, nil
	}
	if err := q.DebitWallet(ctx, userID, b.TotalAmount); err != nil {
		return "", fmt.Errorf("debit wallet: %w", err)
	}
	if err := q.InsertWalletEntry(ctx, repo.InsertWalletEntryParams{
		UserID:    userID,
		Amount:    b.TotalAmount,
		Direction: repo.DirectionDebit,
		Method:    MethodWallet,
		BatchID:   b.ID,
	}); err != nil {
		return "", fmt.Errorf("wallet entry: %w", err)
	}
	if err := q.SetBatchPaymentStatus(ctx, b.ID, repo.PaymentCompleted); err != nil {
		return "", fmt.Errorf("mark batch paid: %w", err)
	}
	return repo.PaymentCompleted, nil
}
