package repo

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-garment/internal/stock"
)

// Payment status values for a batch.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
)

// Wallet ledger directions.
const (
	DirectionDebit = "DEBIT"
)

// Product is one catalog entry with its size-quantity vectors.
type Product struct {
	ID            pgtype.UUID
	Code          string
	Name          string
	CategoryCode  string
	SellingPrice  int64
	Sizes         stock.Vector
	ReservedSizes stock.Vector
	UpdatedAt     pgtype.Timestamptz
}

// Batch groups the sale lines of one checkout into an invoice-able unit.
type Batch struct {
	ID            pgtype.UUID
	BatchNumber   string
	InvoiceNumber int64
	Kind          string
	GSTType       pgtype.Text
	CustomerName  string
	CustomerPhone pgtype.Text
	Biller        string
	Location      string
	TotalAmount   int64
	TotalItems    int64
	PaymentStatus string
	InvoiceURL    pgtype.Text
	CreatedAt     pgtype.Timestamptz
}

// SaleLine is one sold (product, size, quantity) row; append-only.
type SaleLine struct {
	ID            pgtype.UUID
	BatchID       pgtype.UUID
	ProductID     pgtype.UUID
	ProductCode   string
	Size          string
	Quantity      int32
	UnitPrice     int64
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	Location      string
	CreatedAt     pgtype.Timestamptz
}

// WalletAccount is a customer's stored balance.
type WalletAccount struct {
	UserID  pgtype.UUID
	Balance int64
}

// WalletEntry is one append-only wallet ledger row.
type WalletEntry struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	Amount    int64
	Direction string
	Method    string
	BatchID   pgtype.UUID
	CreatedAt pgtype.Timestamptz
}

// DomainEvent is a persisted post-commit event.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}
