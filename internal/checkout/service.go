package checkout

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-garment/internal/batch"
	"github.com/noah-isme/backend-garment/internal/catalog"
	"github.com/noah-isme/backend-garment/internal/common"
	"github.com/noah-isme/backend-garment/internal/events"
	"github.com/noah-isme/backend-garment/internal/lock"
	"github.com/noah-isme/backend-garment/internal/obs"
	"github.com/noah-isme/backend-garment/internal/order"
	"github.com/noah-isme/backend-garment/internal/pricing"
	"github.com/noah-isme/backend-garment/internal/repo"
	"github.com/noah-isme/backend-garment/internal/sale"
	"github.com/noah-isme/backend-garment/internal/stock"
	"github.com/noah-isme/backend-garment/internal/wallet"
)

// Line is one cart entry: a product code, a size and how many at what price.
type Line struct {
	Code         string `json:"code" validate:"required"`
	Size         string `json:"selectedSize" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	SellingPrice int64  `json:"sellingPrice" validate:"required,gt=0"`
}

// User identifies the back-office operator running the sale.
type User struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// Input is the checkout payload.
type Input struct {
	Lines         []Line `json:"products" validate:"required,min=1,dive"`
	CurrentUser   User   `json:"currentUser"`
	CustomerName  string `json:"customerName" validate:"required"`
	CustomerPhone string `json:"customerPhone"`
	Location      string `json:"selectedLocation" validate:"required"`
	Biller        string `json:"billCreatedBy" validate:"required"`
	SellType      string `json:"sellType" validate:"required"`
	GSTType       string `json:"gstType" validate:"omitempty,oneof=IGST SGST_CGST"`
	OrderID       string `json:"orderId"`
}

// SoldProduct is one successfully sold line in the response.
type SoldProduct struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Amount    int64  `json:"amount"`
}

// Output is the success shape of a checkout: everything sold, the batch it was
// billed under, and any per-line failures that rode along.
type Output struct {
	Success       string                `json:"success"`
	SoldProducts  []SoldProduct         `json:"soldProducts"`
	TotalAmount   int64                 `json:"totalAmount"`
	TotalItems    int64                 `json:"totalItems"`
	BatchNumber   string                `json:"batchNumber"`
	InvoiceNumber int64                 `json:"invoiceNumber"`
	PaymentStatus string                `json:"paymentStatus"`
	Errors        []string              `json:"errors,omitempty"`
	PartialSale   bool                  `json:"partialSale,omitempty"`
	GST           *pricing.GSTBreakdown `json:"gst,omitempty"`
}

// Querier combines every query surface one checkout touches. *repo.Queries
// satisfies it; tests swap in an in-memory fake.
type Querier interface {
	catalog.Querier
	batch.Querier
	sale.Querier
	wallet.Querier
}

// Store runs checkout queries inside one transaction and answers the
// pre-transaction wallet existence check.
type Store interface {
	ExecTx(ctx context.Context, fn func(Querier) error) error
	GetWalletAccount(ctx context.Context, userID pgtype.UUID) (repo.WalletAccount, error)
}

// Service drives a full checkout: open batch, per-line stock + sale, close or
// discard, wallet settlement, then post-commit side effects.
type Service struct {
	Store        Store
	Batches      batch.Aggregator
	Recorder     sale.Recorder
	Settler      wallet.Settler
	Tracker      order.Tracker
	Locker       *lock.Locker
	Bus          *events.Bus
	Validate     *validator.Validate
	GSTBps       int
	Locations    []string
	TxTimeout    time.Duration
	OrderLockTTL time.Duration
	Now          func() time.Time
	Logger       zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Checkout processes a cart of lines as one unit of work. Lines fail
// independently; a wallet-path checkout that cannot resolve its order or
// customer aborts before any line is attempted.
func (s *Service) Checkout(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Store == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return Output{}, common.ValidationError(err.Error(), err)
		}
	}
	kind := strings.ToUpper(strings.TrimSpace(in.SellType))
	if kind != batch.KindOffline && kind != batch.KindOnline {
		return Output{}, common.ValidationError(fmt.Sprintf("unknown sale type %q", in.SellType), batch.ErrUnknownKind)
	}
	if len(s.Locations) > 0 && !slices.Contains(s.Locations, in.Location) {
		return Output{}, common.ValidationError(fmt.Sprintf("unknown location %q", in.Location), nil)
	}
	start := s.now()

	var payer pgtype.UUID
	if kind == batch.KindOnline {
		resolved, err := s.resolvePayer(ctx, in.OrderID)
		if err != nil {
			return Output{}, err
		}
		payer = resolved
	}

	var (
		out     Output
		batchID pgtype.UUID
		failed  *AllFailedError
	)
	run := func(ctx context.Context) error {
		txCtx := ctx
		if s.TxTimeout > 0 {
			var cancel context.CancelFunc
			txCtx, cancel = context.WithTimeout(ctx, s.TxTimeout)
			defer cancel()
		}
		return s.Store.ExecTx(txCtx, func(q Querier) error {
			result, id, err := s.runBatch(txCtx, q, in, kind, payer)
			if err != nil {
				var allFailed *AllFailedError
				if errors.As(err, &allFailed) {
					// batch already discarded; commit so nothing lingers
					failed = allFailed
					batchID = id
					return nil
				}
				return err
			}
			out = result
			batchID = id
			return nil
		})
	}

	var err error
	if kind == batch.KindOnline && s.Locker != nil {
		err = s.Locker.WithLock(ctx, "checkout:order:"+strings.TrimSpace(in.OrderID), s.OrderLockTTL, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		if isTimeout(err) {
			s.recordBatch(kind, "timeout")
			return Output{}, fmt.Errorf("%w: %s", ErrTxTimeout, err)
		}
		return Output{}, err
	}
	if failed != nil {
		s.recordBatch(kind, "all_failed")
		s.emitDiscarded(ctx, batchID, in, kind, failed)
		return Output{}, failed
	}

	s.recordBatch(kind, "finalized")
	if obs.CheckoutDuration != nil {
		obs.CheckoutDuration.WithLabelValues(kind).Observe(obs.DurationMillis(time.Since(start)))
	}
	if obs.WalletSettlementsTotal != nil && kind == batch.KindOnline {
		obs.WalletSettlementsTotal.WithLabelValues(out.PaymentStatus).Inc()
	}

	if in.GSTType != "" {
		g := pricing.SplitGST(out.TotalAmount, in.GSTType, s.GSTBps)
		out.GST = &g
	}

	s.emitFinalized(ctx, batchID, in, out, kind)
	return out, nil
}

// resolvePayer turns the order id into the paying customer's wallet identity.
// Any gap in the chain collapses into ErrUserOrOrderNotFound.
func (s *Service) resolvePayer(ctx context.Context, orderID string) (pgtype.UUID, error) {
	if strings.TrimSpace(orderID) == "" {
		return pgtype.UUID{}, fmt.Errorf("%w: order id is required for online sales", ErrUserOrOrderNotFound)
	}
	if s.Tracker == nil {
		return pgtype.UUID{}, errors.New("checkout: order tracker not configured")
	}
	info, err := s.Tracker.Lookup(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return pgtype.UUID{}, fmt.Errorf("%w: order %s", ErrUserOrOrderNotFound, orderID)
		}
		return pgtype.UUID{}, err
	}
	payer, err := toUUID(info.CustomerID)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: order %s has no valid customer", ErrUserOrOrderNotFound, orderID)
	}
	if _, err := s.Store.GetWalletAccount(ctx, payer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgtype.UUID{}, fmt.Errorf("%w: customer %s has no wallet", ErrUserOrOrderNotFound, info.CustomerID)
		}
		return pgtype.UUID{}, err
	}
	return payer, nil
}

func (s *Service) runBatch(ctx context.Context, q Querier, in Input, kind string, payer pgtype.UUID) (Output, pgtype.UUID, error) {
	b, err := s.Batches.Open(ctx, q, batch.OpenParams{
		Kind:          kind,
		GSTType:       in.GSTType,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		Biller:        in.Biller,
		Location:      in.Location,
	})
	if err != nil {
		return Output{}, pgtype.UUID{}, fmt.Errorf("open batch: %w", err)
	}

	mode := stock.ModeOffline
	if kind == batch.KindOnline {
		mode = stock.ModeOnline
	}

	var (
		sold        []SoldProduct
		lineErrors  []string
		totalAmount int64
		totalItems  int64
	)
	for _, line := range in.Lines {
		p, err := catalog.ResolveForSale(ctx, q, line.Code)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				lineErrors = append(lineErrors, err.Error())
				s.recordLine("failed", "product_not_found")
				continue
			}
			return Output{}, pgtype.UUID{}, err
		}
		sizes := p.Sizes.Clone()
		reserved := p.ReservedSizes.Clone()
		if err := stock.ReserveAndConsume(&sizes, &reserved, stock.Request{
			Code:     p.Code,
			Size:     line.Size,
			Quantity: line.Quantity,
			Mode:     mode,
		}); err != nil {
			lineErrors = append(lineErrors, err.Error())
			s.recordLine("failed", lineFailureReason(err))
			continue
		}
		if err := q.UpdateProductStock(ctx, p.ID, sizes, reserved); err != nil {
			return Output{}, pgtype.UUID{}, fmt.Errorf("persist stock for %s: %w", p.Code, err)
		}
		if _, err := s.Recorder.Record(ctx, q, sale.RecordParams{
			BatchID:       b.ID,
			Product:       p,
			Size:          line.Size,
			Quantity:      line.Quantity,
			UnitPrice:     line.SellingPrice,
			CustomerName:  in.CustomerName,
			CustomerPhone: in.CustomerPhone,
			Location:      in.Location,
		}); err != nil {
			return Output{}, pgtype.UUID{}, fmt.Errorf("record line for %s: %w", p.Code, err)
		}
		amount := line.SellingPrice * int64(line.Quantity)
		sold = append(sold, SoldProduct{
			Code:      p.Code,
			Name:      p.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.SellingPrice,
			Amount:    amount,
		})
		totalAmount += amount
		totalItems += int64(line.Quantity)
		s.recordLine("sold", "none")
	}

	if len(sold) == 0 {
		if err := s.Batches.Discard(ctx, q, b.ID); err != nil {
			return Output{}, pgtype.UUID{}, fmt.Errorf("discard batch: %w", err)
		}
		return Output{}, b.ID, &AllFailedError{Errors: lineErrors}
	}

	if err := s.Batches.Close(ctx, q, b.ID, totalAmount, totalItems); err != nil {
		return Output{}, pgtype.UUID{}, fmt.Errorf("close batch: %w", err)
	}

	paymentStatus := repo.PaymentPending
	if kind == batch.KindOnline {
		b.TotalAmount = totalAmount
		b.TotalItems = totalItems
		paymentStatus, err = s.Settler.Settle(ctx, q, b, payer)
		if err != nil {
			return Output{}, pgtype.UUID{}, fmt.Errorf("settle wallet: %w", err)
		}
	}

	out := Output{
		Success:       "sale completed",
		SoldProducts:  sold,
		TotalAmount:   totalAmount,
		TotalItems:    totalItems,
		BatchNumber:   b.BatchNumber,
		InvoiceNumber: b.InvoiceNumber,
		PaymentStatus: paymentStatus,
		Errors:        lineErrors,
	}
	if len(lineErrors) > 0 {
		out.Success = "sale partially completed"
		out.PartialSale = true
	}
	return out, b.ID, nil
}

// emitFinalized hands the committed batch to the event bus. The sale already
// happened; a failed emit is logged and swallowed.
func (s *Service) emitFinalized(ctx context.Context, batchID pgtype.UUID, in Input, out Output, kind string) {
	if s.Bus == nil || !batchID.Valid {
		return
	}
	payload := map[string]any{
		"batchNumber":   out.BatchNumber,
		"invoiceNumber": out.InvoiceNumber,
		"kind":          kind,
		"paymentStatus": out.PaymentStatus,
	}
	if id := strings.TrimSpace(in.OrderID); id != "" {
		payload["orderId"] = id
	}
	if _, err := s.Bus.Emit(ctx, events.TopicBatchFinalized, batchID, payload); err != nil {
		s.Logger.Error().Err(err).Str("batch_number", out.BatchNumber).Msg("batch_finalized_emit_failed")
	}
}

// emitDiscarded records that an all-failed checkout threw its batch away. The
// batch row is already gone; the event is the only trace left behind.
func (s *Service) emitDiscarded(ctx context.Context, batchID pgtype.UUID, in Input, kind string, failed *AllFailedError) {
	if s.Bus == nil || !batchID.Valid {
		return
	}
	payload := map[string]any{
		"kind":   kind,
		"errors": failed.Errors,
	}
	if id := strings.TrimSpace(in.OrderID); id != "" {
		payload["orderId"] = id
	}
	if _, err := s.Bus.Emit(ctx, events.TopicBatchDiscarded, batchID, payload); err != nil {
		s.Logger.Error().Err(err).Msg("batch_discarded_emit_failed")
	}
}

func (s *Service) recordLine(result, reason string) {
	if obs.SaleLinesTotal != nil {
		obs.SaleLinesTotal.WithLabelValues(result, reason).Inc()
	}
}

func (s *Service) recordBatch(kind, outcome string) {
	if obs.CheckoutBatchesTotal != nil {
		obs.CheckoutBatchesTotal.WithLabelValues(kind, outcome).Inc()
	}
}

func lineFailureReason(err error) string {
	switch {
	case errors.Is(err, stock.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, stock.ErrReservationMismatch):
		return "reservation_mismatch"
	default:
		return "invalid_line"
	}
}

// isTimeout recognizes a blown transaction budget: either the context deadline
// fired locally or postgres cancelled the statement (SQLSTATE 57014).
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "57014"
}

func toUUID(s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
