package checkout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-garment/internal/batch"
	"github.com/noah-isme/backend-garment/internal/checkout"
	"github.com/noah-isme/backend-garment/internal/events"
	"github.com/noah-isme/backend-garment/internal/order"
	"github.com/noah-isme/backend-garment/internal/repo"
	"github.com/noah-isme/backend-garment/internal/stock"
)

// memStore is an in-memory Store: every query runs against maps, ExecTx just
// invokes the callback. Good enough because the orchestrator's own logic, not
// postgres, is under test here.
type memStore struct {
	mu       sync.Mutex
	failTx   error
	products map[string]*repo.Product
	wallets  map[pgtype.UUID]*repo.WalletAccount
	batches  map[pgtype.UUID]*repo.Batch
	lines    []repo.SaleLine
	entries  []repo.InsertWalletEntryParams
	counters map[string]int64
	pieces   map[string]int64
	sold     map[pgtype.UUID]int64
	events   []repo.DomainEvent
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]*repo.Product{},
		wallets:  map[pgtype.UUID]*repo.WalletAccount{},
		batches:  map[pgtype.UUID]*repo.Batch{},
		counters: map[string]int64{},
		pieces:   map[string]int64{},
		sold:     map[pgtype.UUID]int64{},
	}
}

func newUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func (m *memStore) addProduct(code, category string, price int64, sizes, reserved stock.Vector) *repo.Product {
	p := &repo.Product{
		ID:            newUUID(),
		Code:          code,
		Name:          "Test " + code,
		CategoryCode:  category,
		SellingPrice:  price,
		Sizes:         sizes,
		ReservedSizes: reserved,
	}
	m.products[code] = p
	return p
}

func (m *memStore) addWallet(balance int64) pgtype.UUID {
	id := newUUID()
	m.wallets[id] = &repo.WalletAccount{UserID: id, Balance: balance}
	return id
}

func (m *memStore) ExecTx(_ context.Context, fn func(checkout.Querier) error) error {
	if m.failTx != nil {
		return m.failTx
	}
	return fn(m)
}

func (m *memStore) GetProductByCodeForUpdate(_ context.Context, code string) (repo.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[code]
	if !ok {
		return repo.Product{}, pgx.ErrNoRows
	}
	return *p, nil
}

func (m *memStore) UpdateProductStock(_ context.Context, id pgtype.UUID, sizes, reserved stock.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			p.Sizes = sizes
			p.ReservedSizes = reserved
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memStore) NextInvoiceNumber(_ context.Context, kind string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[kind]++
	return m.counters[kind], nil
}

func (m *memStore) InsertBatch(_ context.Context, arg repo.InsertBatchParams) (repo.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := repo.Batch{
		ID:            newUUID(),
		BatchNumber:   arg.BatchNumber,
		InvoiceNumber: arg.InvoiceNumber,
		Kind:          arg.Kind,
		GSTType:       arg.GSTType,
		CustomerName:  arg.CustomerName,
		CustomerPhone: arg.CustomerPhone,
		Biller:        arg.Biller,
		Location:      arg.Location,
		PaymentStatus: repo.PaymentPending,
	}
	m.batches[b.ID] = &b
	return b, nil
}

func (m *memStore) CloseBatch(_ context.Context, arg repo.CloseBatchParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[arg.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	b.TotalAmount = arg.TotalAmount
	b.TotalItems = arg.TotalItems
	return nil
}

func (m *memStore) DeleteBatch(_ context.Context, id pgtype.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.batches, id)
	return nil
}

func (m *memStore) SetBatchPaymentStatus(_ context.Context, id pgtype.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return pgx.ErrNoRows
	}
	b.PaymentStatus = status
	return nil
}

func (m *memStore) InsertSaleLine(_ context.Context, arg repo.InsertSaleLineParams) (repo.SaleLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line := repo.SaleLine{
		ID:          newUUID(),
		BatchID:     arg.BatchID,
		ProductID:   arg.ProductID,
		ProductCode: arg.ProductCode,
		Size:        arg.Size,
		Quantity:    arg.Quantity,
		UnitPrice:   arg.UnitPrice,
		Location:    arg.Location,
	}
	m.lines = append(m.lines, line)
	return line, nil
}

func (m *memStore) AddCategoryPieces(_ context.Context, categoryCode string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pieces[categoryCode] += delta
	return nil
}

func (m *memStore) UpsertProductSold(_ context.Context, productID pgtype.UUID, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sold[productID] += qty
	return nil
}

func (m *memStore) GetWalletAccount(_ context.Context, userID pgtype.UUID) (repo.WalletAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.wallets[userID]
	if !ok {
		return repo.WalletAccount{}, pgx.ErrNoRows
	}
	return *acc, nil
}

func (m *memStore) GetWalletForUpdate(ctx context.Context, userID pgtype.UUID) (repo.WalletAccount, error) {
	return m.GetWalletAccount(ctx, userID)
}

func (m *memStore) DebitWallet(_ context.Context, userID pgtype.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.wallets[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	acc.Balance -= amount
	return nil
}

func (m *memStore) InsertWalletEntry(_ context.Context, arg repo.InsertWalletEntryParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, arg)
	return nil
}

func (m *memStore) InsertDomainEvent(_ context.Context, arg repo.InsertDomainEventParams) (repo.DomainEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := repo.DomainEvent{ID: newUUID(), Topic: arg.Topic, AggregateID: arg.AggregateID, Payload: arg.Payload}
	m.events = append(m.events, ev)
	return ev, nil
}

type stubTracker struct {
	info     order.Info
	err      error
	advanced []string
}

func (t *stubTracker) Lookup(_ context.Context, orderID string) (order.Info, error) {
	if t.err != nil {
		return order.Info{}, t.err
	}
	info := t.info
	if info.OrderID == "" {
		info.OrderID = orderID
	}
	return info, nil
}

func (t *stubTracker) Advance(_ context.Context, orderID, status string) error {
	t.advanced = append(t.advanced, orderID+":"+status)
	return nil
}

func newService(store *memStore) *checkout.Service {
	return &checkout.Service{
		Store:     store,
		Batches:   batch.Aggregator{},
		Validate:  validator.New(),
		GSTBps:    500,
		TxTimeout: time.Second,
	}
}

func offlineInput(lines ...checkout.Line) checkout.Input {
	return checkout.Input{
		Lines:        lines,
		CurrentUser:  checkout.User{ID: "op-1", Name: "Operator"},
		CustomerName: "Walk In",
		Location:     "MG Road",
		Biller:       "Operator",
		SellType:     batch.KindOffline,
	}
}

func TestCheckoutOfflineSingleLineSucceeds(t *testing.T) {
	store := newMemStore()
	p := store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 5}}, nil)

	out, err := newService(store).Checkout(context.Background(), offlineInput(
		checkout.Line{Code: "ABC1234", Size: "M", Quantity: 2, SellingPrice: 500},
	))
	require.NoError(t, err)

	require.Equal(t, int64(1000), out.TotalAmount)
	require.Equal(t, int64(2), out.TotalItems)
	require.Equal(t, int64(1), out.InvoiceNumber)
	require.Equal(t, repo.PaymentPending, out.PaymentStatus)
	require.False(t, out.PartialSale)
	require.Len(t, out.SoldProducts, 1)
	require.Contains(t, out.BatchNumber, "GB")
	require.Equal(t, 3, p.Sizes.Quantity("M"))
}

func TestCheckoutOfflineStockAndCounters(t *testing.T) {
	store := newMemStore()
	p := store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 5}}, nil)

	_, err := newService(store).Checkout(context.Background(), offlineInput(
		checkout.Line{Code: "ABC1234", Size: "M", Quantity: 2, SellingPrice: 500},
	))
	require.NoError(t, err)

	require.Equal(t, 3, p.Sizes.Quantity("M"))
	require.Len(t, store.lines, 1)
	require.Equal(t, int32(2), store.lines[0].Quantity)
	require.Equal(t, int64(-2), store.pieces["GM"])
	require.Equal(t, int64(2), store.sold[p.ID])
	require.Len(t, store.batches, 1)
	for _, b := range store.batches {
		require.Equal(t, int64(1000), b.TotalAmount)
		require.Equal(t, int64(2), b.TotalItems)
	}
}

func TestCheckoutInsufficientStockLeavesNothing(t *testing.T) {
	store := newMemStore()
	p := store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 1}}, nil)

	_, err := newService(store).Checkout(context.Background(), offlineInput(
		checkout.Line{Code: "ABC1234", Size: "M", Quantity: 2, SellingPrice: 500},
	))

	var allFailed *checkout.AllFailedError
	require.ErrorAs(t, err, &allFailed)
	require.Len(t, allFailed.Errors, 1)
	require.Contains(t, allFailed.Errors[0], "1 available")

	require.Equal(t, 1, p.Sizes.Quantity("M"))
	require.Empty(t, store.lines)
	require.Empty(t, store.batches)
	require.Empty(t, store.pieces)
}

func TestCheckoutOnlineReservationMismatch(t *testing.T) {
	store := newMemStore()
	p := store.addProduct("ABC1234", "GM", 500,
		stock.Vector{{Size: "M", Quantity: 2}},
		stock.Vector{{Size: "M", Quantity: 1}},
	)
	payer := store.addWallet(5000)

	svc := newService(store)
	svc.Tracker = &stubTracker{info: order.Info{CustomerID: uuid.UUID(payer.Bytes).String()}}

	in := offlineInput(checkout.Line{Code: "ABC1234", Size: "M", Quantity: 2, SellingPrice: 500})
	in.SellType = batch.KindOnline
	in.OrderID = "ORD-9"

	_, err := svc.Checkout(context.Background(), in)
	var allFailed *checkout.AllFailedError
	require.ErrorAs(t, err, &allFailed)
	require.Contains(t, allFailed.Errors[0], "reserved")

	require.Equal(t, 2, p.Sizes.Quantity("M"))
	require.Equal(t, 1, p.ReservedSizes.Quantity("M"))
	require.Empty(t, store.entries)
	require.Empty(t, store.batches)
}

func TestCheckoutWalletShortBalanceStaysPending(t *testing.T) {
	store := newMemStore()
	store.addProduct("ABC1234", "GM", 500,
		stock.Vector{{Size: "M", Quantity: 5}},
		stock.Vector{{Size: "M", Quantity: 5}},
	)
	payer := store.addWallet(300)

	svc := newService(store)
	svc.Tracker = &stubTracker{info: order.Info{CustomerID: uuid.UUID(payer.Bytes).String()}}

	in := offlineInput(checkout.Line{Code: "ABC1234", Size: "M", Quantity: 1, SellingPrice: 500})
	in.SellType = batch.KindOnline
	in.OrderID = "ORD-10"

	out, err := svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, repo.PaymentPending, out.PaymentStatus)
	require.Equal(t, int64(300), store.wallets[payer].Balance)
	require.Empty(t, store.entries)
}

func TestCheckoutWalletCoveredBalanceSettles(t *testing.T) {
	store := newMemStore()
	store.addProduct("ABC1234", "GM", 500,
		stock.Vector{{Size: "M", Quantity: 5}},
		stock.Vector{{Size: "M", Quantity: 5}},
	)
	payer := store.addWallet(1000)

	svc := newService(store)
	svc.Tracker = &stubTracker{info: order.Info{CustomerID: uuid.UUID(payer.Bytes).String()}}

	in := offlineInput(checkout.Line{Code: "ABC1234", Size: "M", Quantity: 1, SellingPrice: 500})
	in.SellType = batch.KindOnline
	in.OrderID = "ORD-11"

	out, err := svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, repo.PaymentCompleted, out.PaymentStatus)
	require.Equal(t, int64(500), store.wallets[payer].Balance)
	require.Len(t, store.entries, 1)
	require.Equal(t, int64(500), store.entries[0].Amount)
	require.Equal(t, repo.DirectionDebit, store.entries[0].Direction)
	for _, b := range store.batches {
		require.Equal(t, repo.PaymentCompleted, b.PaymentStatus)
	}
}

func TestCheckoutPartialSaleCollectsErrors(t *testing.T) {
	store := newMemStore()
	store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 5}}, nil)

	out, err := newService(store).Checkout(context.Background(), offlineInput(
		checkout.Line{Code: "ABC1234", Size: "M", Quantity: 1, SellingPrice: 500},
		checkout.Line{Code: "NOPE999", Size: "L", Quantity: 1, SellingPrice: 700},
	))
	require.NoError(t, err)

	require.True(t, out.PartialSale)
	require.Len(t, out.SoldProducts, 1)
	require.Equal(t, int64(500), out.TotalAmount)
	require.Len(t, out.Errors, 1)
	require.Contains(t, out.Errors[0], "not found")
	require.Len(t, store.lines, 1)
}

func TestCheckoutTotalsAreOrderIndependent(t *testing.T) {
	run := func(reversed bool) int64 {
		store := newMemStore()
		store.addProduct("AAA1111", "GM", 300, stock.Vector{{Size: "S", Quantity: 5}}, nil)
		store.addProduct("BBB2222", "KD", 700, stock.Vector{{Size: "L", Quantity: 5}}, nil)
		lines := []checkout.Line{
			{Code: "AAA1111", Size: "S", Quantity: 2, SellingPrice: 300},
			{Code: "BBB2222", Size: "L", Quantity: 1, SellingPrice: 700},
		}
		if reversed {
			lines[0], lines[1] = lines[1], lines[0]
		}
		out, err := newService(store).Checkout(context.Background(), offlineInput(lines...))
		require.NoError(t, err)
		return out.TotalAmount
	}
	require.Equal(t, run(false), run(true))
}

func TestCheckoutUnknownOrderAbortsBeforeAnyLine(t *testing.T) {
	store := newMemStore()
	p := store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 5}}, nil)

	svc := newService(store)
	svc.Tracker = &stubTracker{err: order.ErrNotFound}

	in := offlineInput(checkout.Line{Code: "ABC1234", Size: "M", Quantity: 1, SellingPrice: 500})
	in.SellType = batch.KindOnline
	in.OrderID = "ORD-404"

	_, err := svc.Checkout(context.Background(), in)
	require.ErrorIs(t, err, checkout.ErrUserOrOrderNotFound)
	require.Equal(t, 5, p.Sizes.Quantity("M"))
	require.Empty(t, store.batches)
}

func TestCheckoutTimeoutIsDistinct(t *testing.T) {
	store := newMemStore()
	store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 5}}, nil)
	store.failTx = &pgconn.PgError{Code: "57014"}

	_, err := newService(store).Checkout(context.Background(), offlineInput(
		checkout.Line{Code: "ABC1234", Size: "M", Quantity: 1, SellingPrice: 500},
	))
	require.ErrorIs(t, err, checkout.ErrTxTimeout)

	store.failTx = context.DeadlineExceeded
	_, err = newService(store).Checkout(context.Background(), offlineInput(
		checkout.Line{Code: "ABC1234", Size: "M", Quantity: 1, SellingPrice: 500},
	))
	require.ErrorIs(t, err, checkout.ErrTxTimeout)
}

func TestCheckoutEmitsFinalizedEvent(t *testing.T) {
	store := newMemStore()
	store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 5}}, nil)

	svc := newService(store)
	svc.Bus = &events.Bus{Store: store}

	out, err := svc.Checkout(context.Background(), offlineInput(
		checkout.Line{Code: "ABC1234", Size: "M", Quantity: 1, SellingPrice: 500},
	))
	require.NoError(t, err)
	require.Len(t, store.events, 1)
	require.Equal(t, events.TopicBatchFinalized, store.events[0].Topic)
	require.Contains(t, string(store.events[0].Payload), out.BatchNumber)
}

func TestCheckoutAllFailedEmitsDiscardedEvent(t *testing.T) {
	store := newMemStore()
	store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 1}}, nil)

	svc := newService(store)
	svc.Bus = &events.Bus{Store: store}

	_, err := svc.Checkout(context.Background(), offlineInput(
		checkout.Line{Code: "ABC1234", Size: "M", Quantity: 2, SellingPrice: 500},
	))
	var allFailed *checkout.AllFailedError
	require.ErrorAs(t, err, &allFailed)

	require.Empty(t, store.batches)
	require.Len(t, store.events, 1)
	require.Equal(t, events.TopicBatchDiscarded, store.events[0].Topic)
	require.Contains(t, string(store.events[0].Payload), "1 available")
}

// rowLockStore serializes transactions the way postgres row locks do: the
// first transaction to load a product for update holds the row until its
// callback returns, and a second checkout of the same product blocks on the
// load rather than reading a stale quantity.
type rowLockStore struct {
	*memStore
	row sync.Mutex
}

type rowLockQuerier struct {
	checkout.Querier
	store *rowLockStore
	held  bool
}

func (q *rowLockQuerier) GetProductByCodeForUpdate(ctx context.Context, code string) (repo.Product, error) {
	if !q.held {
		q.store.row.Lock()
		q.held = true
	}
	return q.Querier.GetProductByCodeForUpdate(ctx, code)
}

func (s *rowLockStore) ExecTx(ctx context.Context, fn func(checkout.Querier) error) error {
	q := &rowLockQuerier{store: s}
	err := s.memStore.ExecTx(ctx, func(inner checkout.Querier) error {
		q.Querier = inner
		return fn(q)
	})
	if q.held {
		s.row.Unlock()
	}
	return err
}

func TestCheckoutConcurrentDecrementNeverOversells(t *testing.T) {
	store := &rowLockStore{memStore: newMemStore()}
	p := store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 3}}, nil)

	svc := newService(store.memStore)
	svc.Store = store

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), offlineInput(
				checkout.Line{Code: "ABC1234", Size: "M", Quantity: 2, SellingPrice: 500},
			))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var failures int
	for err := range results {
		if err != nil {
			var allFailed *checkout.AllFailedError
			require.ErrorAs(t, err, &allFailed)
			failures++
		}
	}
	// only one of the two can fit in a stock of 3
	require.Equal(t, 1, failures)
	require.Equal(t, 1, p.Sizes.Quantity("M"))
	require.Len(t, store.lines, 1)
	require.Equal(t, int64(-2), store.pieces["GM"])
}

func TestCheckoutGSTBreakdownOnResponse(t *testing.T) {
	store := newMemStore()
	store.addProduct("ABC1234", "GM", 500, stock.Vector{{Size: "M", Quantity: 5}}, nil)

	in := offlineInput(checkout.Line{Code: "ABC1234", Size: "M", Quantity: 2, SellingPrice: 500})
	in.GSTType = "SGST_CGST"

	out, err := newService(store).Checkout(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out.GST)
	require.Equal(t, out.TotalAmount, out.GST.Total)
	require.Equal(t, out.GST.Total-out.GST.Taxable, out.GST.SGST+out.GST.CGST)
}
