package invoice

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-garment/internal/obs"
	"github.com/noah-isme/backend-garment/internal/repo"
)

type stubQuerier struct {
	batch    repo.Batch
	lines    []repo.SaleLine
	savedURL string
}

func (s *stubQuerier) GetBatchByID(context.Context, pgtype.UUID) (repo.Batch, error) {
	return s.batch, nil
}

func (s *stubQuerier) ListSaleLinesByBatch(context.Context, pgtype.UUID) ([]repo.SaleLine, error) {
	return s.lines, nil
}

func (s *stubQuerier) SetBatchInvoiceURL(_ context.Context, _ pgtype.UUID, url string) error {
	s.savedURL = url
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Render(context.Context, repo.Batch, []repo.SaleLine) ([]byte, error) {
	return nil, errors.New("renderer offline")
}

type memStore struct {
	stored []byte
}

func (m *memStore) Store(_ context.Context, data []byte, batchNumber string) (string, error) {
	m.stored = data
	return "blob://" + batchNumber, nil
}

func TestHandleGenerateStoresDocument(t *testing.T) {
	q := &stubQuerier{
		batch: repo.Batch{
			ID:            pgtype.UUID{Bytes: uuid.New(), Valid: true},
			BatchNumber:   "GB100",
			InvoiceNumber: 7,
			CustomerName:  "Asha",
			Biller:        "counter-1",
			Location:      "MG Road",
			TotalAmount:   1000,
			TotalItems:    2,
			PaymentStatus: repo.PaymentCompleted,
		},
		lines: []repo.SaleLine{{ProductCode: "ABC1234", Size: "M", Quantity: 2, UnitPrice: 500}},
	}
	blobs := &memStore{}
	w := Worker{Q: q, Gen: TextGenerator{}, Blobs: blobs}

	task, err := NewGenerateTask(uuid.UUID(q.batch.ID.Bytes).String(), q.batch.BatchNumber)
	require.NoError(t, err)
	require.NoError(t, w.HandleGenerate(context.Background(), task))

	require.Equal(t, "blob://GB100", q.savedURL)
	require.Contains(t, string(blobs.stored), "ABC1234 M x2 @ 500")
	require.Contains(t, string(blobs.stored), "TOTAL 1000")
}

func TestHandleGenerateRenderFailureIsRetryable(t *testing.T) {
	q := &stubQuerier{batch: repo.Batch{BatchNumber: "GB101"}}
	w := Worker{Q: q, Gen: failingGenerator{}, Blobs: &memStore{}}

	task, err := NewGenerateTask(uuid.NewString(), "GB101")
	require.NoError(t, err)
	require.Error(t, w.HandleGenerate(context.Background(), task))
	require.Empty(t, q.savedURL)
}

func TestHandleGenerateCountsOutcomes(t *testing.T) {
	obs.MustRegisterDomainMetrics("invoicetest", prometheus.NewRegistry())
	successBefore := testutil.ToFloat64(obs.InvoiceGenerationTotal.WithLabelValues("success"))
	failedBefore := testutil.ToFloat64(obs.InvoiceGenerationTotal.WithLabelValues("failed"))

	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	q := &stubQuerier{batch: repo.Batch{ID: id, BatchNumber: "GB102"}}
	ok := Worker{Q: q, Gen: TextGenerator{}, Blobs: &memStore{}}
	task, err := NewGenerateTask(uuid.UUID(id.Bytes).String(), "GB102")
	require.NoError(t, err)
	require.NoError(t, ok.HandleGenerate(context.Background(), task))

	broken := Worker{Q: q, Gen: failingGenerator{}, Blobs: &memStore{}}
	require.Error(t, broken.HandleGenerate(context.Background(), task))

	require.Equal(t, successBefore+1, testutil.ToFloat64(obs.InvoiceGenerationTotal.WithLabelValues("success")))
	require.Equal(t, failedBefore+1, testutil.ToFloat64(obs.InvoiceGenerationTotal.WithLabelValues("failed")))
}

func TestHandleGenerateDropsMalformedPayload(t *testing.T) {
	w := Worker{Q: &stubQuerier{}, Gen: TextGenerator{}, Blobs: &memStore{}}
	err := w.HandleGenerate(context.Background(), asynq.NewTask(TypeGenerate, []byte("{not-json")))
	require.NoError(t, err)
}
