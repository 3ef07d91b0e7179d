package invoice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/noah-isme/backend-garment/internal/repo"
)

// Generator renders a finalized batch into an invoice document. Real document
// rendering (PDF, watermarking) lives in an external service; this interface
// is the only thing the engine knows about it.
type Generator interface {
	Render(ctx context.Context, b repo.Batch, lines []repo.SaleLine) ([]byte, error)
}

// BlobStore persists a rendered document and returns its public reference.
type BlobStore interface {
	Store(ctx context.Context, data []byte, batchNumber string) (string, error)
}

var textInvoice = template.Must(template.New("invoice").Parse(`INVOICE {{.Batch.InvoiceNumber}} / {{.Batch.BatchNumber}}
Customer: {{.Batch.CustomerName}}
Biller:   {{.Batch.Biller}} ({{.Batch.Location}})
{{range .Lines}}{{.ProductCode}} {{.Size}} x{{.Quantity}} @ {{.UnitPrice}}
{{end}}TOTAL {{.Batch.TotalAmount}} ({{.Batch.TotalItems}} items) [{{.Batch.PaymentStatus}}]
`))

// TextGenerator renders a plain-text invoice. It stands in for the external
// document service in development and tests.
type TextGenerator struct{}

// Render produces the plain-text document.
func (TextGenerator) Render(_ context.Context, b repo.Batch, lines []repo.SaleLine) ([]byte, error) {
	var buf bytes.Buffer
	err := textInvoice.Execute(&buf, struct {
		Batch repo.Batch
		Lines []repo.SaleLine
	}{Batch: b, Lines: lines})
	if err != nil {
		return nil, fmt.Errorf("invoice: render: %w", err)
	}
	return buf.Bytes(), nil
}

// DirStore writes rendered documents to a local directory.
type DirStore struct {
	Dir string
}

// Store persists the document and returns a file reference.
func (d DirStore) Store(_ context.Context, data []byte, batchNumber string) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("invoice: ensure dir: %w", err)
	}
	path := filepath.Join(d.Dir, batchNumber+".txt")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("invoice: write document: %w", err)
	}
	return "file://" + path, nil
}
