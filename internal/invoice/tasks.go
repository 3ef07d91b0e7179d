package invoice

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeGenerate is the asynq task type for invoice generation.
const TypeGenerate = "invoice:generate"

// GeneratePayload identifies the batch to render.
type GeneratePayload struct {
	BatchID     string `json:"batchId"`
	BatchNumber string `json:"batchNumber"`
}

// NewGenerateTask builds the asynq task for one finalized batch.
func NewGenerateTask(batchID, batchNumber string) (*asynq.Task, error) {
	payload, err := json.Marshal(GeneratePayload{BatchID: batchID, BatchNumber: batchNumber})
	if err != nil {
		return nil, fmt.Errorf("invoice: encode payload: %w", err)
	}
	return asynq.NewTask(TypeGenerate, payload), nil
}
