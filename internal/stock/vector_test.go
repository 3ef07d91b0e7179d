package stock

import (
	"encoding/json"
	"testing"
)

// The sizes columns store the vector as a JSON array; an untouched row falls
// back to the column default, which therefore must decode into Vector too.
func TestVectorDecodesColumnDefault(t *testing.T) {
	var v Vector
	if err := json.Unmarshal([]byte(`[]`), &v); err != nil {
		t.Fatalf("decode empty array: %v", err)
	}
	if got := v.Quantity("M"); got != 0 {
		t.Fatalf("empty vector reports quantity %d", got)
	}

	if err := json.Unmarshal([]byte(`[{"size":"M","quantity":3}]`), &v); err != nil {
		t.Fatalf("decode vector: %v", err)
	}
	if got := v.Quantity("M"); got != 3 {
		t.Fatalf("expected 3 in M, got %d", got)
	}

	raw, err := json.Marshal(Vector{})
	if err != nil {
		t.Fatalf("encode empty vector: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("empty vector must encode as an array, got %s", raw)
	}
}
