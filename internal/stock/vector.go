package stock

// SizeCount is one entry of a product's size-quantity vector.
type SizeCount struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// Vector holds per-size quantities for a product. Entries whose quantity
// reaches zero are removed, never left at zero.
type Vector []SizeCount

// Quantity returns the quantity recorded for the given size, zero if absent.
func (v Vector) Quantity(size string) int {
	for _, sc := range v {
		if sc.Size == size {
			return sc.Quantity
		}
	}
	return 0
}

// Take removes qty from the given size's entry. The caller must have verified
// availability beforehand; Take drops the entry entirely when it hits zero.
func (v Vector) Take(size string, qty int) Vector {
	out := make(Vector, 0, len(v))
	for _, sc := range v {
		if sc.Size == size {
			sc.Quantity -= qty
			if sc.Quantity <= 0 {
				continue
			}
		}
		out = append(out, sc)
	}
	return out
}

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
