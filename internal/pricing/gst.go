package pricing

// Money represents a monetary value in whole rupees.
type Money = int64

// GST regimes supported on a batch.
const (
	GSTInterstate = "IGST"
	GSTIntrastate = "SGST_CGST"
)

// GSTBreakdown splits a finalized batch total into its tax components. The
// total is treated as tax-inclusive; the breakdown is informational for the
// invoice and never feeds back into batch totals.
type GSTBreakdown struct {
	Taxable Money `json:"taxable"`
	IGST    Money `json:"igst"`
	SGST    Money `json:"sgst"`
	CGST    Money `json:"cgst"`
	Total   Money `json:"total"`
}

// SplitGST derives the tax components of a tax-inclusive total at the given
// rate in basis points. Interstate sales carry the whole tax as IGST;
// intrastate sales split it into equal SGST and CGST halves, with any odd
// rupee landing on CGST.
func SplitGST(total Money, gstType string, bps int) GSTBreakdown {
	if total < 0 {
		total = 0
	}
	if bps < 0 {
		bps = 0
	}
	taxable := total * 10000 / Money(10000+bps)
	tax := total - taxable
	out := GSTBreakdown{Taxable: taxable, Total: total}
	switch gstType {
	case GSTIntrastate:
		out.SGST = tax / 2
		out.CGST = tax - out.SGST
	default:
		out.IGST = tax
	}
	return out
}
