package dues

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FORMATTING LAYER - Pure display-string functions
// =============================================================================
//
// Three branches, always the same shape:
//   total zero          -> "0.00"
//   both parts nonzero  -> "<a> + <b> = <total>"
//   one part nonzero    -> the zero part rendered explicitly as "0.00"
// The zero term is never omitted once any nonzero term is present, so the
// additive relationship stays visible.

const zeroAmount = "0.00"

// FormatAmount renders a monetary value with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatBreakdown renders a member's due as "fullYear + prorated = total",
// or the zero placeholder when nothing is owed.
func FormatBreakdown(b Breakdown) string {
	return formatTriple(b.FullYear, b.Prorated, b.Total)
}

// FormatTaxInclusive renders a tax-inclusive triple as "base + tax = total".
// Used for the local-currency display of both rows and the summary.
func FormatTaxInclusive(base, tax, totalWithTax decimal.Decimal) string {
	return formatTriple(base, tax, totalWithTax)
}

// FormatLocalBreakdown converts a row to local currency and renders its
// tax-inclusive triple.
func FormatLocalBreakdown(b Breakdown, inv InvoiceContext) string {
	la := LocalBreakdown(b, inv)
	return FormatTaxInclusive(la.Base, la.Tax, la.TotalWithTax)
}

func formatTriple(first, second, total decimal.Decimal) string {
	if total.IsZero() {
		return zeroAmount
	}
	return fmt.Sprintf("%s + %s = %s",
		first.StringFixed(2), second.StringFixed(2), total.StringFixed(2))
}
