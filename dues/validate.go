/*
validate.go - Pure validation functions for roster and settings input

PURPOSE:
  Validates members and invoice settings before they reach the calculator
  or the aggregation pass. These are stateless functions returning a
  structured result; there is no validator instance and no accumulated
  error map. Callers compose them: the API validates on write, the engine
  validates on snapshot restore, and aggregation uses them as its per-row
  guard.

  The calculator itself stays permissive (it neutralizes bad input to the
  all-zero breakdown); validation exists so bad input is rejected at the
  boundary with a reason instead of silently producing zeros.

SEE ALSO:
  - errors.go: ValidationError and ErrInvalidInput
  - aggregate.go: per-row exclusion of rows that fail these checks
*/
package dues

import (
	"fmt"
	"strings"
)

// Invoice years outside this window are presumed to be data-entry faults.
const (
	MinInvoiceYear = 1000
	MaxInvoiceYear = 9999
)

// ValidateMember checks a member against the roster invariants: a name, a
// known tier, a real join date, and a leave date (when present) that is
// real and not before the join date. Returns nil or a *ValidationError.
func ValidateMember(m Member) error {
	if strings.TrimSpace(m.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if _, ok := BaseAnnualDue(m.Tier); !ok {
		return &ValidationError{Field: "club_tier", Reason: fmt.Sprintf("unknown tier %q", string(m.Tier))}
	}
	if !m.JoinDate.Valid() {
		return &ValidationError{Field: "join_date", Reason: fmt.Sprintf("%s is not a calendar date", m.JoinDate)}
	}
	if m.LeaveDate != nil {
		if !m.LeaveDate.Valid() {
			return &ValidationError{Field: "leave_date", Reason: fmt.Sprintf("%s is not a calendar date", *m.LeaveDate)}
		}
		if m.LeaveDate.Before(m.JoinDate) {
			return &ValidationError{Field: "leave_date", Reason: "must not precede join date"}
		}
	}
	return nil
}

// ValidateInvoiceContext checks the settings a pass runs under: a sane
// invoice year, a non-negative tax percentage, and a positive currency rate.
func ValidateInvoiceContext(inv InvoiceContext) error {
	if inv.InvoiceYear < MinInvoiceYear || inv.InvoiceYear > MaxInvoiceYear {
		return &ValidationError{Field: "invoice_year", Reason: fmt.Sprintf("%d out of range", inv.InvoiceYear)}
	}
	if inv.TaxPercent.IsNegative() {
		return &ValidationError{Field: "tax_percentage", Reason: "must not be negative"}
	}
	if !inv.CurrencyRate.IsPositive() {
		return &ValidationError{Field: "currency_rate", Reason: "must be positive"}
	}
	return nil
}

// ValidateBreakdown checks the calculator's output invariants. Aggregation
// uses it as a guard against rows that were built outside Compute.
func ValidateBreakdown(b Breakdown) error {
	if b.FullYear.IsNegative() || b.Prorated.IsNegative() {
		return &ValidationError{Field: "breakdown", Reason: "negative component"}
	}
	if !b.Total.Equal(round2(b.FullYear.Add(b.Prorated))) {
		return &ValidationError{Field: "breakdown", Reason: "total does not equal rounded component sum"}
	}
	if b.ProratedMonths < 0 || b.ProratedMonths > 12 {
		return &ValidationError{Field: "breakdown", Reason: fmt.Sprintf("prorated months %d out of range", b.ProratedMonths)}
	}
	return nil
}
