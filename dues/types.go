/*
Package dues provides the core dues calculation engine.

PURPOSE:
  This package contains the pure calculation logic for club membership dues:
  date-based proration, bounded memoization, tax and currency aggregation,
  and display formatting. It performs no I/O and holds no global state; the
  engine package hosts it behind a roster and a recompute scheduler.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tier: Club classification driving the base annual due
  - Member: A roster entry with a join date and an optional leave date
  - InvoiceContext: The settings one aggregation pass runs under
  - Breakdown: The per-member calculation result (full-year + catch-up)
  - Summary: The roster-wide aggregate, home and local currency

DESIGN PRINCIPLES:
  1. Precision: All money math uses decimal.Decimal, rounded half away
     from zero to two places at defined checkpoints
  2. Immutability: Breakdowns and summaries are replaced, never patched
  3. Fail safe: Malformed input neutralizes to the all-zero breakdown
     rather than propagating a numeric fault

USAGE:
  b := dues.Compute(dues.NewDate(2024, time.June, 15),
      dues.TierUniversityBased, 2025, nil)
  fmt.Println(dues.FormatBreakdown(b)) // "5.00 + 2.52 = 7.52"

SEE ALSO:
  - proration.go: The Compute function and its date rules
  - aggregate.go: Roster-wide summary construction
  - cache.go: Bounded FIFO memoization of Compute
*/
package dues

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CLUB TIER - Classification driving the base annual due
// =============================================================================

type Tier string

const (
	TierCommunityBased  Tier = "CommunityBased"
	TierUniversityBased Tier = "UniversityBased"
)

var (
	communityBaseDue  = decimal.NewFromInt(8)
	universityBaseDue = decimal.NewFromInt(5)
)

// BaseAnnualDue returns the full-year due for a tier in the engine's home
// currency. The second return is false for an unknown tier.
func BaseAnnualDue(tier Tier) (decimal.Decimal, bool) {
	switch tier {
	case TierCommunityBased:
		return communityBaseDue, true
	case TierUniversityBased:
		return universityBaseDue, true
	}
	return decimal.Zero, false
}

// MonthlyDue returns the rounded per-month due for a tier. The intermediate
// rounding matters: catch-up amounts are multiples of this rounded value,
// not fractions of the annual due.
func MonthlyDue(tier Tier) (decimal.Decimal, bool) {
	base, ok := BaseAnnualDue(tier)
	if !ok {
		return decimal.Zero, false
	}
	return round2(base.Div(monthsPerYear)), true
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string

// =============================================================================
// MEMBER - A roster entry
// =============================================================================

// Member is owned by the roster collection. LeaveDate is nil while the
// member is still active. When both dates are present, LeaveDate must not
// precede JoinDate (enforced by ValidateMember).
type Member struct {
	ID        MemberID
	Name      string
	Tier      Tier
	JoinDate  Date
	LeaveDate *Date
}

// Clone returns a copy that shares no pointers with the original.
func (m Member) Clone() Member {
	out := m
	if m.LeaveDate != nil {
		leave := *m.LeaveDate
		out.LeaveDate = &leave
	}
	return out
}

// =============================================================================
// INVOICE CONTEXT - Settings snapshot for one aggregation pass
// =============================================================================

// InvoiceContext is immutable once handed to a pass; a settings change
// produces a new value that supersedes the old one atomically.
type InvoiceContext struct {
	InvoiceYear  int
	TaxPercent   decimal.Decimal
	CurrencyRate decimal.Decimal
}

// =============================================================================
// BREAKDOWN - Per-member calculation result
// =============================================================================

// Breakdown splits a member's due into the full-year portion and the
// prorated catch-up portion. Invariant: Total == round2(FullYear + Prorated)
// and ProratedMonths is in [0, 12].
type Breakdown struct {
	FullYear       decimal.Decimal
	Prorated       decimal.Decimal
	Total          decimal.Decimal
	ProratedMonths int
}

// IsZero reports whether the breakdown carries no amount due.
func (b Breakdown) IsZero() bool { return b.Total.IsZero() }

// Equal compares the numeric content of two breakdowns.
func (b Breakdown) Equal(o Breakdown) bool {
	return b.FullYear.Equal(o.FullYear) &&
		b.Prorated.Equal(o.Prorated) &&
		b.Total.Equal(o.Total) &&
		b.ProratedMonths == o.ProratedMonths
}

func zeroBreakdown() Breakdown {
	return Breakdown{FullYear: decimal.Zero, Prorated: decimal.Zero, Total: decimal.Zero}
}

// MemberResult pairs a member with their computed breakdown; it is the row
// unit emitted by recompute passes and consumed by aggregation.
type MemberResult struct {
	Member    Member
	Breakdown Breakdown
}

// =============================================================================
// SUMMARY - Roster-wide aggregate
// =============================================================================

// Summary is recomputed wholesale on every completed pass and never patched
// incrementally. Local holds the same figures converted to local currency
// with per-sub-amount rounding (see aggregate.go for the ordering rules).
type Summary struct {
	TotalFullYear       decimal.Decimal
	TotalProrated       decimal.Decimal
	BaseTotal           decimal.Decimal
	TaxOnFullYear       decimal.Decimal
	TaxOnProrated       decimal.Decimal
	TaxTotal            decimal.Decimal
	TotalWithTax        decimal.Decimal
	ActiveMembers       int
	TotalProratedMonths int
	Local               LocalTotals
}

// LocalTotals mirrors the summary amounts in local currency.
type LocalTotals struct {
	FullYear      decimal.Decimal
	Prorated      decimal.Decimal
	Base          decimal.Decimal
	TaxOnFullYear decimal.Decimal
	TaxOnProrated decimal.Decimal
	Tax           decimal.Decimal
	TotalWithTax  decimal.Decimal
}

// LocalAmounts carries a single row's local-currency cells. Built with the
// same per-sub-amount rounding order as the summary so the two agree.
type LocalAmounts struct {
	FullYear     decimal.Decimal
	Prorated     decimal.Decimal
	Base         decimal.Decimal
	Tax          decimal.Decimal
	TotalWithTax decimal.Decimal
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

var (
	monthsPerYear = decimal.NewFromInt(12)
	hundred       = decimal.NewFromInt(100)
)

// round2 applies the engine's one rounding rule: two decimal places, half
// away from zero. Every rounding checkpoint goes through here.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
