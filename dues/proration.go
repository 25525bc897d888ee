/*
proration.go - Date-based dues computation

PURPOSE:
  Computes one member's dues breakdown for an invoice year. Dues are billed
  effective January of the invoice year; a member who joined during the
  preceding year additionally owes a prorated "catch-up" for the months of
  that year they were active.

MONTH ARITHMETIC:
  The proration formulas are defined over zero-based month indexes
  (January = 0 .. December = 11). A join after the 1st of a month counts
  from the following month, so the effective join index ranges 0..12 and
  the catch-up month count is 12 minus that index. A leave during the join
  year bills join month through leave month inclusive.

ROUNDING:
  Two checkpoints, both half away from zero to two places: the per-month
  due (base/12) and each produced amount. Catch-up amounts are therefore
  exact multiples of the rounded per-month due — 12 catch-up months of an
  8.00 tier bill 8.04, not 8.00.

FAIL SAFE:
  Compute never panics and never emits a negative or non-numeric value.
  Unknown tiers, impossible dates, and inverted intervals all produce the
  all-zero breakdown; rejecting such input with a reason is the job of
  validate.go at the boundary.

SEE ALSO:
  - types.go: Breakdown, tier constants, rounding rule
  - cache.go: memoized front of this function
*/
package dues

import (
	"time"

	"github.com/shopspring/decimal"
)

// Compute returns the dues breakdown for a membership interval, tier and
// invoice year. It is deterministic and side-effect free: equal inputs
// produce equal outputs, which is what makes the result cacheable.
func Compute(join Date, tier Tier, invoiceYear int, leave *Date) Breakdown {
	base, ok := BaseAnnualDue(tier)
	if !ok {
		return zeroBreakdown()
	}
	if !join.Valid() {
		return zeroBreakdown()
	}
	if leave != nil {
		if !leave.Valid() {
			return zeroBreakdown()
		}
		if leave.Before(join) {
			return zeroBreakdown()
		}
	}

	switch {
	case join.Year > invoiceYear:
		// Not yet a member for this invoice.
		return zeroBreakdown()
	case join.Year == invoiceYear:
		// Joined during the invoice year; owes the catch-up next cycle.
		return zeroBreakdown()
	case join.Year < invoiceYear-1:
		// Long-standing member: full due, unless they left before the
		// invoice year began.
		if leftBeforeYear(leave, invoiceYear) {
			return zeroBreakdown()
		}
		return Breakdown{FullYear: base, Prorated: decimal.Zero, Total: base}
	}

	// join.Year == invoiceYear-1: the catch-up case.
	perMonth, _ := MonthlyDue(tier)
	joinMonth := monthIndex(join)

	if leftBeforeYear(leave, invoiceYear) {
		// Left during the join year: only the catch-up applies, billed
		// join month through leave month inclusive. The mid-month rule can
		// push the effective join month past the leave month, in which
		// case nothing is owed.
		leaveMonth := int(leave.Month) - 1
		if leaveMonth < joinMonth {
			return zeroBreakdown()
		}
		months := leaveMonth - joinMonth + 1
		catchUp := round2(perMonth.Mul(decimal.NewFromInt(int64(months))))
		return Breakdown{FullYear: decimal.Zero, Prorated: catchUp, Total: catchUp, ProratedMonths: months}
	}

	months := 12 - joinMonth
	if months < 0 {
		months = 0
	}
	catchUp := round2(perMonth.Mul(decimal.NewFromInt(int64(months))))
	total := round2(base.Add(catchUp))
	return Breakdown{FullYear: base, Prorated: catchUp, Total: total, ProratedMonths: months}
}

// monthIndex returns the effective zero-based join month: the calendar
// month index, advanced by one when the join lands after the 1st. A late-
// December join yields 12, i.e. zero catch-up months.
func monthIndex(join Date) int {
	idx := int(join.Month) - 1
	if join.Day > 1 {
		idx++
	}
	return idx
}

// leftBeforeYear reports whether the member's leave date falls before
// January 1st of the given year.
func leftBeforeYear(leave *Date, year int) bool {
	return leave != nil && leave.Before(NewDate(year, time.January, 1))
}
