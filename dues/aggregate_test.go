package dues_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubdesk/dues-engine/dues"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func invoice(year int, taxPct, rate string) dues.InvoiceContext {
	return dues.InvoiceContext{
		InvoiceYear:  year,
		TaxPercent:   dec(taxPct),
		CurrencyRate: dec(rate),
	}
}

func resultFor(name string, tier dues.Tier, join dues.Date, leave *dues.Date, year int) dues.MemberResult {
	m := dues.Member{ID: dues.MemberID(name), Name: name, Tier: tier, JoinDate: join, LeaveDate: leave}
	return dues.MemberResult{Member: m, Breakdown: dues.Compute(join, tier, year, leave)}
}

// handRow builds a row with a hand-made breakdown that still satisfies
// the output invariants, for cent-level aggregation cases Compute's
// tier constants cannot produce.
func handRow(name, fullYear, prorated string, months int) dues.MemberResult {
	fy, pr := dec(fullYear), dec(prorated)
	return dues.MemberResult{
		Member: dues.Member{
			ID:       dues.MemberID(name),
			Name:     name,
			Tier:     dues.TierCommunityBased,
			JoinDate: dues.NewDate(2020, time.January, 1),
		},
		Breakdown: dues.Breakdown{
			FullYear:       fy,
			Prorated:       pr,
			Total:          fy.Add(pr).Round(2),
			ProratedMonths: months,
		},
	}
}

// =============================================================================
// SUMMATION AND TAX SPLIT
// =============================================================================

func TestAggregate_SumsComponentsAndSplitsTaxByCategory(t *testing.T) {
	// GIVEN: One long-standing member (full due only) and one catch-up
	//        joiner (full due + prorated), 10% tax, rate 1
	// WHEN: Aggregating
	// THEN: Tax is computed per category, never on the combined total

	rows := []dues.MemberResult{
		resultFor("anna", dues.TierCommunityBased, date(2020, time.January, 1), nil, 2025),
		resultFor("ben", dues.TierUniversityBased, date(2024, time.June, 15), nil, 2025),
	}

	s := dues.Aggregate(rows, invoice(2025, "10", "1"), zerolog.Nop())

	assert.Equal(t, "13.00", s.TotalFullYear.StringFixed(2)) // 8.00 + 5.00
	assert.Equal(t, "2.52", s.TotalProrated.StringFixed(2))
	assert.Equal(t, "15.52", s.BaseTotal.StringFixed(2))
	assert.Equal(t, "1.30", s.TaxOnFullYear.StringFixed(2))
	assert.Equal(t, "0.25", s.TaxOnProrated.StringFixed(2))
	assert.Equal(t, "1.55", s.TaxTotal.StringFixed(2))
	assert.Equal(t, "17.07", s.TotalWithTax.StringFixed(2))
	assert.Equal(t, 2, s.ActiveMembers)
	assert.Equal(t, 6, s.TotalProratedMonths)
}

func TestAggregate_ActiveCountExcludesZeroAndCatchUpOnlyRows(t *testing.T) {
	// GIVEN: An active member, a catch-up-only departure, and a member
	//        who joined during the invoice year (all-zero)
	// WHEN: Aggregating
	// THEN: Only the row with a positive full-year due counts as active

	rows := []dues.MemberResult{
		resultFor("active", dues.TierCommunityBased, date(2020, time.January, 1), nil, 2025),
		resultFor("left", dues.TierCommunityBased, date(2024, time.March, 1), leaveOn(2024, time.May, 1), 2025),
		resultFor("new", dues.TierCommunityBased, date(2025, time.February, 1), nil, 2025),
	}

	s := dues.Aggregate(rows, invoice(2025, "0", "1"), zerolog.Nop())

	assert.Equal(t, 1, s.ActiveMembers)
	assert.Equal(t, "2.01", s.TotalProrated.StringFixed(2))
	assert.Equal(t, 3, s.TotalProratedMonths)
}

func TestAggregate_EmptyInputProducesZeroSummary(t *testing.T) {
	s := dues.Aggregate(nil, invoice(2025, "7.7", "0.94"), zerolog.Nop())

	assert.True(t, s.BaseTotal.IsZero())
	assert.True(t, s.TotalWithTax.IsZero())
	assert.True(t, s.Local.TotalWithTax.IsZero())
	assert.Equal(t, 0, s.ActiveMembers)
}

// =============================================================================
// LOCAL-CURRENCY ORDERING
// =============================================================================

func TestAggregate_LocalConversionRoundsPerSubAmountBeforeSumming(t *testing.T) {
	// GIVEN: Cent-level sums where the conversion order changes the result
	//        (fullYear sum 0.01, prorated sum 0.01, rate 0.5)
	// WHEN: Aggregating
	// THEN: The engine converts and rounds each sub-amount before adding:
	//         round2(0.01*0.5) + round2(0.01*0.5) = 0.01 + 0.01 = 0.02
	//       while sum-then-convert would give round2(0.02*0.5) = 0.01 —
	//       the two orders must actually differ on this input

	rows := []dues.MemberResult{
		handRow("full-cent", "0.01", "0.00", 0),
		handRow("pro-cent", "0.00", "0.01", 1),
	}
	inv := invoice(2025, "0", "0.5")

	s := dues.Aggregate(rows, inv, zerolog.Nop())

	perSubAmount := s.TotalFullYear.Mul(inv.CurrencyRate).Round(2).
		Add(s.TotalProrated.Mul(inv.CurrencyRate).Round(2)).Round(2)
	sumThenConvert := s.TotalFullYear.Add(s.TotalProrated).Round(2).
		Mul(inv.CurrencyRate).Round(2)

	require.False(t, perSubAmount.Equal(sumThenConvert),
		"input must distinguish the two rounding orders")
	assert.Equal(t, "0.02", s.Local.Base.StringFixed(2))
	assert.True(t, s.Local.Base.Equal(perSubAmount))
}

func TestAggregate_RowLocalCellsAgreeWithSummaryMethod(t *testing.T) {
	// GIVEN: A roster where per-row and summary conversions both apply
	// WHEN: Converting one row via LocalBreakdown
	// THEN: The row follows the same per-sub-amount order (convert, round,
	//       then add) as the summary

	r := resultFor("ben", dues.TierUniversityBased, date(2024, time.June, 15), nil, 2025)
	inv := invoice(2025, "10", "0.94")

	la := dues.LocalBreakdown(r.Breakdown, inv)

	wantFullYear := r.Breakdown.FullYear.Mul(inv.CurrencyRate).Round(2)
	wantProrated := r.Breakdown.Prorated.Mul(inv.CurrencyRate).Round(2)
	assert.True(t, la.FullYear.Equal(wantFullYear))
	assert.True(t, la.Prorated.Equal(wantProrated))
	assert.True(t, la.Base.Equal(wantFullYear.Add(wantProrated).Round(2)))
	assert.True(t, la.TotalWithTax.Equal(la.Base.Add(la.Tax).Round(2)))
}

// =============================================================================
// FAILURE POLICY
// =============================================================================

func TestAggregate_ExcludesMalformedRowsAndContinues(t *testing.T) {
	// GIVEN: A valid row, a row with a malformed member, and a row whose
	//        breakdown violates the total invariant
	// WHEN: Aggregating
	// THEN: The bad rows are logged and excluded; the pass completes with
	//       the valid row's contribution only

	bad := resultFor("ghost", dues.TierCommunityBased, date(2020, time.January, 1), nil, 2025)
	bad.Member.Name = "" // fails validation

	skewed := resultFor("skewed", dues.TierCommunityBased, date(2020, time.January, 1), nil, 2025)
	skewed.Breakdown.Total = dec("99.99") // breaks total == round2(fullYear+prorated)

	rows := []dues.MemberResult{
		resultFor("anna", dues.TierCommunityBased, date(2020, time.January, 1), nil, 2025),
		bad,
		skewed,
	}

	var buf bytes.Buffer
	log := zerolog.New(&buf)

	s := dues.Aggregate(rows, invoice(2025, "0", "1"), log)

	assert.Equal(t, "8.00", s.BaseTotal.StringFixed(2))
	assert.Equal(t, 1, s.ActiveMembers)
	assert.Contains(t, buf.String(), "ghost")
	assert.Contains(t, buf.String(), "skewed")
}
