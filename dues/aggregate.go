/*
aggregate.go - Roster-wide summary construction

PURPOSE:
  Folds the per-member breakdowns of one completed pass, plus the tax and
  currency settings, into the invoice summary. This answers "what does the
  whole roster owe?" in both home and local currency.

KEY INSIGHT:
  The order of rounding is load-bearing. Tax is computed separately on the
  summed full-year amount and the summed catch-up amount (the display must
  show the split by category), and local-currency conversion rounds each
  sub-amount BEFORE adding:

    localBase = round2(totalFullYear*rate) + round2(totalProrated*rate)

  which differs at cent level from round2((totalFullYear+totalProrated)*rate).
  Per-row local cells (LocalBreakdown) follow the identical per-sub-amount
  order so rows and summary always agree in method.

EXAMPLE:
  totalFullYear = 0.01, totalProrated = 0.01, rate = 0.5:
    per sub-amount:  round2(0.005) + round2(0.005) = 0.01 + 0.01 = 0.02
    sum-then-convert: round2(0.02 * 0.5)                         = 0.01

FAILURE POLICY:
  A malformed row (invalid member or out-of-invariant breakdown reaching
  aggregation despite upstream checks) is excluded and logged; the pass
  itself never aborts.

SEE ALSO:
  - proration.go: produces the breakdowns consumed here
  - format.go: renders summary and row values for display
*/
package dues

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Aggregate folds member results and an invoice context into a Summary.
// Rows that fail validation are skipped and reported on log; everything
// else contributes. An empty input produces the all-zero summary.
func Aggregate(results []MemberResult, inv InvoiceContext, log zerolog.Logger) Summary {
	var (
		totalFullYear = decimal.Zero
		totalProrated = decimal.Zero
		baseTotal     = decimal.Zero
		active        int
		months        int
	)

	// 1. Sum components across members, skipping malformed rows.
	for _, r := range results {
		if err := ValidateMember(r.Member); err != nil {
			log.Warn().
				Str("member_id", string(r.Member.ID)).
				Err(err).
				Msg("excluding malformed member from aggregation")
			continue
		}
		if err := ValidateBreakdown(r.Breakdown); err != nil {
			log.Warn().
				Str("member_id", string(r.Member.ID)).
				Err(err).
				Msg("excluding out-of-invariant breakdown from aggregation")
			continue
		}

		totalFullYear = totalFullYear.Add(r.Breakdown.FullYear)
		totalProrated = totalProrated.Add(r.Breakdown.Prorated)
		baseTotal = baseTotal.Add(r.Breakdown.Total)
		if r.Breakdown.FullYear.IsPositive() {
			active++
		}
		months += r.Breakdown.ProratedMonths
	}

	// 2. Tax per category, never on the combined total.
	taxOnFullYear := round2(totalFullYear.Mul(inv.TaxPercent).Div(hundred))
	taxOnProrated := round2(totalProrated.Mul(inv.TaxPercent).Div(hundred))
	taxTotal := taxOnFullYear.Add(taxOnProrated)

	// 3. Local currency per sub-amount, then summed.
	localFullYear := round2(totalFullYear.Mul(inv.CurrencyRate))
	localProrated := round2(totalProrated.Mul(inv.CurrencyRate))
	localBase := round2(localFullYear.Add(localProrated))
	localTaxOnFullYear := round2(localFullYear.Mul(inv.TaxPercent).Div(hundred))
	localTaxOnProrated := round2(localProrated.Mul(inv.TaxPercent).Div(hundred))
	localTax := localTaxOnFullYear.Add(localTaxOnProrated)

	// 4. Tax-inclusive totals.
	totalWithTax := round2(baseTotal.Add(taxTotal))
	localWithTax := round2(localBase.Add(localTax))

	return Summary{
		TotalFullYear:       totalFullYear,
		TotalProrated:       totalProrated,
		BaseTotal:           baseTotal,
		TaxOnFullYear:       taxOnFullYear,
		TaxOnProrated:       taxOnProrated,
		TaxTotal:            taxTotal,
		TotalWithTax:        totalWithTax,
		ActiveMembers:       active,
		TotalProratedMonths: months,
		Local: LocalTotals{
			FullYear:      localFullYear,
			Prorated:      localProrated,
			Base:          localBase,
			TaxOnFullYear: localTaxOnFullYear,
			TaxOnProrated: localTaxOnProrated,
			Tax:           localTax,
			TotalWithTax:  localWithTax,
		},
	}
}

// LocalBreakdown converts a single row's amounts to local currency using
// the same per-sub-amount checkpoint order as the summary.
func LocalBreakdown(b Breakdown, inv InvoiceContext) LocalAmounts {
	fullYear := round2(b.FullYear.Mul(inv.CurrencyRate))
	prorated := round2(b.Prorated.Mul(inv.CurrencyRate))
	base := round2(fullYear.Add(prorated))
	taxOnFullYear := round2(fullYear.Mul(inv.TaxPercent).Div(hundred))
	taxOnProrated := round2(prorated.Mul(inv.TaxPercent).Div(hundred))
	tax := taxOnFullYear.Add(taxOnProrated)
	return LocalAmounts{
		FullYear:     fullYear,
		Prorated:     prorated,
		Base:         base,
		Tax:          tax,
		TotalWithTax: round2(base.Add(tax)),
	}
}
