/*
Package report flattens committed recompute results into the input
contract of the report-rendering worker.

PURPOSE:
  The rendering worker expects plain rows and a plain summary — names,
  dates as strings, amounts as fixed two-decimal strings — with no
  decimal types or roster internals. Build performs that flattening from
  an already-committed pass; it never re-runs any calculation.

SEE ALSO:
  - engine.Committed: the pass this package flattens
  - api/handlers.go: the /api/report endpoint serving the document
*/
package report

import (
	"time"

	"github.com/clubdesk/dues-engine/dues"
)

// Row is one member line of the report document.
type Row struct {
	Name           string `json:"name"`
	ClubTier       string `json:"club_tier"`
	JoinDate       string `json:"join_date"`
	LeaveDate      string `json:"leave_date,omitempty"`
	DueAmount      string `json:"due_amount"`
	ActiveMember   bool   `json:"active_member"`
	ProratedMonths int    `json:"prorated_months"`
}

// Summary is the report's aggregate block. Amounts are in the engine's
// home currency; TotalMembers counts every roster row, active or not.
type Summary struct {
	BaseAmount          string `json:"base_amount"`
	TaxAmount           string `json:"tax_amount"`
	TotalAmount         string `json:"total_amount"`
	TotalMembers        int    `json:"total_members"`
	TotalProratedMonths int    `json:"total_prorated_months"`
}

// Document is the full input handed to the rendering worker.
type Document struct {
	InvoiceYear int       `json:"invoice_year"`
	GeneratedAt time.Time `json:"generated_at"`
	Rows        []Row     `json:"rows"`
	Summary     Summary   `json:"summary"`
}

// Build flattens a committed pass into the worker's document. A member
// is active when their full-year due is positive — the same rule the
// aggregation uses for the active count.
func Build(rows []dues.MemberResult, summary dues.Summary, inv dues.InvoiceContext) Document {
	out := Document{
		InvoiceYear: inv.InvoiceYear,
		GeneratedAt: time.Now().UTC(),
		Rows:        make([]Row, 0, len(rows)),
		Summary: Summary{
			BaseAmount:          summary.BaseTotal.StringFixed(2),
			TaxAmount:           summary.TaxTotal.StringFixed(2),
			TotalAmount:         summary.TotalWithTax.StringFixed(2),
			TotalMembers:        len(rows),
			TotalProratedMonths: summary.TotalProratedMonths,
		},
	}

	for _, r := range rows {
		row := Row{
			Name:           r.Member.Name,
			ClubTier:       string(r.Member.Tier),
			JoinDate:       r.Member.JoinDate.String(),
			DueAmount:      r.Breakdown.Total.StringFixed(2),
			ActiveMember:   r.Breakdown.FullYear.IsPositive(),
			ProratedMonths: r.Breakdown.ProratedMonths,
		}
		if r.Member.LeaveDate != nil {
			row.LeaveDate = r.Member.LeaveDate.String()
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
