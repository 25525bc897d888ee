/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract: dates travel
  as YYYY-MM-DD strings, money as fixed two-decimal strings, and every
  row carries its pre-rendered display strings so the presentation layer
  never re-derives a number.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Requests are converted to domain types here (date parsing); invariant
  checks live in dues.ValidateMember / dues.ValidateInvoiceContext and
  run in the handlers.

SEE ALSO:
  - handlers.go: Uses these types
  - report package: the /api/report document shape
*/
package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubdesk/dues-engine/dues"
	"github.com/clubdesk/dues-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MemberDTO represents a roster member in API responses.
type MemberDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ClubTier  string  `json:"club_tier"`
	JoinDate  string  `json:"join_date"`
	LeaveDate *string `json:"leave_date,omitempty"`
}

// MemberRequest is the request body for creating or updating a member.
type MemberRequest struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ClubTier  string  `json:"club_tier"`
	JoinDate  string  `json:"join_date"`
	LeaveDate *string `json:"leave_date,omitempty"`
}

// SettingsDTO represents the invoice context in API responses.
type SettingsDTO struct {
	InvoiceYear   int    `json:"invoice_year"`
	TaxPercentage string `json:"tax_percentage"`
	CurrencyRate  string `json:"currency_rate"`
}

// SettingsRequest is the request body for replacing the invoice
// context. Tax and rate accept JSON numbers or numeric strings.
type SettingsRequest struct {
	InvoiceYear   int             `json:"invoice_year"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	CurrencyRate  decimal.Decimal `json:"currency_rate"`
}

// BreakdownDTO is a member's due split plus its display string.
type BreakdownDTO struct {
	FullYear       string `json:"full_year"`
	Prorated       string `json:"prorated"`
	Total          string `json:"total"`
	ProratedMonths int    `json:"prorated_months"`
	Display        string `json:"display"`
}

// LocalAmountsDTO is a row's local-currency cells plus the
// tax-inclusive display string.
type LocalAmountsDTO struct {
	FullYear     string `json:"full_year"`
	Prorated     string `json:"prorated"`
	Base         string `json:"base"`
	Tax          string `json:"tax"`
	TotalWithTax string `json:"total_with_tax"`
	Display      string `json:"display"`
}

// RowDTO is one committed per-member result.
type RowDTO struct {
	Member    MemberDTO       `json:"member"`
	Active    bool            `json:"active"`
	Breakdown BreakdownDTO    `json:"breakdown"`
	Local     LocalAmountsDTO `json:"local"`
}

// SummaryDTO is the committed roster-wide summary.
type SummaryDTO struct {
	Epoch               uint64          `json:"epoch"`
	CompletedAt         string          `json:"completed_at,omitempty"`
	InvoiceYear         int             `json:"invoice_year"`
	TotalFullYear       string          `json:"total_full_year"`
	TotalProrated       string          `json:"total_prorated"`
	BaseTotal           string          `json:"base_total"`
	TaxOnFullYear       string          `json:"tax_on_full_year"`
	TaxOnProrated       string          `json:"tax_on_prorated"`
	TaxTotal            string          `json:"tax_total"`
	TotalWithTax        string          `json:"total_with_tax"`
	ActiveMembers       int             `json:"active_members"`
	TotalMembers        int             `json:"total_members"`
	TotalProratedMonths int             `json:"total_prorated_months"`
	Display             string          `json:"display"`
	Local               LocalTotalsDTO  `json:"local"`
}

// LocalTotalsDTO mirrors the summary in local currency.
type LocalTotalsDTO struct {
	FullYear      string `json:"full_year"`
	Prorated      string `json:"prorated"`
	Base          string `json:"base"`
	TaxOnFullYear string `json:"tax_on_full_year"`
	TaxOnProrated string `json:"tax_on_prorated"`
	Tax           string `json:"tax"`
	TotalWithTax  string `json:"total_with_tax"`
	Display       string `json:"display"`
}

// StatusDTO is the engine's operational snapshot.
type StatusDTO struct {
	Epoch          uint64        `json:"epoch"`
	LastCommitted  uint64        `json:"last_committed"`
	RosterSize     int           `json:"roster_size"`
	Cache          CacheStatsDTO `json:"cache"`
	DebounceMillis int64         `json:"debounce_ms"`
	SliceSize      int           `json:"slice_size"`
}

// CacheStatsDTO reports calculation cache effectiveness.
type CacheStatsDTO struct {
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     int    `json:"members"`
}

// SnapshotResultDTO reports a snapshot save or load.
type SnapshotResultDTO struct {
	Members     int    `json:"members"`
	InvoiceYear int    `json:"invoice_year"`
	SavedAt     string `json:"saved_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toMemberDTO(m dues.Member) MemberDTO {
	dto := MemberDTO{
		ID:       string(m.ID),
		Name:     m.Name,
		ClubTier: string(m.Tier),
		JoinDate: m.JoinDate.String(),
	}
	if m.LeaveDate != nil {
		leave := m.LeaveDate.String()
		dto.LeaveDate = &leave
	}
	return dto
}

// memberFromRequest converts a request body to a domain member. A
// missing id gets a generated UUID; invariant validation is left to the
// caller.
func memberFromRequest(req MemberRequest) (dues.Member, error) {
	m := dues.Member{
		ID:   dues.MemberID(req.ID),
		Name: req.Name,
		Tier: dues.Tier(req.ClubTier),
	}
	if m.ID == "" {
		m.ID = dues.MemberID(uuid.NewString())
	}

	join, err := dues.ParseDate(req.JoinDate)
	if err != nil {
		return dues.Member{}, fmt.Errorf("join_date: %w", err)
	}
	m.JoinDate = join

	if req.LeaveDate != nil && *req.LeaveDate != "" {
		leave, err := dues.ParseDate(*req.LeaveDate)
		if err != nil {
			return dues.Member{}, fmt.Errorf("leave_date: %w", err)
		}
		m.LeaveDate = &leave
	}
	return m, nil
}

func toSettingsDTO(inv dues.InvoiceContext) SettingsDTO {
	return SettingsDTO{
		InvoiceYear:   inv.InvoiceYear,
		TaxPercentage: inv.TaxPercent.String(),
		CurrencyRate:  inv.CurrencyRate.String(),
	}
}

func toBreakdownDTO(b dues.Breakdown) BreakdownDTO {
	return BreakdownDTO{
		FullYear:       b.FullYear.StringFixed(2),
		Prorated:       b.Prorated.StringFixed(2),
		Total:          b.Total.StringFixed(2),
		ProratedMonths: b.ProratedMonths,
		Display:        dues.FormatBreakdown(b),
	}
}

func toRowDTO(r dues.MemberResult, inv dues.InvoiceContext) RowDTO {
	la := dues.LocalBreakdown(r.Breakdown, inv)
	return RowDTO{
		Member:    toMemberDTO(r.Member),
		Active:    r.Breakdown.FullYear.IsPositive(),
		Breakdown: toBreakdownDTO(r.Breakdown),
		Local: LocalAmountsDTO{
			FullYear:     la.FullYear.StringFixed(2),
			Prorated:     la.Prorated.StringFixed(2),
			Base:         la.Base.StringFixed(2),
			Tax:          la.Tax.StringFixed(2),
			TotalWithTax: la.TotalWithTax.StringFixed(2),
			Display:      dues.FormatTaxInclusive(la.Base, la.Tax, la.TotalWithTax),
		},
	}
}

func toRowDTOs(rows []dues.MemberResult, inv dues.InvoiceContext) []RowDTO {
	dtos := make([]RowDTO, len(rows))
	for i, r := range rows {
		dtos[i] = toRowDTO(r, inv)
	}
	return dtos
}

func toSummaryDTO(res engine.Results, inv dues.InvoiceContext) SummaryDTO {
	s := res.Summary
	dto := SummaryDTO{
		Epoch:               res.Epoch,
		InvoiceYear:         inv.InvoiceYear,
		TotalFullYear:       s.TotalFullYear.StringFixed(2),
		TotalProrated:       s.TotalProrated.StringFixed(2),
		BaseTotal:           s.BaseTotal.StringFixed(2),
		TaxOnFullYear:       s.TaxOnFullYear.StringFixed(2),
		TaxOnProrated:       s.TaxOnProrated.StringFixed(2),
		TaxTotal:            s.TaxTotal.StringFixed(2),
		TotalWithTax:        s.TotalWithTax.StringFixed(2),
		ActiveMembers:       s.ActiveMembers,
		TotalMembers:        len(res.Rows),
		TotalProratedMonths: s.TotalProratedMonths,
		Display:             dues.FormatTaxInclusive(s.BaseTotal, s.TaxTotal, s.TotalWithTax),
		Local: LocalTotalsDTO{
			FullYear:      s.Local.FullYear.StringFixed(2),
			Prorated:      s.Local.Prorated.StringFixed(2),
			Base:          s.Local.Base.StringFixed(2),
			TaxOnFullYear: s.Local.TaxOnFullYear.StringFixed(2),
			TaxOnProrated: s.Local.TaxOnProrated.StringFixed(2),
			Tax:           s.Local.Tax.StringFixed(2),
			TotalWithTax:  s.Local.TotalWithTax.StringFixed(2),
			Display:       dues.FormatTaxInclusive(s.Local.Base, s.Local.Tax, s.Local.TotalWithTax),
		},
	}
	if !res.CompletedAt.IsZero() {
		dto.CompletedAt = res.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}
