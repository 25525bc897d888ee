package report_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubdesk/dues-engine/dues"
	"github.com/clubdesk/dues-engine/report"
)

func rowFor(name string, tier dues.Tier, join dues.Date, leave *dues.Date, year int) dues.MemberResult {
	return dues.MemberResult{
		Member: dues.Member{
			ID:        dues.MemberID(name),
			Name:      name,
			Tier:      tier,
			JoinDate:  join,
			LeaveDate: leave,
		},
		Breakdown: dues.Compute(join, tier, year, leave),
	}
}

func TestBuild_FlattensRowsAndSummary(t *testing.T) {
	// GIVEN: A committed pass with an active member, a catch-up-only
	//        departure, and an all-zero newcomer
	// WHEN: Building the report document
	// THEN: Rows carry display-ready strings; total_members counts all
	//       roster rows while active follows the full-year rule

	leave := dues.NewDate(2024, time.May, 1)
	rows := []dues.MemberResult{
		rowFor("Anna", dues.TierCommunityBased, dues.NewDate(2020, time.January, 1), nil, 2025),
		rowFor("Ben", dues.TierCommunityBased, dues.NewDate(2024, time.March, 1), &leave, 2025),
		rowFor("Cleo", dues.TierUniversityBased, dues.NewDate(2025, time.April, 1), nil, 2025),
	}
	inv := dues.InvoiceContext{
		InvoiceYear:  2025,
		TaxPercent:   decimal.RequireFromString("10"),
		CurrencyRate: decimal.RequireFromString("1"),
	}
	summary := dues.Aggregate(rows, inv, zerolog.Nop())

	doc := report.Build(rows, summary, inv)

	assert.Equal(t, 2025, doc.InvoiceYear)
	assert.False(t, doc.GeneratedAt.IsZero())
	require.Len(t, doc.Rows, 3)

	anna := doc.Rows[0]
	assert.Equal(t, "Anna", anna.Name)
	assert.Equal(t, "CommunityBased", anna.ClubTier)
	assert.Equal(t, "2020-01-01", anna.JoinDate)
	assert.Empty(t, anna.LeaveDate)
	assert.Equal(t, "8.00", anna.DueAmount)
	assert.True(t, anna.ActiveMember)
	assert.Equal(t, 0, anna.ProratedMonths)

	ben := doc.Rows[1]
	assert.Equal(t, "2024-05-01", ben.LeaveDate)
	assert.Equal(t, "2.01", ben.DueAmount)
	assert.False(t, ben.ActiveMember, "catch-up-only rows are not active")
	assert.Equal(t, 3, ben.ProratedMonths)

	cleo := doc.Rows[2]
	assert.Equal(t, "0.00", cleo.DueAmount)
	assert.False(t, cleo.ActiveMember)

	assert.Equal(t, "10.01", doc.Summary.BaseAmount) // 8.00 + 2.01
	assert.Equal(t, "1.00", doc.Summary.TaxAmount)   // 0.80 + 0.20
	assert.Equal(t, "11.01", doc.Summary.TotalAmount)
	assert.Equal(t, 3, doc.Summary.TotalMembers)
	assert.Equal(t, 3, doc.Summary.TotalProratedMonths)
}

func TestBuild_EmptyPassProducesEmptyDocument(t *testing.T) {
	inv := dues.InvoiceContext{
		InvoiceYear:  2025,
		TaxPercent:   decimal.Zero,
		CurrencyRate: decimal.NewFromInt(1),
	}
	summary := dues.Aggregate(nil, inv, zerolog.Nop())

	doc := report.Build(nil, summary, inv)

	assert.Empty(t, doc.Rows)
	assert.Equal(t, 0, doc.Summary.TotalMembers)
	assert.Equal(t, "0.00", doc.Summary.TotalAmount)
}
