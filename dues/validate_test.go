package dues_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubdesk/dues-engine/dues"
)

func validMember() dues.Member {
	return dues.Member{
		ID:       "m-1",
		Name:     "Anna",
		Tier:     dues.TierCommunityBased,
		JoinDate: date(2024, time.January, 1),
	}
}

func TestValidateMember(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*dues.Member)
		wantField string
	}{
		{"valid member passes", func(m *dues.Member) {}, ""},
		{"valid member with leave date passes", func(m *dues.Member) {
			m.LeaveDate = leaveOn(2024, time.June, 1)
		}, ""},
		{"blank name", func(m *dues.Member) { m.Name = "  " }, "name"},
		{"unknown tier", func(m *dues.Member) { m.Tier = "Corporate" }, "club_tier"},
		{"impossible join date", func(m *dues.Member) {
			m.JoinDate = date(2024, time.February, 30)
		}, "join_date"},
		{"impossible leave date", func(m *dues.Member) {
			m.LeaveDate = leaveOn(2024, time.April, 31)
		}, "leave_date"},
		{"leave before join", func(m *dues.Member) {
			m.LeaveDate = leaveOn(2023, time.December, 31)
		}, "leave_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMember()
			tt.mutate(&m)

			err := dues.ValidateMember(m)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, dues.IsInvalidInput(err))

			var verr *dues.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidateInvoiceContext(t *testing.T) {
	tests := []struct {
		name      string
		inv       dues.InvoiceContext
		wantField string
	}{
		{"valid context passes", invoice(2025, "7.7", "0.94"), ""},
		{"zero tax is allowed", invoice(2025, "0", "1"), ""},
		{"year below range", invoice(999, "0", "1"), "invoice_year"},
		{"year above range", invoice(10000, "0", "1"), "invoice_year"},
		{"negative tax", invoice(2025, "-1", "1"), "tax_percentage"},
		{"zero currency rate", invoice(2025, "0", "0"), "currency_rate"},
		{"negative currency rate", invoice(2025, "0", "-0.5"), "currency_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dues.ValidateInvoiceContext(tt.inv)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verr *dues.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidateBreakdown(t *testing.T) {
	good := dues.Compute(date(2024, time.June, 15), dues.TierUniversityBased, 2025, nil)
	assert.NoError(t, dues.ValidateBreakdown(good))

	skewed := good
	skewed.Total = dec("99.99")
	assert.Error(t, dues.ValidateBreakdown(skewed))

	negative := good
	negative.Prorated = dec("-1")
	assert.Error(t, dues.ValidateBreakdown(negative))

	months := good
	months.ProratedMonths = 13
	assert.Error(t, dues.ValidateBreakdown(months))
}
