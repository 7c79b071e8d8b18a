package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/paycycle"
)

func occ(due string, status Status, amount string) *Occurrence {
	return &Occurrence{DueDate: calendar.MustParse(due), Status: status, ExpectedAmount: decimal.RequireFromString(amount)}
}

func paid(o *Occurrence, on, amount string) *Occurrence {
	o.Status = StatusCompleted
	o.PaidDate = calendar.NewNullDate(calendar.MustParse(on))
	o.AmountPaid = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	return o
}

func TestCalculateTotals(t *testing.T) {
	cycle := paycycle.Cycle{Start: calendar.MustParse("2026-01-16"), End: calendar.MustParse("2026-01-29")}
	occs := []*Occurrence{
		occ("2026-01-16", StatusScheduled, "100"),
		occ("2026-01-20", StatusSkipped, "30"),
		occ("2026-01-29", StatusCanceled, "999"),
		paid(occ("2026-01-22", StatusScheduled, "50"), "2026-01-22", "55"),
		paid(occ("2026-01-10", StatusScheduled, "70"), "2026-01-17", "70"),
		paid(occ("2026-01-25", StatusScheduled, "20"), "2026-02-02", "20"),
		occ("2026-01-30", StatusScheduled, "500"),
	}

	got := CalculateTotals(occs, cycle)
	assert.Equal(t, "200", got.Scheduled.String())
	assert.Equal(t, "125", got.Paid.String())
	assert.Equal(t, "30", got.Skipped.String())
	assert.Equal(t, "100", got.Remaining.String())
}

func TestCalculateTotals_Empty(t *testing.T) {
	got := CalculateTotals(nil, paycycle.Cycle{Start: calendar.MustParse("2026-01-16"), End: calendar.MustParse("2026-01-29")})
	assert.True(t, got.Scheduled.IsZero())
	assert.True(t, got.Paid.IsZero())
	assert.True(t, got.Remaining.IsZero())
}

func TestIsOverdue(t *testing.T) {
	today := calendar.MustParse("2026-02-10")
	assert.True(t, occ("2026-02-09", StatusScheduled, "1").IsOverdue(today))
	assert.False(t, occ("2026-02-10", StatusScheduled, "1").IsOverdue(today))
	assert.False(t, occ("2026-02-09", StatusSkipped, "1").IsOverdue(today))
	assert.Equal(t, "overdue", occ("2026-02-01", StatusScheduled, "1").DisplayStatus(today))
	assert.Equal(t, "completed", paid(occ("2026-02-01", StatusScheduled, "1"), "2026-02-02", "1").DisplayStatus(today))
}
