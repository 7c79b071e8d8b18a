package payment

import (
	"github.com/shopspring/decimal"

	"paytrack/internal/domain/paycycle"
)

// Totals is the aggregate of one cycle window.
// Paid is a cash-flow figure keyed by paid_date; the others are obligation figures keyed by due_date.
type Totals struct {
	Scheduled decimal.Decimal
	Paid      decimal.Decimal
	Skipped   decimal.Decimal
	Remaining decimal.Decimal
}

// CalculateTotals aggregates occurrences against cycle; rows outside the window are ignored.
func CalculateTotals(occurrences []*Occurrence, cycle paycycle.Cycle) Totals {
	t := Totals{
		Scheduled: decimal.Zero,
		Paid:      decimal.Zero,
		Skipped:   decimal.Zero,
		Remaining: decimal.Zero,
	}
	for _, o := range occurrences {
		if cycle.Contains(o.DueDate) {
			switch o.Status {
			case StatusScheduled:
				t.Scheduled = t.Scheduled.Add(o.ExpectedAmount)
				t.Remaining = t.Remaining.Add(o.ExpectedAmount)
			case StatusCompleted:
				t.Scheduled = t.Scheduled.Add(o.ExpectedAmount)
			case StatusSkipped:
				t.Scheduled = t.Scheduled.Add(o.ExpectedAmount)
				t.Skipped = t.Skipped.Add(o.ExpectedAmount)
			}
		}
		if o.Status == StatusCompleted && o.PaidDate.Valid && cycle.Contains(o.PaidDate.Date) && o.AmountPaid.Valid {
			t.Paid = t.Paid.Add(o.AmountPaid.Decimal)
		}
	}
	return t
}
