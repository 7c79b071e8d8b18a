package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/payment"
	"paytrack/internal/domain/recurrence"
)

func TestGetTotals_OverduePaidInLaterCycle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addPayment(t, "Dentist", "100", "2026-01-20", recurrence.OneTime)
	_, err := e.generator.GenerateAhead(ctx, calendar.MustParse("2026-01-16"), testHorizon)
	require.NoError(t, err)

	c1, err := e.cycles.GetCycle(ctx, calendar.MustParse("2026-01-20"))
	require.NoError(t, err)
	require.Equal(t, "2026-01-16..2026-01-29", c1.String())
	c2, err := e.cycles.GetCycle(ctx, calendar.MustParse("2026-02-02"))
	require.NoError(t, err)
	require.Equal(t, "2026-01-30..2026-02-12", c2.String())

	before, err := e.cycles.GetTotals(ctx, c1)
	require.NoError(t, err)
	assert.True(t, before.Remaining.Equal(money("100")))

	occ := e.occurrenceOn(t, p.ID, "2026-01-20", payment.StatusScheduled)
	_, err = e.actions.MarkPaid(ctx, occ.ID, decimal.NullDecimal{}, calendar.NullDate{}, calendar.MustParse("2026-02-02"))
	require.NoError(t, err)

	t1, err := e.cycles.GetTotals(ctx, c1)
	require.NoError(t, err)
	assert.True(t, t1.Scheduled.Equal(money("100")))
	assert.True(t, t1.Paid.IsZero(), "paid belongs to the cycle of paid_date")
	assert.True(t, t1.Remaining.IsZero())

	t2, err := e.cycles.GetTotals(ctx, c2)
	require.NoError(t, err)
	assert.True(t, t2.Paid.Equal(money("100")))
	assert.True(t, t2.Scheduled.IsZero())
}

func TestTotals_RemainingNeverNegative(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.addPayment(t, "A", "10.50", "2026-01-16", recurrence.Weekly)
	b := e.addPayment(t, "B", "0", "2026-01-17", recurrence.Biweekly)
	_, err := e.generator.GenerateAhead(ctx, calendar.MustParse("2026-01-16"), 28)
	require.NoError(t, err)

	cycle, err := e.cycles.GetCycle(ctx, calendar.MustParse("2026-01-16"))
	require.NoError(t, err)
	check := func() {
		tot, err := e.cycles.GetTotals(ctx, cycle)
		require.NoError(t, err)
		assert.False(t, tot.Remaining.IsNegative())
		assert.False(t, tot.Scheduled.IsNegative())
	}
	check()

	occA := e.occurrenceOn(t, a.ID, "2026-01-16", payment.StatusScheduled)
	_, err = e.actions.MarkPaid(ctx, occA.ID, decimal.NewNullDecimal(money("50")), calendar.NullDate{}, calendar.MustParse("2026-01-16"))
	require.NoError(t, err)
	check()

	occB := e.occurrenceOn(t, b.ID, "2026-01-17", payment.StatusScheduled)
	_, err = e.actions.Skip(ctx, occB.ID)
	require.NoError(t, err)
	check()

	_, err = e.actions.Undo(ctx, occA.ID)
	require.NoError(t, err)
	check()

	_, _, err = e.actions.PaidOff(ctx, a.ID, calendar.MustParse("2026-01-16"))
	require.NoError(t, err)
	check()

	tot, err := e.cycles.GetTotals(ctx, cycle)
	require.NoError(t, err)
	assert.True(t, tot.Skipped.IsZero(), "B is a zero amount payment")
	assert.True(t, tot.Remaining.IsZero())
}

func TestSnapshot_ExcludesCanceledAndWalksCycles(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addPayment(t, "Weekly", "20", "2026-01-16", recurrence.Weekly)
	today := calendar.MustParse("2026-01-16")
	_, err := e.generator.GenerateAhead(ctx, today, 28)
	require.NoError(t, err)

	_, _, err = e.actions.PaidOff(ctx, p.ID, calendar.MustParse("2026-01-23"))
	require.NoError(t, err)

	snap, err := e.cycles.Snapshot(ctx, today, 0)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-16..2026-01-29", snap.Cycle.String())
	require.Len(t, snap.Occurrences, 1)
	assert.Equal(t, "2026-01-16", snap.Occurrences[0].DueDate.String())
	assert.True(t, snap.Totals.Scheduled.Equal(money("20")))

	next, err := e.cycles.Snapshot(ctx, today, 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-30..2026-02-12", next.Cycle.String())
	assert.Empty(t, next.Occurrences)

	prev, err := e.cycles.Snapshot(ctx, today, -1)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02..2026-01-15", prev.Cycle.String())
}

func TestHistory_FiltersAndValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.addPayment(t, "Rent", "1000", "2026-01-01", recurrence.MonthlyDOM)
	e.addPayment(t, "Gas", "45", "2026-01-03", recurrence.MonthlyDOM)
	_, err := e.generator.GenerateAhead(ctx, calendar.MustParse("2026-01-01"), 45)
	require.NoError(t, err)

	page, err := e.cycles.History(ctx, payment.OccurrenceFilter{Query: "rent", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2026-02-01", page.Items[0].DueDate.String(), "default order is newest due date first")

	_, err = e.cycles.History(ctx, payment.OccurrenceFilter{Sort: "random"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = e.cycles.History(ctx, payment.OccurrenceFilter{Statuses: []payment.Status{"overdue"}})
	assert.ErrorAs(t, err, &verr)

	_, err = e.cycles.History(ctx, payment.OccurrenceFilter{
		From: calendar.NewNullDate(calendar.MustParse("2026-02-01")),
		To:   calendar.NewNullDate(calendar.MustParse("2026-01-01")),
	})
	assert.ErrorAs(t, err, &verr)
}
