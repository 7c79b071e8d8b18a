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

func TestMarkPaidUndoSkip_StateMachine(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	today := calendar.MustParse("2026-02-10")
	p := e.addPayment(t, "Electric", "72.40", "2026-02-08", recurrence.MonthlyDOM)
	_, err := e.generator.GenerateAhead(ctx, today, 40)
	require.NoError(t, err)

	overdue := e.occurrenceOn(t, p.ID, "2026-02-08", payment.StatusScheduled)
	assert.True(t, overdue.IsOverdue(today))

	paid, err := e.actions.MarkPaid(ctx, overdue.ID, decimal.NullDecimal{}, calendar.NullDate{}, today)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, paid.Status)
	assert.True(t, paid.AmountPaid.Decimal.Equal(money("72.40")))
	assert.Equal(t, today, paid.PaidDate.Date)
	assert.False(t, paid.IsOverdue(today))

	_, err = e.actions.MarkPaid(ctx, overdue.ID, decimal.NullDecimal{}, calendar.NullDate{}, today)
	assert.True(t, isInvalidState(err), "completed cannot be paid again: %v", err)
	_, err = e.actions.Skip(ctx, overdue.ID)
	assert.True(t, isInvalidState(err))

	undone, err := e.actions.Undo(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusScheduled, undone.Status)
	assert.False(t, undone.AmountPaid.Valid)
	assert.False(t, undone.PaidDate.Valid)

	_, err = e.actions.Undo(ctx, overdue.ID)
	assert.True(t, isInvalidState(err), "undo needs a completed occurrence")

	skipped, err := e.actions.Skip(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSkipped, skipped.Status)

	for _, act := range []func() error{
		func() error { _, err := e.actions.Skip(ctx, overdue.ID); return err },
		func() error { _, err := e.actions.Undo(ctx, overdue.ID); return err },
		func() error {
			_, err := e.actions.MarkPaid(ctx, overdue.ID, decimal.NullDecimal{}, calendar.NullDate{}, today)
			return err
		},
	} {
		assert.True(t, isInvalidState(act()), "skipped is terminal")
	}
}

func TestMarkPaid_CustomAmountDateAndValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	today := calendar.MustParse("2026-02-10")
	p := e.addPayment(t, "Card", "300", "2026-02-12", recurrence.MonthlyDOM)
	_, err := e.generator.GenerateAhead(ctx, today, 10)
	require.NoError(t, err)
	occ := e.occurrenceOn(t, p.ID, "2026-02-12", payment.StatusScheduled)

	_, err = e.actions.MarkPaid(ctx, occ.ID, decimal.NewNullDecimal(money("-1")), calendar.NullDate{}, today)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount_paid", verr.Field)
	assert.Equal(t, payment.StatusScheduled, e.occurrenceOn(t, p.ID, "2026-02-12", payment.StatusScheduled).Status)

	_, err = e.actions.MarkPaid(ctx, occ.ID, decimal.NewNullDecimal(money("150.555")), calendar.NullDate{}, today)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount_paid", verr.Field)
	assert.Equal(t, payment.StatusScheduled, e.occurrenceOn(t, p.ID, "2026-02-12", payment.StatusScheduled).Status)

	paid, err := e.actions.MarkPaid(ctx, occ.ID, decimal.NewNullDecimal(money("150")), calendar.NewNullDate(calendar.MustParse("2026-02-09")), today)
	require.NoError(t, err)
	assert.True(t, paid.AmountPaid.Decimal.Equal(money("150")))
	assert.Equal(t, "2026-02-09", paid.PaidDate.String())
	assert.True(t, paid.ExpectedAmount.Equal(money("300")))

	_, err = e.actions.MarkPaid(ctx, 9999, decimal.NullDecimal{}, calendar.NullDate{}, today)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.generator.GenerateAhead(ctx, today, 40)
	require.NoError(t, err)
	next := e.occurrenceOn(t, p.ID, "2026-03-12", payment.StatusScheduled)
	waived, err := e.actions.MarkPaid(ctx, next.ID, decimal.NewNullDecimal(decimal.Zero), calendar.NullDate{}, today)
	require.NoError(t, err)
	assert.True(t, waived.AmountPaid.Valid)
	assert.True(t, waived.AmountPaid.Decimal.IsZero(), "an explicit zero is not replaced by the expected amount")
	assert.Equal(t, "2026-02-10", waived.PaidDate.String())
}

func TestPaidOff_CancelsOnlyFutureScheduled(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addPayment(t, "Loan", "100", "2026-01-01", recurrence.Weekly)
	_, err := e.generator.GenerateAhead(ctx, calendar.MustParse("2026-01-01"), 35)
	require.NoError(t, err)
	// 01-01, 01-08, 01-15, 01-22, 01-29, 02-05
	paidOcc := e.occurrenceOn(t, p.ID, "2026-01-08", payment.StatusScheduled)
	_, err = e.actions.MarkPaid(ctx, paidOcc.ID, decimal.NullDecimal{}, calendar.NullDate{}, calendar.MustParse("2026-01-08"))
	require.NoError(t, err)

	today := calendar.MustParse("2026-01-15")
	updated, res, err := e.actions.PaidOff(ctx, p.ID, today)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, today, updated.PaidOffDate.Date)
	assert.Equal(t, 4, res.Canceled)

	views := e.occurrences(t, p.ID)
	assert.Equal(t, []string{"2026-01-01"}, dueDates(views, payment.StatusScheduled), "past scheduled rows are kept")
	assert.Equal(t, []string{"2026-01-08"}, dueDates(views, payment.StatusCompleted))
	assert.Equal(t, []string{"2026-01-15", "2026-01-22", "2026-01-29", "2026-02-05"}, dueDates(views, payment.StatusCanceled))

	_, _, err = e.actions.PaidOff(ctx, p.ID, today)
	assert.True(t, isInvalidState(err))

	gen, err := e.generator.GenerateAhead(ctx, calendar.MustParse("2026-01-16"), testHorizon)
	require.NoError(t, err)
	assert.Zero(t, gen.Generated, "inactive payments never generate")
}

func TestReactivate_RefillsWithoutResurrecting(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addPayment(t, "Stream", "15", "2026-01-10", recurrence.MonthlyDOM)
	_, err := e.generator.GenerateAhead(ctx, calendar.MustParse("2026-01-01"), 60)
	require.NoError(t, err)

	_, _, err = e.actions.Reactivate(ctx, p.ID, calendar.MustParse("2026-01-05"), 60)
	assert.True(t, isInvalidState(err), "active payments cannot be reactivated")

	_, res, err := e.actions.PaidOff(ctx, p.ID, calendar.MustParse("2026-01-05"))
	require.NoError(t, err)
	require.Equal(t, 2, res.Canceled)

	updated, res, err := e.actions.Reactivate(ctx, p.ID, calendar.MustParse("2026-02-01"), 60)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.False(t, updated.PaidOffDate.Valid)
	assert.Equal(t, 2, res.Generated)

	views := e.occurrences(t, p.ID)
	assert.Equal(t, []string{"2026-01-10", "2026-02-10"}, dueDates(views, payment.StatusCanceled))
	assert.Equal(t, []string{"2026-02-10", "2026-03-10"}, dueDates(views, payment.StatusScheduled))
}

func TestEditPayment_RebuildsOnlyFutureScheduled(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addPayment(t, "Tuition", "100", "2026-01-05", recurrence.MonthlyDOM)
	_, err := e.generator.GenerateAhead(ctx, calendar.MustParse("2026-01-01"), 200)
	require.NoError(t, err)
	require.Len(t, e.occurrences(t, p.ID), 7)

	for _, due := range []string{"2026-01-05", "2026-02-05"} {
		occ := e.occurrenceOn(t, p.ID, due, payment.StatusScheduled)
		_, err := e.actions.MarkPaid(ctx, occ.ID, decimal.NullDecimal{}, calendar.NullDate{}, calendar.MustParse(due))
		require.NoError(t, err)
	}

	in := PaymentInput{
		Name:           "Tuition",
		ExpectedAmount: money("150"),
		InitialDueDate: calendar.MustParse("2026-01-05"),
		RecurrenceType: recurrence.MonthlyDOM,
	}
	today := calendar.MustParse("2026-02-10")
	updated, res, err := e.actions.EditPayment(ctx, p.ID, in, today, 150)
	require.NoError(t, err)
	assert.True(t, updated.ExpectedAmount.Equal(money("150")))
	assert.Equal(t, 5, res.Canceled)
	assert.Equal(t, 5, res.Generated)

	views := e.occurrences(t, p.ID)
	future := []string{"2026-03-05", "2026-04-05", "2026-05-05", "2026-06-05", "2026-07-05"}
	assert.Equal(t, future, dueDates(views, payment.StatusCanceled))
	assert.Equal(t, future, dueDates(views, payment.StatusScheduled))
	for _, v := range views {
		switch v.Status {
		case payment.StatusCompleted:
			assert.True(t, v.ExpectedAmount.Equal(money("100")), "completed snapshot %s changed", v.DueDate)
		case payment.StatusScheduled:
			assert.True(t, v.ExpectedAmount.Equal(money("150")), "rebuilt row %s has old amount", v.DueDate)
		}
	}
}

func TestEditPayment_ValidationHasNoEffect(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.addPayment(t, "Water", "40", "2026-02-10", recurrence.MonthlyDOM)
	_, err := e.generator.GenerateAhead(ctx, calendar.MustParse("2026-02-01"), 30)
	require.NoError(t, err)

	bad := PaymentInput{Name: "Water", ExpectedAmount: money("-5"), InitialDueDate: p.InitialDueDate, RecurrenceType: recurrence.MonthlyDOM}
	_, _, err = e.actions.EditPayment(ctx, p.ID, bad, calendar.MustParse("2026-02-01"), 30)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := e.paySvc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpectedAmount.Equal(money("40")))
	assert.Equal(t, []string{"2026-02-10"}, dueDates(e.occurrences(t, p.ID), payment.StatusScheduled))

	_, _, err = e.actions.EditPayment(ctx, 404, PaymentInput{Name: "x", InitialDueDate: p.InitialDueDate, RecurrenceType: recurrence.Weekly}, calendar.MustParse("2026-02-01"), 30)
	assert.ErrorIs(t, err, ErrNotFound)
}
