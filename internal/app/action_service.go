// internal/app/action_service.go
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/payment"
	idb "paytrack/internal/infra/database"
)

// RebuildResult reports the effect of an edit, paid-off or reactivate on future occurrences.
type RebuildResult struct {
	Canceled  int
	Generated int
}

// ActionProcessor applies user actions to occurrences and payments.
// Every action runs in one transaction holding the owning payment's lock.
type ActionProcessor struct {
	payments  payment.Repository
	generator *OccurrenceGenerator
	log       *logrus.Entry
}

func NewActionProcessor(pr payment.Repository, gen *OccurrenceGenerator, log *logrus.Entry) *ActionProcessor {
	return &ActionProcessor{payments: pr, generator: gen, log: log.WithField("component", "actions")}
}

// MarkPaid completes a scheduled (possibly overdue) occurrence.
// A NULL amount or date defaults to the expected amount and today; an explicit zero amount is kept.
func (a *ActionProcessor) MarkPaid(ctx context.Context, occurrenceID int64, amount decimal.NullDecimal, paidDate calendar.NullDate, today calendar.Date) (*payment.Occurrence, error) {
	if amount.Valid && amount.Decimal.IsNegative() {
		return nil, invalid("amount_paid", "must be non-negative")
	}
	if amount.Valid && !wholeCents(amount.Decimal) {
		return nil, invalid("amount_paid", "must not have more than two decimal places")
	}

	return a.transition(ctx, occurrenceID, "mark paid", func(o *payment.Occurrence) error {
		if o.Status != payment.StatusScheduled {
			return &InvalidStateError{Entity: "occurrence", ID: o.ID, From: string(o.Status), Action: "mark paid"}
		}
		o.Status = payment.StatusCompleted
		o.AmountPaid = decimal.NewNullDecimal(o.ExpectedAmount)
		if amount.Valid {
			o.AmountPaid = amount
		}
		o.PaidDate = calendar.NewNullDate(today)
		if paidDate.Valid {
			o.PaidDate = paidDate
		}
		return nil
	})
}

// Undo reverts a completed occurrence to scheduled and clears the paid fields.
func (a *ActionProcessor) Undo(ctx context.Context, occurrenceID int64) (*payment.Occurrence, error) {
	return a.transition(ctx, occurrenceID, "undo", func(o *payment.Occurrence) error {
		if o.Status != payment.StatusCompleted {
			return &InvalidStateError{Entity: "occurrence", ID: o.ID, From: string(o.Status), Action: "undo"}
		}
		o.Status = payment.StatusScheduled
		o.AmountPaid = decimal.NullDecimal{}
		o.PaidDate = calendar.NullDate{}
		return nil
	})
}

// Skip marks a scheduled occurrence skipped. No replacement row is created;
// the next natural date appears on a later generation pass.
func (a *ActionProcessor) Skip(ctx context.Context, occurrenceID int64) (*payment.Occurrence, error) {
	return a.transition(ctx, occurrenceID, "skip", func(o *payment.Occurrence) error {
		if o.Status != payment.StatusScheduled {
			return &InvalidStateError{Entity: "occurrence", ID: o.ID, From: string(o.Status), Action: "skip"}
		}
		o.Status = payment.StatusSkipped
		return nil
	})
}

func (a *ActionProcessor) transition(ctx context.Context, occurrenceID int64, action string, apply func(*payment.Occurrence) error) (*payment.Occurrence, error) {
	var result *payment.Occurrence
	err := a.payments.RunInTx(ctx, func(tx payment.Repository) error {
		o, err := a.lockOccurrence(ctx, tx, occurrenceID)
		if err != nil {
			return err
		}
		if err := apply(o); err != nil {
			return err
		}
		if err := tx.UpdateOccurrence(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"occurrence_id": result.ID,
		"payment_id":    result.PaymentID,
		"status":        result.Status,
	}).Infof("Occurrence %s", action)
	return result, nil
}

// lockOccurrence locks the owning payment first, then re-reads the occurrence under that lock.
func (a *ActionProcessor) lockOccurrence(ctx context.Context, tx payment.Repository, id int64) (*payment.Occurrence, error) {
	o, err := tx.GetOccurrence(ctx, id)
	if err != nil {
		if errors.Is(err, idb.ErrOccurrenceNotFound) {
			return nil, notFound("occurrence", id)
		}
		return nil, err
	}
	if _, err := tx.LockPayment(ctx, o.PaymentID); err != nil {
		return nil, err
	}
	return tx.GetOccurrence(ctx, id)
}

func lockPayment(ctx context.Context, tx payment.Repository, id int64) (*payment.Payment, error) {
	p, err := tx.LockPayment(ctx, id)
	if err != nil {
		if errors.Is(err, idb.ErrPaymentNotFound) {
			return nil, notFound("payment", id)
		}
		return nil, err
	}
	return p, nil
}

// PaidOff deactivates a payment and cancels its scheduled occurrences due today or later.
// Past-due scheduled rows stay as they are.
func (a *ActionProcessor) PaidOff(ctx context.Context, paymentID int64, today calendar.Date) (*payment.Payment, RebuildResult, error) {
	var (
		p   *payment.Payment
		res RebuildResult
	)
	err := a.payments.RunInTx(ctx, func(tx payment.Repository) error {
		var err error
		if p, err = lockPayment(ctx, tx, paymentID); err != nil {
			return err
		}
		if !p.IsActive {
			return &InvalidStateError{Entity: "payment", ID: p.ID, From: "inactive", Action: "mark paid off"}
		}
		p.IsActive = false
		p.PaidOffDate = calendar.NewNullDate(today)
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		res.Canceled, err = tx.CancelScheduledFrom(ctx, p.ID, today)
		return err
	})
	if err != nil {
		return nil, RebuildResult{}, err
	}

	a.log.WithFields(logrus.Fields{"payment_id": p.ID, "canceled": res.Canceled}).Info("Payment marked paid off")
	return p, res, nil
}

// Reactivate turns a paid-off payment back on and fills the horizon right away.
// Canceled rows are never resurrected.
func (a *ActionProcessor) Reactivate(ctx context.Context, paymentID int64, today calendar.Date, horizonDays int) (*payment.Payment, RebuildResult, error) {
	var (
		p   *payment.Payment
		res RebuildResult
	)
	err := a.payments.RunInTx(ctx, func(tx payment.Repository) error {
		var err error
		if p, err = lockPayment(ctx, tx, paymentID); err != nil {
			return err
		}
		if p.IsActive {
			return &InvalidStateError{Entity: "payment", ID: p.ID, From: "active", Action: "reactivate"}
		}
		p.IsActive = true
		p.PaidOffDate = calendar.NullDate{}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		res.Generated, err = a.generator.generateWithin(ctx, tx, p, today, horizonDays)
		return err
	})
	if err != nil {
		return nil, RebuildResult{}, err
	}

	a.log.WithFields(logrus.Fields{"payment_id": p.ID, "generated": res.Generated}).Info("Payment reactivated")
	return p, res, nil
}

// EditPayment applies new fields, cancels scheduled rows due today or later and
// regenerates [today, today+horizon] from the edited payment. Earlier rows and
// non-scheduled rows are left untouched.
func (a *ActionProcessor) EditPayment(ctx context.Context, paymentID int64, in PaymentInput, today calendar.Date, horizonDays int) (*payment.Payment, RebuildResult, error) {
	if err := in.Validate(); err != nil {
		return nil, RebuildResult{}, err
	}

	var (
		p   *payment.Payment
		res RebuildResult
	)
	err := a.payments.RunInTx(ctx, func(tx payment.Repository) error {
		var err error
		if p, err = lockPayment(ctx, tx, paymentID); err != nil {
			return err
		}
		in.applyTo(p)
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		if res.Canceled, err = tx.CancelScheduledFrom(ctx, p.ID, today); err != nil {
			return err
		}
		res.Generated, err = a.generator.generateWithin(ctx, tx, p, today, horizonDays)
		return err
	})
	if err != nil {
		return nil, RebuildResult{}, fmt.Errorf("edit payment %d: %w", paymentID, err)
	}

	a.log.WithFields(logrus.Fields{
		"payment_id": p.ID,
		"canceled":   res.Canceled,
		"generated":  res.Generated,
	}).Info("Payment edited and future occurrences rebuilt")
	return p, res, nil
}
