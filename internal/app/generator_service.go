// internal/app/generator_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/payment"
	idb "paytrack/internal/infra/database"
)

// GenerationResult summarises one generate-ahead pass.
type GenerationResult struct {
	Payments  int
	Generated int
}

// OccurrenceGenerator materialises scheduled occurrences up to a rolling horizon.
type OccurrenceGenerator struct {
	payments payment.Repository
	log      *logrus.Entry
}

func NewOccurrenceGenerator(pr payment.Repository, log *logrus.Entry) *OccurrenceGenerator {
	return &OccurrenceGenerator{payments: pr, log: log.WithField("component", "generator")}
}

// GenerateAhead extends every active payment up to today+horizonDays.
// Each payment commits on its own; a failure on one does not stop the others.
func (g *OccurrenceGenerator) GenerateAhead(ctx context.Context, today calendar.Date, horizonDays int) (GenerationResult, error) {
	var result GenerationResult

	active, err := g.payments.ListActivePayments(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list active payments: %w", err)
	}

	var errs []error
	for _, p := range active {
		n, err := g.GenerateForPayment(ctx, p.ID, today, horizonDays)
		if err != nil {
			g.log.WithError(err).WithField("payment_id", p.ID).Error("Generation failed for payment")
			errs = append(errs, err)
			continue
		}
		result.Payments++
		result.Generated += n
	}

	g.log.WithFields(logrus.Fields{
		"today":     today.String(),
		"payments":  result.Payments,
		"generated": result.Generated,
	}).Info("Generate-ahead pass finished")
	return result, errors.Join(errs...)
}

// GenerateForPayment extends one payment strictly after its latest non-canceled due date,
// or from its initial due date when it has none.
func (g *OccurrenceGenerator) GenerateForPayment(ctx context.Context, paymentID int64, today calendar.Date, horizonDays int) (int, error) {
	generated := 0
	err := g.payments.RunInTx(ctx, func(tx payment.Repository) error {
		p, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, idb.ErrPaymentNotFound) {
				return notFound("payment", paymentID)
			}
			return err
		}
		if !p.IsActive {
			return nil
		}

		latest, err := tx.LatestDueDate(ctx, p.ID)
		if err != nil {
			return err
		}

		horizon := today.AddDays(horizonDays)
		rule := p.Rule()
		dates := rule.From(p.InitialDueDate, horizon)
		if latest.Valid {
			dates = rule.After(latest.Date, horizon)
		}

		generated, err = g.insertScheduled(ctx, tx, p, dates)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to generate occurrences for payment %d: %w", paymentID, err)
	}
	return generated, nil
}

// generateWithin fills [today, today+horizonDays] on the payment's own date lattice.
// The caller holds the payment lock inside tx.
func (g *OccurrenceGenerator) generateWithin(ctx context.Context, tx payment.Repository, p *payment.Payment, today calendar.Date, horizonDays int) (int, error) {
	if !p.IsActive {
		return 0, nil
	}
	return g.insertScheduled(ctx, tx, p, p.Rule().Within(p.InitialDueDate, today, today.AddDays(horizonDays)))
}

func (g *OccurrenceGenerator) insertScheduled(ctx context.Context, tx payment.Repository, p *payment.Payment, dates iter.Seq[calendar.Date]) (int, error) {
	inserted := 0
	for due := range dates {
		ok, err := tx.InsertOccurrence(ctx, &payment.Occurrence{
			PaymentID:      p.ID,
			DueDate:        due,
			ExpectedAmount: p.ExpectedAmount,
			Status:         payment.StatusScheduled,
		})
		if err != nil {
			return inserted, err
		}
		if !ok {
			g.log.WithFields(logrus.Fields{"payment_id": p.ID, "due_date": due.String()}).Debug("Occurrence already exists")
			continue
		}
		inserted++
	}
	return inserted, nil
}
