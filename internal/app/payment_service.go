// internal/app/payment_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/payment"
	"paytrack/internal/domain/recurrence"
	idb "paytrack/internal/infra/database"
)

// PaymentInput carries the user-editable payment fields.
type PaymentInput struct {
	Name           string
	ExpectedAmount decimal.Decimal
	InitialDueDate calendar.Date
	RecurrenceType recurrence.Type
	Priority       sql.NullInt32
}

// ParsePaymentInput builds an input from raw text fields; priority may be empty.
func ParsePaymentInput(name, amount, initialDue, recurrenceType, priority string) (PaymentInput, error) {
	in := PaymentInput{Name: strings.TrimSpace(name)}

	amt, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(amount), "$"))
	if err != nil {
		return in, invalid("expected_amount", "%q is not a number", amount)
	}
	in.ExpectedAmount = amt

	due, err := calendar.Parse(strings.TrimSpace(initialDue))
	if err != nil {
		return in, invalid("initial_due_date", "%q is not a YYYY-MM-DD date", initialDue)
	}
	in.InitialDueDate = due

	typ, err := recurrence.ParseType(recurrenceType)
	if err != nil {
		return in, invalid("recurrence_type", "%q is not one of one_time, weekly, biweekly, monthly_dom, yearly", recurrenceType)
	}
	in.RecurrenceType = typ

	if p := strings.TrimSpace(priority); p != "" {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return in, invalid("priority", "%q is not an integer", priority)
		}
		in.Priority = sql.NullInt32{Int32: int32(v), Valid: true}
	}
	return in, in.Validate()
}

func (in PaymentInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return invalid("name", "is required")
	case in.ExpectedAmount.IsNegative():
		return invalid("expected_amount", "must be non-negative")
	case !wholeCents(in.ExpectedAmount):
		return invalid("expected_amount", "must not have more than two decimal places")
	case in.InitialDueDate.IsZero():
		return invalid("initial_due_date", "is required")
	case !in.RecurrenceType.Valid():
		return invalid("recurrence_type", "%q is not supported", in.RecurrenceType)
	}
	return nil
}

func (in PaymentInput) applyTo(p *payment.Payment) {
	p.Name = strings.TrimSpace(in.Name)
	p.ExpectedAmount = in.ExpectedAmount
	p.InitialDueDate = in.InitialDueDate
	p.RecurrenceType, _ = recurrence.ParseType(string(in.RecurrenceType))
	p.Priority = in.Priority
}

// PaymentService handles creating and reading payments.
type PaymentService struct {
	payments  payment.Repository
	generator *OccurrenceGenerator
	log       *logrus.Entry
}

func NewPaymentService(pr payment.Repository, gen *OccurrenceGenerator, log *logrus.Entry) *PaymentService {
	return &PaymentService{payments: pr, generator: gen, log: log.WithField("component", "payments")}
}

// CreatePayment stores a new active payment and materialises its occurrences up to the horizon.
func (s *PaymentService) CreatePayment(ctx context.Context, in PaymentInput, today calendar.Date, horizonDays int) (*payment.Payment, int, error) {
	if err := in.Validate(); err != nil {
		return nil, 0, err
	}

	p := &payment.Payment{IsActive: true}
	in.applyTo(p)
	if err := s.payments.CreatePayment(ctx, p); err != nil {
		return nil, 0, fmt.Errorf("failed to create payment in repository: %w", err)
	}

	generated, err := s.generator.GenerateForPayment(ctx, p.ID, today, horizonDays)
	if err != nil {
		// The payment exists; the next daily pass will fill its occurrences.
		s.log.WithError(err).WithField("payment_id", p.ID).Warn("Initial generation failed")
	}

	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "name": p.Name, "generated": generated}).Info("Payment created")
	return p, generated, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*payment.Payment, error) {
	p, err := s.payments.GetPayment(ctx, id)
	if err != nil {
		if errors.Is(err, idb.ErrPaymentNotFound) {
			return nil, notFound("payment", id)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListPayments returns active payments first, then by name.
func (s *PaymentService) ListPayments(ctx context.Context) ([]*payment.Payment, error) {
	return s.payments.ListPayments(ctx)
}

// wholeCents reports whether d fits the NUMERIC(12,2) amount columns without rounding.
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}
