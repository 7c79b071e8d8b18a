package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"paytrack/internal/domain/calendar"
)

// Status is the persisted lifecycle state of an occurrence.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusCanceled  Status = "canceled"
)

var Statuses = []Status{StatusScheduled, StatusCompleted, StatusSkipped, StatusCanceled}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusSkipped, StatusCanceled:
		return true
	}
	return false
}

// Occurrence is one materialized due date of a payment.
// ExpectedAmount is a snapshot taken at generation time.
type Occurrence struct {
	ID             int64
	PaymentID      int64
	DueDate        calendar.Date
	ExpectedAmount decimal.Decimal
	Status         Status
	AmountPaid     decimal.NullDecimal
	PaidDate       calendar.NullDate
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOverdue is derived at read time and never stored.
func (o *Occurrence) IsOverdue(today calendar.Date) bool {
	return o.Status == StatusScheduled && o.DueDate.Before(today)
}

// DisplayStatus folds the overdue predicate into the status for presentation.
func (o *Occurrence) DisplayStatus(today calendar.Date) string {
	if o.IsOverdue(today) {
		return "overdue"
	}
	return string(o.Status)
}

// OccurrenceView is an occurrence joined with its payment's name.
type OccurrenceView struct {
	Occurrence
	PaymentName string
}
