// internal/domain/payment/repository.go
package payment

import (
	"context"

	"paytrack/internal/domain/calendar"
)

// Sort orders for occurrence listings.
const (
	SortDueAsc   = "due_asc"
	SortDueDesc  = "due_desc"
	SortPaidDesc = "paid_desc"
)

// OccurrenceFilter narrows ListOccurrences. Zero values mean "no constraint".
type OccurrenceFilter struct {
	PaymentID int64
	Statuses  []Status
	// DueFrom/DueTo bound due_date only (cycle views).
	DueFrom calendar.NullDate
	DueTo   calendar.NullDate
	// From/To match rows whose due_date OR paid_date falls inside (history views).
	From   calendar.NullDate
	To     calendar.NullDate
	Query  string
	Sort   string
	Limit  int
	Offset int
}

// Repository persists payments and their occurrences.
type Repository interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	// LockPayment reads the payment and, inside a transaction, holds its row lock until commit.
	LockPayment(ctx context.Context, id int64) (*Payment, error)
	UpdatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context) ([]*Payment, error)
	ListActivePayments(ctx context.Context) ([]*Payment, error)

	// InsertOccurrence returns false when a non-canceled row for (payment_id, due_date) already exists.
	InsertOccurrence(ctx context.Context, o *Occurrence) (bool, error)
	GetOccurrence(ctx context.Context, id int64) (*Occurrence, error)
	UpdateOccurrence(ctx context.Context, o *Occurrence) error
	// LatestDueDate returns the greatest due_date among the payment's non-canceled occurrences.
	LatestDueDate(ctx context.Context, paymentID int64) (calendar.NullDate, error)
	// CancelScheduledFrom cancels scheduled occurrences with due_date >= from.
	CancelScheduledFrom(ctx context.Context, paymentID int64, from calendar.Date) (int, error)
	ListOccurrences(ctx context.Context, f OccurrenceFilter) ([]*OccurrenceView, error)
	CountOccurrences(ctx context.Context, f OccurrenceFilter) (int, error)
	// ListOccurrencesTouching returns rows with due_date or paid_date in [start, end].
	ListOccurrencesTouching(ctx context.Context, start, end calendar.Date) ([]*Occurrence, error)

	// RunInTx runs fn against a transaction-bound repository; nested calls reuse the transaction.
	RunInTx(ctx context.Context, fn func(Repository) error) error
}
