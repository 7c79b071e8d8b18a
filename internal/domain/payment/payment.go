// internal/domain/payment/payment.go
package payment

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/recurrence"
)

// Payment is a recurring or one-time obligation. Rows are never physically deleted.
type Payment struct {
	ID             int64
	Name           string
	ExpectedAmount decimal.Decimal
	InitialDueDate calendar.Date
	RecurrenceType recurrence.Type
	Priority       sql.NullInt32
	IsActive       bool
	PaidOffDate    calendar.NullDate
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Rule returns the recurrence rule anchored at the initial due date.
func (p *Payment) Rule() recurrence.Rule {
	return recurrence.NewRule(p.RecurrenceType, p.InitialDueDate)
}
