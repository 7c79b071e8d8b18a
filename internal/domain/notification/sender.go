// internal/domain/notification/sender.go
package notification

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"paytrack/internal/domain/calendar"
)

// Item is one occurrence listed in a message.
type Item struct {
	OccurrenceID int64
	PaymentName  string
	DueDate      calendar.Date
	Amount       decimal.Decimal
}

// Payload is a channel-neutral message. Lines are plain text; channels apply their own markup.
type Payload struct {
	Type      Type
	Recipient string
	Title     string
	Lines     []string
	Items     []Item
}

// Receipt is what a channel reports back after a successful send.
type Receipt struct {
	MessageID string
}

// Sender delivers a payload on one channel.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, p Payload) (Receipt, error)
}

// TransportError wraps a channel failure. Retryable marks transient failures (timeouts, rate limits).
type TransportError struct {
	Channel   Channel
	Retryable bool
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
