// internal/domain/notification/status.go
package notification

import (
	"database/sql"
	"time"

	"paytrack/internal/domain/calendar"
)

// DeliveryStatus tracks what happened after a dedup claim.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryError   DeliveryStatus = "error"
)

// LogEntry is a notification_log row. The row itself is the dedup claim:
// (Type, Channel, BucketDate, DedupKey) is unique.
type LogEntry struct {
	ID                int64
	Type              Type
	Channel           Channel
	BucketDate        calendar.Date
	DedupKey          string
	OccurrenceID      sql.NullInt64
	Status            DeliveryStatus
	TelegramMessageID sql.NullString
	ErrorMessage      sql.NullString
	AttemptCount      int
	DeliveredAt       sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
