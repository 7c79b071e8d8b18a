// internal/domain/notification/shared_types.go
package notification

import "fmt"

// Channel is a delivery target.
type Channel string

const (
	ChannelInApp    Channel = "in_app"
	ChannelTelegram Channel = "telegram"
)

// Type identifies the kind of notification.
type Type string

const (
	TypeDueSoon      Type = "due_soon"
	TypeOverdue      Type = "overdue"
	TypeDailySummary Type = "daily_summary"
)

// OccurrenceDedupKey keys due-soon and overdue notices; at most one per occurrence per day.
func OccurrenceDedupKey(occurrenceID int64) string {
	return fmt.Sprintf("occ:%d", occurrenceID)
}

// DailySummaryDedupKey keys the once-a-day summary.
const DailySummaryDedupKey = "daily-summary"
