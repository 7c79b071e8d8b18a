// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"

	"paytrack/internal/domain/calendar"
)

// Repository persists the delivery log and the in-app inbox.
type Repository interface {
	// TryClaim inserts a pending log row; false means another caller already holds the key.
	TryClaim(ctx context.Context, entry *LogEntry) (bool, error)
	MarkSent(ctx context.Context, id int64, messageID string, attempts int, at time.Time) error
	MarkError(ctx context.Context, id int64, message string, attempts int) error
	GetLogEntry(ctx context.Context, typ Type, channel Channel, bucket calendar.Date, key string) (*LogEntry, error)
	ListLogByBucket(ctx context.Context, bucket calendar.Date) ([]*LogEntry, error)

	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]*Notification, error)
	MarkAllNotificationsRead(ctx context.Context, at time.Time) (int, error)
	CountUnread(ctx context.Context) (int, error)
}
