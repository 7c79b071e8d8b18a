package notification

import (
	"database/sql"
	"time"
)

// Notification is an in-app inbox item.
type Notification struct {
	ID           int64
	Type         Type
	Title        string
	Body         string
	OccurrenceID sql.NullInt64
	IsRead       bool
	ReadAt       sql.NullTime
	CreatedAt    time.Time
}
