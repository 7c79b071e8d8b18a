// internal/infra/database/notification_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/notification"
)

// Custom errors specific to notification repository
var ErrLogEntryNotFound = fmt.Errorf("notification log entry not found")

type NotificationRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db.DB, dialect: db.Dialect}
}

// --- Delivery log ---

func (r *NotificationRepository) TryClaim(ctx context.Context, e *notification.LogEntry) (bool, error) {
	query := r.dialect.Rebind(`INSERT INTO notification_log (type, channel, bucket_date, dedup_key, occurrence_id, status, attempt_count, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
               ON CONFLICT DO NOTHING
               RETURNING id`)
	now := nowUTC()
	err := r.db.QueryRowContext(ctx, query, e.Type, e.Channel, e.BucketDate, e.DedupKey, e.OccurrenceID,
		notification.DeliveryPending, now, now).Scan(&e.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error claiming notification: %w", err)
	}
	e.Status = notification.DeliveryPending
	e.CreatedAt, e.UpdatedAt = now, now
	return true, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, messageID string, attempts int, at time.Time) error {
	var msg sql.NullString
	if messageID != "" {
		msg = sql.NullString{String: messageID, Valid: true}
	}
	return r.finish(ctx, `UPDATE notification_log
               SET status = ?, telegram_message_id = ?, error_message = NULL, attempt_count = ?, delivered_at = ?, updated_at = ?
               WHERE id = ?`, notification.DeliverySent, msg, attempts, at.UTC(), nowUTC(), id)
}

func (r *NotificationRepository) MarkError(ctx context.Context, id int64, message string, attempts int) error {
	return r.finish(ctx, `UPDATE notification_log
               SET status = ?, error_message = ?, attempt_count = ?, updated_at = ?
               WHERE id = ?`, notification.DeliveryError, message, attempts, nowUTC(), id)
}

func (r *NotificationRepository) finish(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("error updating notification log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLogEntryNotFound
	}
	return nil
}

const logColumns = `id, type, channel, bucket_date, dedup_key, occurrence_id, status, telegram_message_id, error_message, attempt_count, delivered_at, created_at, updated_at`

func logDest(e *notification.LogEntry) []any {
	return []any{&e.ID, &e.Type, &e.Channel, &e.BucketDate, &e.DedupKey, &e.OccurrenceID, &e.Status,
		&e.TelegramMessageID, &e.ErrorMessage, &e.AttemptCount, nullTimestamp{&e.DeliveredAt},
		timestamp{&e.CreatedAt}, timestamp{&e.UpdatedAt}}
}

func (r *NotificationRepository) GetLogEntry(ctx context.Context, typ notification.Type, channel notification.Channel, bucket calendar.Date, key string) (*notification.LogEntry, error) {
	query := r.dialect.Rebind(`SELECT ` + logColumns + ` FROM notification_log
               WHERE type = ? AND channel = ? AND bucket_date = ? AND dedup_key = ?`)
	e := &notification.LogEntry{}
	if err := r.db.QueryRowContext(ctx, query, typ, channel, bucket, key).Scan(logDest(e)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLogEntryNotFound
		}
		return nil, fmt.Errorf("error getting notification log entry: %w", err)
	}
	return e, nil
}

func (r *NotificationRepository) ListLogByBucket(ctx context.Context, bucket calendar.Date) ([]*notification.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT `+logColumns+` FROM notification_log
               WHERE bucket_date = ? ORDER BY id`), bucket)
	if err != nil {
		return nil, fmt.Errorf("error listing notification log: %w", err)
	}
	defer rows.Close()

	entries := make([]*notification.LogEntry, 0)
	for rows.Next() {
		e := &notification.LogEntry{}
		if err := rows.Scan(logDest(e)...); err != nil {
			return nil, fmt.Errorf("error scanning notification log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification log: %w", err)
	}
	return entries, nil
}

// --- In-app inbox ---

func (r *NotificationRepository) CreateNotification(ctx context.Context, n *notification.Notification) error {
	query := r.dialect.Rebind(`INSERT INTO notifications (type, title, body, occurrence_id, is_read, created_at)
               VALUES (?, ?, ?, ?, FALSE, ?)
               RETURNING id`)
	now := nowUTC()
	if err := r.db.QueryRowContext(ctx, query, n.Type, n.Title, n.Body, n.OccurrenceID, now).Scan(&n.ID); err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	n.CreatedAt = now
	return nil
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	query := `SELECT id, type, title, body, occurrence_id, is_read, read_at, created_at FROM notifications`
	if unreadOnly {
		query += ` WHERE is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	items := make([]*notification.Notification, 0)
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.OccurrenceID, &n.IsRead,
			nullTimestamp{&n.ReadAt}, timestamp{&n.CreatedAt}); err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		items = append(items, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return items, nil
}

func (r *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE notifications SET is_read = TRUE, read_at = ? WHERE is_read = FALSE`), at.UTC())
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading updated count: %w", err)
	}
	return int(n), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE is_read = FALSE`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting unread notifications: %w", err)
	}
	return n, nil
}
