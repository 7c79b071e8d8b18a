package database

import (
	"context"
	"fmt"
)

// sqliteSchema stores dates as ISO TEXT and money as decimal TEXT.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pay_schedule (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    anchor_payday TEXT NOT NULL,
    timezone TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS app_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    due_soon_days INTEGER NOT NULL DEFAULT 5,
    daily_summary_time TEXT NOT NULL DEFAULT '07:00',
    telegram_enabled BOOLEAN NOT NULL DEFAULT 0,
    telegram_chat_id TEXT NOT NULL DEFAULT '',
    generation_horizon_days INTEGER NOT NULL DEFAULT 90,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    expected_amount TEXT NOT NULL,
    initial_due_date TEXT NOT NULL,
    recurrence_type TEXT NOT NULL CHECK (recurrence_type IN ('one_time', 'weekly', 'biweekly', 'monthly_dom', 'yearly')),
    priority INTEGER,
    is_active BOOLEAN NOT NULL DEFAULT 1,
    paid_off_date TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS occurrences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    payment_id INTEGER NOT NULL REFERENCES payments(id),
    due_date TEXT NOT NULL,
    expected_amount TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'skipped', 'canceled')),
    amount_paid TEXT,
    paid_date TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS occurrences_payment_due_live ON occurrences(payment_id, due_date) WHERE status <> 'canceled';
CREATE INDEX IF NOT EXISTS idx_occurrences_due_date ON occurrences(due_date);
CREATE INDEX IF NOT EXISTS idx_occurrences_paid_date ON occurrences(paid_date);

CREATE TABLE IF NOT EXISTS job_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_name TEXT NOT NULL,
    run_date TEXT NOT NULL,
    run_id TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    UNIQUE (job_name, run_date)
);

CREATE TABLE IF NOT EXISTS notification_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    channel TEXT NOT NULL,
    bucket_date TEXT NOT NULL,
    dedup_key TEXT NOT NULL,
    occurrence_id INTEGER REFERENCES occurrences(id),
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'sent', 'error')),
    telegram_message_id TEXT,
    error_message TEXT,
    attempt_count INTEGER NOT NULL DEFAULT 0,
    delivered_at DATETIME,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    UNIQUE (type, channel, bucket_date, dedup_key)
);

CREATE TABLE IF NOT EXISTS notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    occurrence_id INTEGER REFERENCES occurrences(id),
    is_read BOOLEAN NOT NULL DEFAULT 0,
    read_at DATETIME,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(is_read, created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pay_schedule (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    anchor_payday DATE NOT NULL,
    timezone TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS app_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    due_soon_days INTEGER NOT NULL DEFAULT 5,
    daily_summary_time TEXT NOT NULL DEFAULT '07:00',
    telegram_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    telegram_chat_id TEXT NOT NULL DEFAULT '',
    generation_horizon_days INTEGER NOT NULL DEFAULT 90,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    expected_amount NUMERIC(12,2) NOT NULL CHECK (expected_amount >= 0),
    initial_due_date DATE NOT NULL,
    recurrence_type TEXT NOT NULL CHECK (recurrence_type IN ('one_time', 'weekly', 'biweekly', 'monthly_dom', 'yearly')),
    priority INTEGER,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    paid_off_date DATE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS occurrences (
    id BIGSERIAL PRIMARY KEY,
    payment_id BIGINT NOT NULL REFERENCES payments(id),
    due_date DATE NOT NULL,
    expected_amount NUMERIC(12,2) NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'skipped', 'canceled')),
    amount_paid NUMERIC(12,2),
    paid_date DATE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS occurrences_payment_due_live ON occurrences(payment_id, due_date) WHERE status <> 'canceled';
CREATE INDEX IF NOT EXISTS idx_occurrences_due_date ON occurrences(due_date);
CREATE INDEX IF NOT EXISTS idx_occurrences_paid_date ON occurrences(paid_date);

CREATE TABLE IF NOT EXISTS job_runs (
    id BIGSERIAL PRIMARY KEY,
    job_name TEXT NOT NULL,
    run_date DATE NOT NULL,
    run_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT job_runs_name_date_unique UNIQUE (job_name, run_date)
);

CREATE TABLE IF NOT EXISTS notification_log (
    id BIGSERIAL PRIMARY KEY,
    type TEXT NOT NULL,
    channel TEXT NOT NULL,
    bucket_date DATE NOT NULL,
    dedup_key TEXT NOT NULL,
    occurrence_id BIGINT REFERENCES occurrences(id),
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'sent', 'error')),
    telegram_message_id TEXT,
    error_message TEXT,
    attempt_count INTEGER NOT NULL DEFAULT 0,
    delivered_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT notification_log_bucket_unique UNIQUE (type, channel, bucket_date, dedup_key)
);

CREATE TABLE IF NOT EXISTS notifications (
    id BIGSERIAL PRIMARY KEY,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    occurrence_id BIGINT REFERENCES occurrences(id),
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    read_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(is_read, created_at);
`

// Migrate creates every table and index if missing. It is safe to run on each start.
func Migrate(ctx context.Context, db *DB) error {
	schema := sqliteSchema
	if db.Dialect == DialectPostgres {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run %s migrations: %w", db.Dialect, err)
	}
	return nil
}
