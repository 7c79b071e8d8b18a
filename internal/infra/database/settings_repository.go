package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paytrack/internal/domain/settings"
)

var ErrSettingsNotFound = fmt.Errorf("settings row not found")

type SettingsRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db.DB, dialect: db.Dialect}
}

func (r *SettingsRepository) EnsureDefaults(ctx context.Context, schedule *settings.PaySchedule, app *settings.AppSettings) error {
	now := nowUTC()
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO pay_schedule (id, anchor_payday, timezone, updated_at)
               VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`),
		settings.SingletonID, schedule.AnchorPayday, schedule.Timezone, now)
	if err != nil {
		return fmt.Errorf("error seeding pay schedule: %w", err)
	}
	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO app_settings (id, due_soon_days, daily_summary_time, telegram_enabled, telegram_chat_id, generation_horizon_days, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`),
		settings.SingletonID, app.DueSoonDays, app.DailySummaryTime, app.TelegramEnabled, app.TelegramChatID, app.GenerationHorizonDays, now)
	if err != nil {
		return fmt.Errorf("error seeding app settings: %w", err)
	}
	return nil
}

func (r *SettingsRepository) GetPaySchedule(ctx context.Context) (*settings.PaySchedule, error) {
	s := &settings.PaySchedule{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT id, anchor_payday, timezone, updated_at FROM pay_schedule WHERE id = ?`),
		settings.SingletonID).Scan(&s.ID, &s.AnchorPayday, &s.Timezone, timestamp{&s.UpdatedAt})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("error getting pay schedule: %w", err)
	}
	return s, nil
}

func (r *SettingsRepository) UpdatePaySchedule(ctx context.Context, s *settings.PaySchedule) error {
	now := nowUTC()
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE pay_schedule SET anchor_payday = ?, timezone = ?, updated_at = ? WHERE id = ?`),
		s.AnchorPayday, s.Timezone, now, settings.SingletonID)
	if err != nil {
		return fmt.Errorf("error updating pay schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSettingsNotFound
	}
	s.UpdatedAt = now
	return nil
}

func (r *SettingsRepository) GetAppSettings(ctx context.Context) (*settings.AppSettings, error) {
	s := &settings.AppSettings{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT id, due_soon_days, daily_summary_time, telegram_enabled, telegram_chat_id, generation_horizon_days, updated_at
               FROM app_settings WHERE id = ?`), settings.SingletonID).
		Scan(&s.ID, &s.DueSoonDays, &s.DailySummaryTime, &s.TelegramEnabled, &s.TelegramChatID, &s.GenerationHorizonDays, timestamp{&s.UpdatedAt})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("error getting app settings: %w", err)
	}
	return s, nil
}

func (r *SettingsRepository) UpdateAppSettings(ctx context.Context, s *settings.AppSettings) error {
	now := nowUTC()
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE app_settings
               SET due_soon_days = ?, daily_summary_time = ?, telegram_enabled = ?, telegram_chat_id = ?, generation_horizon_days = ?, updated_at = ?
               WHERE id = ?`),
		s.DueSoonDays, s.DailySummaryTime, s.TelegramEnabled, s.TelegramChatID, s.GenerationHorizonDays, now, settings.SingletonID)
	if err != nil {
		return fmt.Errorf("error updating app settings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSettingsNotFound
	}
	s.UpdatedAt = now
	return nil
}
