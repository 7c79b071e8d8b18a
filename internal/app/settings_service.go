package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/settings"
)

// SettingsDefaults seed the singleton rows on first start.
type SettingsDefaults struct {
	AnchorPayday          calendar.Date
	Timezone              string
	DueSoonDays           int
	DailySummaryTime      string
	GenerationHorizonDays int
	TelegramEnabled       bool
	TelegramChatID        string
}

type SettingsService struct {
	repo     settings.Repository
	defaults SettingsDefaults
	log      *logrus.Entry
}

func NewSettingsService(repo settings.Repository, defaults SettingsDefaults, log *logrus.Entry) *SettingsService {
	return &SettingsService{repo: repo, defaults: defaults, log: log.WithField("component", "settings")}
}

// EnsureSeeded inserts the defaults unless rows already exist.
func (s *SettingsService) EnsureSeeded(ctx context.Context) error {
	return s.repo.EnsureDefaults(ctx,
		&settings.PaySchedule{AnchorPayday: s.defaults.AnchorPayday, Timezone: s.defaults.Timezone},
		&settings.AppSettings{
			DueSoonDays:           s.defaults.DueSoonDays,
			DailySummaryTime:      s.defaults.DailySummaryTime,
			GenerationHorizonDays: s.defaults.GenerationHorizonDays,
			TelegramEnabled:       s.defaults.TelegramEnabled,
			TelegramChatID:        s.defaults.TelegramChatID,
		})
}

// Load returns both singletons, seeding them if this is a fresh database.
func (s *SettingsService) Load(ctx context.Context) (*settings.PaySchedule, *settings.AppSettings, error) {
	if err := s.EnsureSeeded(ctx); err != nil {
		return nil, nil, err
	}
	schedule, err := s.repo.GetPaySchedule(ctx)
	if err != nil {
		return nil, nil, err
	}
	app, err := s.repo.GetAppSettings(ctx)
	if err != nil {
		return nil, nil, err
	}
	return schedule, app, nil
}

// Now returns the current instant and calendar date in the schedule timezone.
func (s *SettingsService) Now(ctx context.Context) (time.Time, calendar.Date, error) {
	schedule, _, err := s.Load(ctx)
	if err != nil {
		return time.Time{}, calendar.Date{}, err
	}
	now := time.Now().In(schedule.Location())
	return now, calendar.FromTime(now), nil
}

// UpdatePaySchedule changes the anchor and timezone. Cycles are always recomputed from
// the current row, so the change applies to every later view.
func (s *SettingsService) UpdatePaySchedule(ctx context.Context, anchor calendar.Date, timezone string) (*settings.PaySchedule, error) {
	timezone = strings.TrimSpace(timezone)
	if anchor.IsZero() {
		return nil, invalid("anchor_payday", "is required")
	}
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "" {
		return nil, invalid("timezone", "%q is not an IANA timezone", timezone)
	}

	schedule, _, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	schedule.AnchorPayday = anchor
	schedule.Timezone = timezone
	if err := s.repo.UpdatePaySchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to update pay schedule: %w", err)
	}
	s.log.WithFields(logrus.Fields{"anchor": anchor.String(), "timezone": timezone}).Info("Pay schedule updated")
	return schedule, nil
}

// AppSettingsInput carries the editable notification preferences.
type AppSettingsInput struct {
	DueSoonDays      int
	DailySummaryTime string
	TelegramEnabled  bool
	TelegramChatID   string
}

func (s *SettingsService) UpdateAppSettings(ctx context.Context, in AppSettingsInput) (*settings.AppSettings, error) {
	if in.DueSoonDays < 0 {
		return nil, invalid("due_soon_days", "must be zero or more")
	}
	if _, err := settings.ParseClock(in.DailySummaryTime); err != nil {
		return nil, invalid("daily_summary_time", "%q is not HH:MM", in.DailySummaryTime)
	}
	chatID := strings.TrimSpace(in.TelegramChatID)
	if in.TelegramEnabled && chatID == "" {
		return nil, invalid("telegram_chat_id", "is required when Telegram is enabled")
	}

	_, app, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	app.DueSoonDays = in.DueSoonDays
	app.DailySummaryTime = strings.TrimSpace(in.DailySummaryTime)
	app.TelegramEnabled = in.TelegramEnabled
	app.TelegramChatID = chatID
	if err := s.repo.UpdateAppSettings(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to update app settings: %w", err)
	}
	s.log.WithFields(logrus.Fields{"due_soon_days": app.DueSoonDays, "telegram_enabled": app.TelegramEnabled}).Info("App settings updated")
	return app, nil
}
