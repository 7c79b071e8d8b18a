// internal/domain/settings/settings.go
package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/paycycle"
)

// SingletonID is the fixed primary key of both settings rows.
const SingletonID = 1

// PaySchedule configures the cycle lattice and the user's timezone.
type PaySchedule struct {
	ID           int
	AnchorPayday calendar.Date
	Timezone     string
	UpdatedAt    time.Time
}

// Location loads the schedule timezone, falling back to UTC on an unknown name.
func (p *PaySchedule) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (p *PaySchedule) Calculator() paycycle.Calculator {
	return paycycle.NewCalculator(p.AnchorPayday)
}

// Today is the current calendar date in the schedule timezone.
func (p *PaySchedule) Today() calendar.Date {
	return calendar.Today(p.Location())
}

// AppSettings holds notification preferences.
type AppSettings struct {
	ID                    int
	DueSoonDays           int
	DailySummaryTime      string // HH:MM in the schedule timezone
	TelegramEnabled       bool
	TelegramChatID        string
	GenerationHorizonDays int
	UpdatedAt             time.Time
}

// ParseClock parses an "HH:MM" time of day into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:MM: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SummaryReady reports whether now (already in the schedule timezone) is at or past the summary time.
func (a *AppSettings) SummaryReady(now time.Time) bool {
	minutes, err := ParseClock(a.DailySummaryTime)
	if err != nil {
		return true
	}
	return now.Hour()*60+now.Minute() >= minutes
}

// Repository reads and writes the two settings singletons.
type Repository interface {
	GetPaySchedule(ctx context.Context) (*PaySchedule, error)
	UpdatePaySchedule(ctx context.Context, s *PaySchedule) error
	GetAppSettings(ctx context.Context) (*AppSettings, error)
	UpdateAppSettings(ctx context.Context, s *AppSettings) error
	// EnsureDefaults inserts both rows if absent; existing rows are left untouched.
	EnsureDefaults(ctx context.Context, schedule *PaySchedule, app *AppSettings) error
}
