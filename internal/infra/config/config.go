package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones for TZ and pay_schedule.timezone

	"github.com/joho/godotenv"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/settings"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseDriver        string
	DatabaseURL           string
	TelegramToken         string // empty disables the Telegram channel and commands
	OwnerTelegramID       int64
	LogLevel              string
	Environment           string
	Timezone              string
	DefaultAnchorPayday   calendar.Date
	DueSoonDays           int
	DailySummaryTime      string
	GenerationHorizonDays int
	CronSpecGeneration    string
	CronSpecNotifications string
}

// TelegramEnabled reports whether a bot token was provided.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from environment variables and .env file (if present).
// Settings values only seed the database on first start.
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseDriver = strings.ToLower(envOr("DATABASE_DRIVER", "sqlite"))
	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDriver != "postgres" {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (want sqlite or postgres)", cfg.DatabaseDriver)
	}
	cfg.DatabaseURL = envOr("DATABASE_URL", "./data/paytrack.db")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		ownerIDStr := os.Getenv("OWNER_TELEGRAM_ID")
		if ownerIDStr == "" {
			return nil, fmt.Errorf("OWNER_TELEGRAM_ID is not set")
		}
		cfg.OwnerTelegramID, err = strconv.ParseInt(ownerIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OWNER_TELEGRAM_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOr("ENVIRONMENT", "development"))

	cfg.Timezone = envOr("TZ", "America/Los_Angeles")
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TZ: %w", err)
	}

	cfg.DefaultAnchorPayday, err = calendar.Parse(envOr("DEFAULT_ANCHOR_PAYDAY", "2026-01-15"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_ANCHOR_PAYDAY: %w", err)
	}

	if cfg.DueSoonDays, err = envInt("DUE_SOON_DAYS", 5); err != nil {
		return nil, err
	}
	if cfg.DueSoonDays < 0 {
		return nil, fmt.Errorf("DUE_SOON_DAYS must be zero or more")
	}

	cfg.DailySummaryTime = envOr("DAILY_SUMMARY_TIME", "07:00")
	if _, err := settings.ParseClock(cfg.DailySummaryTime); err != nil {
		return nil, fmt.Errorf("invalid DAILY_SUMMARY_TIME: %w", err)
	}

	if cfg.GenerationHorizonDays, err = envInt("GENERATION_HORIZON_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.GenerationHorizonDays <= 0 {
		return nil, fmt.Errorf("GENERATION_HORIZON_DAYS must be positive")
	}

	cfg.CronSpecGeneration = envOr("CRON_SPEC_GENERATION", "5 0 * * *")            // 00:05 daily
	cfg.CronSpecNotifications = envOr("CRON_SPEC_NOTIFICATIONS", "*/15 * * * *") // every 15 minutes

	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
