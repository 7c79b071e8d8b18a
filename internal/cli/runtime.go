package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"paytrack/internal/app"
	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/notification"
	"paytrack/internal/infra/config"
	idb "paytrack/internal/infra/database"
	"paytrack/internal/infra/logger"
	"paytrack/internal/infra/telegram"
)

// runtime is the fully wired application shared by every command.
type runtime struct {
	cfg       *config.AppConfig
	db        *idb.DB
	log       *logrus.Entry
	bot       *telebot.Bot // nil when no token is configured
	settings  *app.SettingsService
	generator *app.OccurrenceGenerator
	actions   *app.ActionProcessor
	payments  *app.PaymentService
	cycles    *app.CycleService
	notifier  *app.NotificationServiceImpl
	daily     *app.DailyJobs
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	log := logrus.NewEntry(logger.Log)

	db, err := idb.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	if err := idb.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.WithField("driver", cfg.DatabaseDriver).Info("Database connection established successfully")

	rt := &runtime{cfg: cfg, db: db, log: log}

	paymentRepo := idb.NewPaymentRepository(db)
	notificationRepo := idb.NewNotificationRepository(db)
	jobRunRepo := idb.NewJobRunRepository(db)

	defaults := app.SettingsDefaults{
		AnchorPayday:          cfg.DefaultAnchorPayday,
		Timezone:              cfg.Timezone,
		DueSoonDays:           cfg.DueSoonDays,
		DailySummaryTime:      cfg.DailySummaryTime,
		GenerationHorizonDays: cfg.GenerationHorizonDays,
		TelegramEnabled:       cfg.TelegramEnabled(),
	}
	if cfg.TelegramEnabled() {
		defaults.TelegramChatID = strconv.FormatInt(cfg.OwnerTelegramID, 10)
	}
	rt.settings = app.NewSettingsService(idb.NewSettingsRepository(db), defaults, log)
	if err := rt.settings.EnsureSeeded(ctx); err != nil {
		db.Close()
		return nil, err
	}

	var telegramSender notification.Sender
	if cfg.TelegramEnabled() {
		rt.bot, err = newBot(cfg, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		telegramSender = telegram.NewSender(telegram.NewTelebotAdapter(rt.bot))
	} else {
		log.Info("TELEGRAM_TOKEN is not set, Telegram channel disabled")
	}

	rt.generator = app.NewOccurrenceGenerator(paymentRepo, log)
	rt.actions = app.NewActionProcessor(paymentRepo, rt.generator, log)
	rt.payments = app.NewPaymentService(paymentRepo, rt.generator, log)
	rt.cycles = app.NewCycleService(paymentRepo, rt.settings)
	rt.notifier = app.NewNotificationServiceImpl(paymentRepo, notificationRepo, rt.settings, telegramSender, log)
	rt.daily = app.NewDailyJobs(app.NewJobRunGuard(jobRunRepo, log), rt.generator, rt.notifier, rt.settings, log)
	return rt, nil
}

func newBot(cfg *config.AppConfig, log *logrus.Entry) (*telebot.Bot, error) {
	botLog := log.WithField("component", "telebot")
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := botLog.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return bot, nil
}

// resolveDay returns now and the logical day, honouring an explicit --date override.
func (rt *runtime) resolveDay(ctx context.Context, date string) (time.Time, calendar.Date, error) {
	now, today, err := rt.settings.Now(ctx)
	if err != nil {
		return time.Time{}, calendar.Date{}, err
	}
	if date == "" {
		return now, today, nil
	}
	d, err := calendar.Parse(date)
	if err != nil {
		return time.Time{}, calendar.Date{}, err
	}
	return now, d, nil
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.log.WithError(err).Error("Failed to close database")
	}
}
