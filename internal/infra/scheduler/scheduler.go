package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"paytrack/internal/app"
	"paytrack/internal/domain/calendar"
)

// DailyRunner is the guarded daily job surface driven by the scheduler.
type DailyRunner interface {
	Run(ctx context.Context, today calendar.Date, now time.Time) (*app.DailyRunResult, error)
	RunGeneration(ctx context.Context, today calendar.Date) (bool, app.GenerationResult, error)
	RunNotifications(ctx context.Context, today calendar.Date, now time.Time) (app.NoticeResult, bool, app.SummaryResult, error)
}

// Clock resolves the current instant and logical day in the schedule timezone.
type Clock interface {
	Now(ctx context.Context) (time.Time, calendar.Date, error)
}

// DailyScheduler triggers generation once a day and notification ticks throughout the day.
// Every trigger goes through the job guards, so extra or overlapping ticks are harmless.
type DailyScheduler struct {
	cronEngine            *cron.Cron
	runner                DailyRunner
	clock                 Clock
	log                   *logrus.Entry
	cronSpecGeneration    string
	cronSpecNotifications string
	jobTimeout            time.Duration
}

func NewDailyScheduler(
	runner DailyRunner,
	clock Clock,
	loc *time.Location,
	log *logrus.Entry,
	cronSpecGeneration string, // e.g., "5 0 * * *" (00:05 daily)
	cronSpecNotifications string, // e.g., "*/15 * * * *" (every 15 minutes)
) *DailyScheduler {
	log = log.WithField("component", "scheduler")
	return &DailyScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		runner:                runner,
		clock:                 clock,
		log:                   log,
		cronSpecGeneration:    cronSpecGeneration,
		cronSpecNotifications: cronSpecNotifications,
		jobTimeout:            5 * time.Minute,
	}
}

// Start runs one full daily pass, then registers and starts the cron jobs.
func (s *DailyScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting daily scheduler...")

	if err := s.RunStartup(ctx); err != nil {
		s.log.WithError(err).Error("Startup daily run failed")
	}

	if _, err := s.cronEngine.AddFunc(s.cronSpecGeneration, s.generationTick); err != nil {
		return fmt.Errorf("could not add generation cron job: %w", err)
	}
	if _, err := s.cronEngine.AddFunc(s.cronSpecNotifications, s.notificationTick); err != nil {
		return fmt.Errorf("could not add notification cron job: %w", err)
	}

	s.cronEngine.Start()
	s.log.WithFields(logrus.Fields{
		"generation":    s.cronSpecGeneration,
		"notifications": s.cronSpecNotifications,
	}).Info("Daily scheduler started with jobs")
	return nil
}

// RunStartup performs one guarded run_daily_jobs for today.
func (s *DailyScheduler) RunStartup(ctx context.Context) error {
	now, today, err := s.clock.Now(ctx)
	if err != nil {
		return err
	}
	_, err = s.runner.Run(ctx, today, now)
	return err
}

func (s *DailyScheduler) generationTick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	_, today, err := s.clock.Now(ctx)
	if err != nil {
		s.log.WithError(err).Error("Could not resolve today for generation")
		return
	}
	entry := s.log.WithField("run_date", today.String())
	ran, res, err := s.runner.RunGeneration(ctx, today)
	if err != nil {
		entry.WithError(err).Error("Error during occurrence generation")
		return
	}
	if !ran {
		entry.Debug("Generation already ran today")
		return
	}
	entry.WithFields(logrus.Fields{"payments": res.Payments, "generated": res.Generated}).Info("Occurrence generation finished")
}

func (s *DailyScheduler) notificationTick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	now, today, err := s.clock.Now(ctx)
	if err != nil {
		s.log.WithError(err).Error("Could not resolve today for notifications")
		return
	}
	entry := s.log.WithField("run_date", today.String())

	// Generation is claimed only after a clean pass, so a failed day is retried here.
	if ran, res, err := s.runner.RunGeneration(ctx, today); err != nil {
		entry.WithError(err).Error("Error during occurrence generation catch-up")
	} else if ran {
		entry.WithFields(logrus.Fields{"payments": res.Payments, "generated": res.Generated}).Info("Occurrence generation caught up")
	}

	notices, summaryRan, summary, err := s.runner.RunNotifications(ctx, today, now)
	if err != nil {
		entry.WithError(err).Error("Error during notification processing")
		return
	}
	entry.WithFields(logrus.Fields{
		"due_soon":    notices.DueSoon,
		"overdue":     notices.Overdue,
		"summary_ran": summaryRan,
		"failures":    notices.Failed + summary.Failed,
	}).Debug("Notification tick finished")
}

func (s *DailyScheduler) Stop() {
	s.log.Info("Stopping daily scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.log.Info("Daily scheduler gracefully stopped")
}
