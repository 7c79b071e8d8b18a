package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/jobrun"
)

// DailyRunResult reports what one run_daily_jobs invocation did.
type DailyRunResult struct {
	RunID         string
	RunDate       calendar.Date
	GenerationRan bool
	Generation    GenerationResult
	Notices       NoticeResult
	SummaryRan    bool
	Summary       SummaryResult
}

// DailyJobs wires the guarded daily jobs together.
type DailyJobs struct {
	guard         *JobRunGuard
	generator     *OccurrenceGenerator
	notifications NotificationService
	settings      *SettingsService
	log           *logrus.Entry
}

func NewDailyJobs(guard *JobRunGuard, gen *OccurrenceGenerator, ns NotificationService, ss *SettingsService, log *logrus.Entry) *DailyJobs {
	return &DailyJobs{guard: guard, generator: gen, notifications: ns, settings: ss, log: log.WithField("component", "daily_jobs")}
}

// Run executes generation, due notices and the daily summary for today.
// Safe to call any number of times per day.
func (d *DailyJobs) Run(ctx context.Context, today calendar.Date, now time.Time) (*DailyRunResult, error) {
	res := &DailyRunResult{RunID: uuid.NewString(), RunDate: today}
	log := d.log.WithFields(logrus.Fields{"run_id": res.RunID, "run_date": today.String()})

	// Notices read rows that already exist, so they still run when generation fails.
	var genErr, notifyErr error
	if res.GenerationRan, res.Generation, genErr = d.RunGeneration(ctx, today); genErr != nil {
		log.WithError(genErr).Error("Occurrence generation failed")
	}
	if res.Notices, res.SummaryRan, res.Summary, notifyErr = d.RunNotifications(ctx, today, now); notifyErr != nil {
		log.WithError(notifyErr).Error("Notification jobs failed")
	}
	if err := errors.Join(genErr, notifyErr); err != nil {
		return res, err
	}

	log.WithFields(logrus.Fields{
		"generation_ran": res.GenerationRan,
		"generated":      res.Generation.Generated,
		"due_soon":       res.Notices.DueSoon,
		"overdue":        res.Notices.Overdue,
		"summary_ran":    res.SummaryRan,
		"deliveries":     res.Notices.Sent + res.Summary.Sent,
		"failures":       res.Notices.Failed + res.Summary.Failed,
	}).Info("Daily jobs finished")
	return res, nil
}

// RunGeneration is the guarded generate-ahead job.
func (d *DailyJobs) RunGeneration(ctx context.Context, today calendar.Date) (bool, GenerationResult, error) {
	_, app, err := d.settings.Load(ctx)
	if err != nil {
		return false, GenerationResult{}, err
	}

	var gen GenerationResult
	ran, err := d.guard.RunOnce(ctx, jobrun.JobGenerateAhead, today, func(ctx context.Context) (bool, error) {
		var err error
		gen, err = d.generator.GenerateAhead(ctx, today, app.GenerationHorizonDays)
		return err == nil, err
	})
	return ran, gen, err
}

// RunNotifications sends due notices on every call and the summary once per day.
func (d *DailyJobs) RunNotifications(ctx context.Context, today calendar.Date, now time.Time) (NoticeResult, bool, SummaryResult, error) {
	notices, err := d.notifications.SendDueNotices(ctx, today)
	if err != nil {
		return notices, false, SummaryResult{}, err
	}

	var summary SummaryResult
	ran, err := d.guard.RunOnce(ctx, jobrun.JobDailySummary, today, func(ctx context.Context) (bool, error) {
		var err error
		summary, err = d.notifications.SendDailySummary(ctx, today, now, false)
		return err == nil && !summary.Deferred, err
	})
	return notices, ran, summary, err
}
