package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/jobrun"
	"paytrack/internal/domain/notification"
)

// JobFunc is a guarded job body. It reports completed=false to leave the day unclaimed
// so a later trigger runs it again.
type JobFunc func(ctx context.Context) (completed bool, err error)

// JobRunGuard lets a named job run at most once per logical day.
type JobRunGuard struct {
	runs jobrun.Repository
	log  *logrus.Entry
}

func NewJobRunGuard(jr jobrun.Repository, log *logrus.Entry) *JobRunGuard {
	return &JobRunGuard{runs: jr, log: log.WithField("component", "job_guard")}
}

// TryClaim atomically records (jobName, runDate). Exactly one concurrent caller gets true.
func (g *JobRunGuard) TryClaim(ctx context.Context, jobName string, runDate calendar.Date) (bool, error) {
	claimed, err := g.runs.TryInsert(ctx, &jobrun.JobRun{JobName: jobName, RunDate: runDate, RunID: uuid.NewString()})
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s for %s: %w", jobName, runDate, err)
	}
	return claimed, nil
}

// RunOnce skips jobs already recorded for runDate, otherwise runs fn and records the
// claim as its last step. fn must be safe to repeat: a crash before the claim reruns it.
func (g *JobRunGuard) RunOnce(ctx context.Context, jobName string, runDate calendar.Date, fn JobFunc) (bool, error) {
	entry := g.log.WithFields(logrus.Fields{"job_name": jobName, "run_date": runDate.String()})

	done, err := g.runs.Exists(ctx, jobName, runDate)
	if err != nil {
		return false, fmt.Errorf("failed to check job %s: %w", jobName, err)
	}
	if done {
		entry.Debug("Job already ran for this date")
		return false, nil
	}

	completed, err := fn(ctx)
	if err != nil {
		return false, err
	}
	if !completed {
		entry.Debug("Job deferred")
		return false, nil
	}

	claimed, err := g.TryClaim(ctx, jobName, runDate)
	if err != nil {
		return true, err
	}
	if !claimed {
		entry.Info("Job was recorded by a concurrent run")
	}
	return true, nil
}

// NotificationDedupGuard lets a (type, channel, day, key) notification be emitted at most once.
type NotificationDedupGuard struct {
	entries notification.Repository
}

func NewNotificationDedupGuard(nr notification.Repository) *NotificationDedupGuard {
	return &NotificationDedupGuard{entries: nr}
}

// TryClaim returns the pending log entry when the claim succeeded, or nil when it was already held.
func (g *NotificationDedupGuard) TryClaim(ctx context.Context, typ notification.Type, channel notification.Channel, bucket calendar.Date, dedupKey string, occurrenceID int64) (*notification.LogEntry, error) {
	entry := &notification.LogEntry{
		Type:       typ,
		Channel:    channel,
		BucketDate: bucket,
		DedupKey:   dedupKey,
	}
	if occurrenceID != 0 {
		entry.OccurrenceID = sql.NullInt64{Int64: occurrenceID, Valid: true}
	}
	claimed, err := g.entries.TryClaim(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to claim %s/%s notification %s: %w", typ, channel, dedupKey, err)
	}
	if !claimed {
		return nil, nil
	}
	return entry, nil
}
