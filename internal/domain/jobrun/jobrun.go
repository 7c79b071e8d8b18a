// internal/domain/jobrun/jobrun.go
package jobrun

import (
	"context"
	"time"

	"paytrack/internal/domain/calendar"
)

// Job names recorded in job_runs.
const (
	JobGenerateAhead = "generate_occurrences_ahead"
	JobDailySummary  = "daily_summary"
)

// JobRun proves a named job completed for a calendar date. Unique on (JobName, RunDate).
type JobRun struct {
	ID        int64
	JobName   string
	RunDate   calendar.Date
	RunID     string
	CreatedAt time.Time
}

type Repository interface {
	// TryInsert returns false when (job_name, run_date) is already recorded.
	TryInsert(ctx context.Context, run *JobRun) (bool, error)
	Exists(ctx context.Context, jobName string, runDate calendar.Date) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]*JobRun, error)
}
