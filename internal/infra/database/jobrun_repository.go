package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/jobrun"
)

type JobRunRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewJobRunRepository(db *DB) *JobRunRepository {
	return &JobRunRepository{db: db.DB, dialect: db.Dialect}
}

// TryInsert absorbs the (job_name, run_date) unique conflict and reports it as false.
func (r *JobRunRepository) TryInsert(ctx context.Context, run *jobrun.JobRun) (bool, error) {
	query := r.dialect.Rebind(`INSERT INTO job_runs (job_name, run_date, run_id, created_at)
               VALUES (?, ?, ?, ?)
               ON CONFLICT DO NOTHING
               RETURNING id`)
	now := nowUTC()
	err := r.db.QueryRowContext(ctx, query, run.JobName, run.RunDate, run.RunID, now).Scan(&run.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error inserting job run: %w", err)
	}
	run.CreatedAt = now
	return true, nil
}

func (r *JobRunRepository) Exists(ctx context.Context, jobName string, runDate calendar.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(*) FROM job_runs WHERE job_name = ? AND run_date = ?`),
		jobName, runDate).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking job run: %w", err)
	}
	return n > 0, nil
}

func (r *JobRunRepository) ListRecent(ctx context.Context, limit int) ([]*jobrun.JobRun, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT id, job_name, run_date, run_id, created_at
               FROM job_runs ORDER BY run_date DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("error listing job runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*jobrun.JobRun, 0)
	for rows.Next() {
		jr := &jobrun.JobRun{}
		if err := rows.Scan(&jr.ID, &jr.JobName, &jr.RunDate, &jr.RunID, timestamp{&jr.CreatedAt}); err != nil {
			return nil, fmt.Errorf("error scanning job run: %w", err)
		}
		runs = append(runs, jr)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job runs: %w", err)
	}
	return runs, nil
}
