package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/crawljobs/internal/domain"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
)

const scheduleColumns = `id, user_id, keyword_id,
	name, description, frequency, custom_expr, active, timezone,
	job_kind, job_parameters, job_priority, job_timeout_sec, job_max_retries,
	max_concurrent_jobs,
	next_run_at, last_run_at,
	total_runs, successful_runs, failed_runs,
	created_at, updated_at`

// ScheduleStore is the State Store's Postgres-backed schedule repository.
type ScheduleStore struct {
	db *sqlx.DB
}

// NewScheduleStore constructs a ScheduleStore over an open connection pool.
func NewScheduleStore(db *sqlx.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// Create inserts a new schedule.
func (s *ScheduleStore) Create(ctx context.Context, sched *domain.Schedule) error {
	query := `INSERT INTO schedules (
			id, user_id, keyword_id,
			name, description, frequency, custom_expr, active, timezone,
			job_kind, job_parameters, job_priority, job_timeout_sec, job_max_retries,
			max_concurrent_jobs, next_run_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowContext(
		ctx, query,
		sched.ID, sched.UserID, sched.KeywordID,
		sched.Name, sched.Description, sched.Frequency, sched.CustomExpr, sched.Active, sched.Timezone,
		sched.JobKind, &sched.JobParameters, sched.JobPriority, sched.JobTimeoutSec, sched.JobMaxRetries,
		sched.MaxConcurrentJobs, sched.NextRunAt,
	).Scan(&sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "create schedule")
	}
	return nil
}

// LoadByID retrieves a schedule by id.
func (s *ScheduleStore) LoadByID(ctx context.Context, id string) (*domain.Schedule, error) {
	var sched domain.Schedule
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	if err := s.db.GetContext(ctx, &sched, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, platerrors.New(platerrors.KindNotFound, fmt.Sprintf("schedule not found: %s", id))
		}
		return nil, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "load schedule")
	}
	return &sched, nil
}

// DueForRun returns every active schedule whose next_run_at has arrived,
// ordered oldest-due first. Used by the scheduler's tick loop.
func (s *ScheduleStore) DueForRun(ctx context.Context, now time.Time) ([]*domain.Schedule, error) {
	var schedules []*domain.Schedule
	query := `SELECT ` + scheduleColumns + ` FROM schedules
		WHERE active = true AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT 100`
	if err := s.db.SelectContext(ctx, &schedules, query, now); err != nil {
		return nil, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "query due schedules")
	}
	if schedules == nil {
		schedules = []*domain.Schedule{}
	}
	return schedules, nil
}

// RecordRun updates a schedule's run bookkeeping after it fires: next_run_at,
// last_run_at, and the total/successful/failed run counters.
func (s *ScheduleStore) RecordRun(ctx context.Context, id string, nextRunAt *time.Time, ranAt time.Time, succeeded bool) error {
	successDelta, failDelta := 0, 0
	if succeeded {
		successDelta = 1
	} else {
		failDelta = 1
	}

	query := `UPDATE schedules SET
			next_run_at = $1, last_run_at = $2,
			total_runs = total_runs + 1,
			successful_runs = successful_runs + $3,
			failed_runs = failed_runs + $4,
			updated_at = NOW()
		WHERE id = $5`

	if _, err := s.db.ExecContext(ctx, query, nextRunAt, ranAt, successDelta, failDelta, id); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "record schedule run")
	}
	return nil
}

// Deactivate flips a schedule inactive; used for frequency=once schedules
// after they have fired.
func (s *ScheduleStore) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE schedules SET active = false, updated_at = NOW() WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "deactivate schedule")
	}
	return nil
}

// CountActive returns how many active schedules a user has, for the
// Monitoring View's dashboard stats.
func (s *ScheduleStore) CountActive(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM schedules WHERE user_id = $1 AND active = true`
	if err := s.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "count active schedules")
	}
	return count, nil
}

// List returns a user's schedules, newest first.
func (s *ScheduleStore) List(ctx context.Context, userID string) ([]*domain.Schedule, error) {
	var schedules []*domain.Schedule
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = $1 ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &schedules, query, userID); err != nil {
		return nil, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "list schedules")
	}
	if schedules == nil {
		schedules = []*domain.Schedule{}
	}
	return schedules, nil
}

// Update persists a schedule's editable fields (name, description, frequency,
// active, job template).
func (s *ScheduleStore) Update(ctx context.Context, sched *domain.Schedule) error {
	query := `UPDATE schedules SET
			name = $1, description = $2, frequency = $3, custom_expr = $4, active = $5, timezone = $6,
			job_kind = $7, job_parameters = $8, job_priority = $9, job_timeout_sec = $10, job_max_retries = $11,
			max_concurrent_jobs = $12, next_run_at = $13,
			updated_at = NOW()
		WHERE id = $14
		RETURNING updated_at`

	err := s.db.QueryRowContext(
		ctx, query,
		sched.Name, sched.Description, sched.Frequency, sched.CustomExpr, sched.Active, sched.Timezone,
		sched.JobKind, &sched.JobParameters, sched.JobPriority, sched.JobTimeoutSec, sched.JobMaxRetries,
		sched.MaxConcurrentJobs, sched.NextRunAt,
		sched.ID,
	).Scan(&sched.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return platerrors.New(platerrors.KindNotFound, fmt.Sprintf("schedule not found: %s", sched.ID))
	}
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "update schedule")
	}
	return nil
}

// Delete removes a schedule.
func (s *ScheduleStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "delete schedule")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "delete schedule rows affected")
	}
	if n == 0 {
		return platerrors.New(platerrors.KindNotFound, fmt.Sprintf("schedule not found: %s", id))
	}
	return nil
}
