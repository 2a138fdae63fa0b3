package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/crawljobs/internal/domain"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
)

const jobColumns = `id, user_id, keyword_id, schedule_id,
	name, kind, priority, max_retries,
	status, retry_count, error_message,
	current, total, items_processed, items_saved, items_failed, message,
	created_at, updated_at, scheduled_for, started_at, completed_at,
	actual_duration_seconds, points_consumed`

// JobStore is the State Store's Postgres-backed job repository. It satisfies
// lifecycle.Store.
type JobStore struct {
	db *sqlx.DB
}

// NewJobStore constructs a JobStore over an open connection pool.
func NewJobStore(db *sqlx.DB) *JobStore {
	return &JobStore{db: db}
}

// Create inserts a new job, stamping created_at/updated_at.
func (s *JobStore) Create(ctx context.Context, job *domain.Job) error {
	query := `INSERT INTO jobs (
			id, user_id, keyword_id, schedule_id,
			name, kind, priority, max_retries,
			status, retry_count,
			current, total, items_processed, items_saved, items_failed,
			scheduled_for, points_consumed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowContext(
		ctx, query,
		job.ID, job.UserID, job.KeywordID, job.ScheduleID,
		job.Name, job.Kind, job.Priority, job.MaxRetries,
		job.Status, job.RetryCount,
		job.Current, job.Total, job.ItemsProcessed, job.ItemsSaved, job.ItemsFailed,
		job.ScheduledFor, job.PointsConsumed,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "create job")
	}
	return nil
}

// LoadByID retrieves a job by id, classifying a missing row as KindNotFound.
func (s *JobStore) LoadByID(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	if err := s.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, platerrors.New(platerrors.KindNotFound, fmt.Sprintf("job not found: %s", id))
		}
		return nil, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "load job")
	}
	return &job, nil
}

// UpdateWithOptimisticCheck persists every mutable field of job, succeeding
// only if the row's updated_at still matches expectedUpdatedAt. A mismatch
// means another writer raced this one; it is surfaced as KindConflict rather
// than silently overwritten.
func (s *JobStore) UpdateWithOptimisticCheck(ctx context.Context, job *domain.Job, expectedUpdatedAt time.Time) error {
	query := `UPDATE jobs SET
			status = $1, retry_count = $2, error_message = $3,
			current = $4, total = $5, items_processed = $6, items_saved = $7, items_failed = $8, message = $9,
			started_at = $10, completed_at = $11, actual_duration_seconds = $12, points_consumed = $13,
			updated_at = NOW()
		WHERE id = $14 AND updated_at = $15
		RETURNING updated_at`

	err := s.db.QueryRowContext(
		ctx, query,
		job.Status, job.RetryCount, job.ErrorMessage,
		job.Current, job.Total, job.ItemsProcessed, job.ItemsSaved, job.ItemsFailed, job.Message,
		job.StartedAt, job.CompletedAt, job.ActualDurationSeconds, job.PointsConsumed,
		job.ID, expectedUpdatedAt,
	).Scan(&job.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return platerrors.New(platerrors.KindConflict, fmt.Sprintf("job %s was modified concurrently", job.ID))
	}
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "update job")
	}
	return nil
}

// QueryParams filters the job listing used by the Monitoring View and the
// job history API endpoint.
type QueryParams struct {
	UserID   string
	Status   string
	JobKind  string
	Page     int
	PageSize int
}

// Query returns a newest-first page of jobs for a user, optionally filtered
// by status and/or job kind, plus the total matching row count.
func (s *JobStore) Query(ctx context.Context, params QueryParams) ([]*domain.Job, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{params.UserID}
	argIndex := 2

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, params.Status)
		argIndex++
	}
	if params.JobKind != "" {
		conditions = append(conditions, fmt.Sprintf("kind->>'name' = $%d", argIndex))
		args = append(args, params.JobKind)
		argIndex++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM jobs %s", whereClause)
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "count jobs")
	}

	page, pageSize := normalizePage(params.Page, params.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM jobs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		jobColumns, whereClause, argIndex, argIndex+1)
	args = append(args, pageSize, (page-1)*pageSize)

	var jobs []*domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "list jobs")
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}
	return jobs, total, nil
}

// ActiveChildJobCount counts a schedule's non-terminal child jobs, used by
// the Scheduler to enforce max_concurrent_jobs.
func (s *JobStore) ActiveChildJobCount(ctx context.Context, scheduleID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM jobs
		WHERE schedule_id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')`
	if err := s.db.GetContext(ctx, &count, query, scheduleID); err != nil {
		return 0, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "count active child jobs")
	}
	return count, nil
}

// WindowAggregates is the 24h/1h dashboard rollup the Monitoring View reads.
type WindowAggregates struct {
	Completed      int
	Failed         int
	ItemsProcessed int
	ItemsSaved     int
	PointsConsumed int
}

// SuccessRate derives completed / (completed + failed) as a percentage.
func (a WindowAggregates) SuccessRate() float64 {
	total := a.Completed + a.Failed
	if total == 0 {
		return 0
	}
	return 100 * float64(a.Completed) / float64(total)
}

// Aggregates rolls up a user's jobs that finished (completed or failed)
// since the given time, for the Monitoring View's dashboard stats.
func (s *JobStore) Aggregates(ctx context.Context, userID string, since time.Time) (WindowAggregates, error) {
	var agg WindowAggregates
	query := `SELECT
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COALESCE(SUM(items_processed), 0) AS items_processed,
			COALESCE(SUM(items_saved), 0) AS items_saved,
			COALESCE(SUM(points_consumed), 0) AS points_consumed
		FROM jobs
		WHERE user_id = $1 AND completed_at >= $2 AND status IN ('completed', 'failed')`

	row := s.db.QueryRowContext(ctx, query, userID, since)
	if err := row.Scan(&agg.Completed, &agg.Failed, &agg.ItemsProcessed, &agg.ItemsSaved, &agg.PointsConsumed); err != nil {
		return WindowAggregates{}, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "aggregate jobs")
	}
	return agg, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
