// Package monitor implements the Monitoring View: read-only aggregations
// over the State Store and Ephemeral Store for dashboards and job history.
package monitor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/queue"
	"github.com/jonesrussell/crawljobs/internal/store"
)

const dashboardCacheWindow = 24 * time.Hour
const throughputWindow = 1 * time.Hour

// JobStore is the State Store contract the view needs for job data.
type JobStore interface {
	Query(ctx context.Context, params store.QueryParams) ([]*domain.Job, int, error)
	Aggregates(ctx context.Context, userID string, since time.Time) (store.WindowAggregates, error)
}

// ScheduleStore is the State Store contract the view needs for schedule data.
type ScheduleStore interface {
	CountActive(ctx context.Context, userID string) (int, error)
}

// QueueManager is the Queue Manager contract the view needs.
type QueueManager interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

// Ephemeral is the Ephemeral Store contract the view needs.
type Ephemeral interface {
	ActiveJobSummaries(ctx context.Context, userID string) (map[string]json.RawMessage, error)
	GetProgress(ctx context.Context, jobID string) (*domain.Job, error)
	RecentMetrics(ctx context.Context, jobID string) ([]domain.JobMetricSample, error)
	DashboardStats(ctx context.Context, userID string, out any) (bool, error)
	SetDashboardStats(ctx context.Context, userID string, stats any) error
}

// View is the Monitoring View.
type View struct {
	jobs      JobStore
	schedules ScheduleStore
	queue     QueueManager
	eph       Ephemeral
	now       func() time.Time
}

// New constructs a View. now defaults to time.Now when nil.
func New(jobs JobStore, schedules ScheduleStore, qm QueueManager, eph Ephemeral, now func() time.Time) *View {
	if now == nil {
		now = time.Now
	}
	return &View{jobs: jobs, schedules: schedules, queue: qm, eph: eph, now: now}
}

// DashboardStats is the per-user aggregate the spec calls for, cached in the
// Ephemeral Store with a 60s TTL.
type DashboardStats struct {
	ActiveSchedules  int                     `json:"active_schedules"`
	ActiveJobs       int                     `json:"active_jobs"`
	SuccessRate24h   float64                 `json:"success_rate_24h"`
	Failed24h        int                     `json:"failed_24h"`
	ItemsPerHour     float64                 `json:"items_per_hour"`
	PointsConsumed24h int                    `json:"points_consumed_24h"`
	QueueStats       queue.Stats             `json:"queue_stats"`
}

// Dashboard returns a user's dashboard stats, serving from the 60s cache
// when present and recomputing on a miss.
func (v *View) Dashboard(ctx context.Context, userID string) (DashboardStats, error) {
	var cached DashboardStats
	if ok, err := v.eph.DashboardStats(ctx, userID, &cached); err == nil && ok {
		return cached, nil
	}

	now := v.now()
	activeSchedules, err := v.schedules.CountActive(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}

	activeJobs, err := v.eph.ActiveJobSummaries(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}

	agg24h, err := v.jobs.Aggregates(ctx, userID, now.Add(-dashboardCacheWindow))
	if err != nil {
		return DashboardStats{}, err
	}
	aggThroughput, err := v.jobs.Aggregates(ctx, userID, now.Add(-throughputWindow))
	if err != nil {
		return DashboardStats{}, err
	}

	qstats, err := v.queue.Stats(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		ActiveSchedules:   activeSchedules,
		ActiveJobs:        len(activeJobs),
		SuccessRate24h:    agg24h.SuccessRate(),
		Failed24h:         agg24h.Failed,
		ItemsPerHour:      float64(aggThroughput.ItemsProcessed),
		PointsConsumed24h: agg24h.PointsConsumed,
		QueueStats:        qstats,
	}

	_ = v.eph.SetDashboardStats(ctx, userID, stats)
	return stats, nil
}

// ActiveJobs merges live Ephemeral Store progress onto a user's non-terminal
// jobs from the State Store.
func (v *View) ActiveJobs(ctx context.Context, userID string) ([]*domain.Job, error) {
	jobs, _, err := v.jobs.Query(ctx, store.QueryParams{UserID: userID, PageSize: 100})
	if err != nil {
		return nil, err
	}

	active := make([]*domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Status.Terminal() {
			continue
		}
		if live, err := v.eph.GetProgress(ctx, job.ID); err == nil && live != nil {
			job.Current, job.Total = live.Current, live.Total
			job.Message = live.Message
			job.ItemsProcessed, job.ItemsSaved, job.ItemsFailed = live.ItemsProcessed, live.ItemsSaved, live.ItemsFailed
		}
		active = append(active, job)
	}
	return active, nil
}

// History returns a paginated, newest-first page of a user's jobs, optionally
// filtered by status and/or job kind.
func (v *View) History(ctx context.Context, params store.QueryParams) ([]*domain.Job, int, error) {
	return v.jobs.Query(ctx, params)
}

// JobDetail is a single job's merged status, progress, recent metrics and ETA.
type JobDetail struct {
	Job           *domain.Job               `json:"job"`
	RecentMetrics []domain.JobMetricSample  `json:"recent_metrics"`
	ETASeconds    *float64                  `json:"eta_seconds,omitempty"`
}

// JobProgress merges a job's live progress with its recent metric samples and
// computes an ETA from the most recent throughput sample.
func (v *View) JobProgress(ctx context.Context, job *domain.Job) (JobDetail, error) {
	detail := JobDetail{Job: job}

	if live, err := v.eph.GetProgress(ctx, job.ID); err == nil && live != nil {
		detail.Job = live
	}

	samples, err := v.eph.RecentMetrics(ctx, job.ID)
	if err != nil {
		return JobDetail{}, err
	}
	detail.RecentMetrics = samples

	if len(samples) > 0 && samples[0].ItemsPerSecond > 0 {
		remaining := detail.Job.Total - detail.Job.Current
		if remaining > 0 {
			eta := float64(remaining) / samples[0].ItemsPerSecond
			detail.ETASeconds = &eta
		}
	}
	return detail, nil
}
