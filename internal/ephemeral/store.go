// Package ephemeral implements the Ephemeral Store: Redis-backed live
// mirrors, pub/sub channels and bounded-TTL caches that sit alongside the
// durable State Store. Every key here may vanish; their absence must never
// be read as evidence the underlying job or user does not exist.
package ephemeral

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TTLs for each mirrored key, per the key layout this package implements.
const (
	statusTTL       = 24 * time.Hour
	progressTTL     = 1 * time.Hour
	metricsTTL      = 1 * time.Hour
	activeJobsTTL   = 24 * time.Hour
	queueStatsTTL   = 24 * time.Hour
	notificationTTL = 30 * 24 * time.Hour
	settingsTTL     = 365 * 24 * time.Hour
	dashboardTTL    = 60 * time.Second

	metricsCap      = 100
	notificationCap = 100
)

// Store is the Ephemeral Store: a thin, key-layout-aware wrapper around a
// shared Redis client.
type Store struct {
	rdb *redis.Client
}

// New constructs a Store over an existing Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Client exposes the underlying Redis client for packages (like queue.Manager)
// that need direct list operations this Store doesn't wrap.
func (s *Store) Client() *redis.Client {
	return s.rdb
}

func jobStatusKey(id string) string   { return "job_status:" + id }
func jobProgressKey(id string) string { return "job_progress:" + id }
func jobMetricsKey(id string) string  { return "job_metrics:" + id }
func jobAlertsChannel(id string) string   { return "job_alerts:" + id }
func jobProgressChannel(id string) string { return "job_progress:" + id }
func userNotificationsKey(userID string) string { return "user_notifications:" + userID }
func notificationSettingsKey(userID string) string { return "notification_settings:" + userID }
func dashboardStatsKey(userID string) string { return "dashboard_stats:" + userID }

const activeJobsKey = "active_jobs"

// jobSummary is the lightweight projection stored in the active_jobs map.
type jobSummary struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Status     domain.Status  `json:"status"`
	Priority   domain.Priority `json:"priority"`
	Current    int            `json:"current"`
	Total      int            `json:"total"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// SetStatus mirrors a job's status for fast reads, and maintains the
// active_jobs map: non-terminal jobs are present, terminal jobs are evicted.
func (s *Store) SetStatus(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	if err := s.rdb.Set(ctx, jobStatusKey(job.ID), data, statusTTL).Err(); err != nil {
		return fmt.Errorf("set job status: %w", err)
	}

	if job.Status.Terminal() {
		return s.rdb.HDel(ctx, activeJobsKey, job.ID).Err()
	}

	summary := jobSummary{
		ID: job.ID, UserID: job.UserID, Status: job.Status,
		Priority: job.Priority, Current: job.Current, Total: job.Total,
		UpdatedAt: job.UpdatedAt,
	}
	summaryData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal active job summary: %w", err)
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, activeJobsKey, job.ID, summaryData)
	pipe.Expire(ctx, activeJobsKey, activeJobsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// GetStatus reads the live status mirror, or nil if absent/expired.
func (s *Store) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := s.rdb.Get(ctx, jobStatusKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job status: %w", err)
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job status: %w", err)
	}
	return &job, nil
}

// SetProgress mirrors a job's live progress fields.
func (s *Store) SetProgress(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job progress: %w", err)
	}
	return s.rdb.Set(ctx, jobProgressKey(job.ID), data, progressTTL).Err()
}

// GetProgress reads the live progress mirror, or nil if absent/expired.
func (s *Store) GetProgress(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := s.rdb.Get(ctx, jobProgressKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job progress: %w", err)
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job progress: %w", err)
	}
	return &job, nil
}

// JobEvent is the payload published on a job's pub/sub channels, and the
// shape the Notification Router decodes on the receiving end.
type JobEvent struct {
	Event string      `json:"event"`
	Job   *domain.Job `json:"job"`
}

// PublishJobEvent publishes a lifecycle event. Progress events go to the
// job's progress channel; every other event type goes to its alerts channel.
func (s *Store) PublishJobEvent(ctx context.Context, eventType string, job *domain.Job) error {
	payload, err := json.Marshal(JobEvent{Event: eventType, Job: job})
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}

	channel := jobAlertsChannel(job.ID)
	if eventType == "progress" {
		channel = jobProgressChannel(job.ID)
	}
	return s.rdb.Publish(ctx, channel, payload).Err()
}

// AppendMetricSample appends a metric sample, capping the list at
// metricsCap most-recent entries.
func (s *Store) AppendMetricSample(ctx context.Context, sample domain.JobMetricSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal metric sample: %w", err)
	}
	key := jobMetricsKey(sample.JobID)
	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, metricsCap-1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentMetrics returns up to metricsCap most-recent samples, newest first.
func (s *Store) RecentMetrics(ctx context.Context, jobID string) ([]domain.JobMetricSample, error) {
	items, err := s.rdb.LRange(ctx, jobMetricsKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange job metrics: %w", err)
	}
	samples := make([]domain.JobMetricSample, 0, len(items))
	for _, raw := range items {
		var sample domain.JobMetricSample
		if json.Unmarshal([]byte(raw), &sample) == nil {
			samples = append(samples, sample)
		}
	}
	return samples, nil
}

// ActiveJobSummaries returns the active_jobs map, keyed by job id, for a
// given user (filtering client-side since the map is shared across users).
func (s *Store) ActiveJobSummaries(ctx context.Context, userID string) (map[string]json.RawMessage, error) {
	all, err := s.rdb.HGetAll(ctx, activeJobsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall active_jobs: %w", err)
	}
	result := make(map[string]json.RawMessage, len(all))
	for id, raw := range all {
		var summary jobSummary
		if json.Unmarshal([]byte(raw), &summary) != nil {
			continue
		}
		if summary.UserID == userID {
			result[id] = json.RawMessage(raw)
		}
	}
	return result, nil
}

// PushUserNotification appends to a user's in-dashboard notification list
// (capped, 30 day TTL) and publishes it for live UI updates.
func (s *Store) PushUserNotification(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	key := userNotificationsKey(n.UserID)
	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, notificationCap-1)
	pipe.Expire(ctx, key, notificationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append user notification: %w", err)
	}
	return s.rdb.Publish(ctx, userNotificationsKey(n.UserID), data).Err()
}

// UserNotifications returns a user's cached in-dashboard notifications, newest first.
func (s *Store) UserNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	items, err := s.rdb.LRange(ctx, userNotificationsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange user notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(items))
	for _, raw := range items {
		var n domain.Notification
		if json.Unmarshal([]byte(raw), &n) == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// GetPreferences reads a user's cached notification preferences, returning
// ok=false if nothing is cached (the caller should fall back to the State
// Store, then to domain.DefaultNotificationPreferences).
func (s *Store) GetPreferences(ctx context.Context, userID string) (domain.NotificationPreferences, bool, error) {
	data, err := s.rdb.Get(ctx, notificationSettingsKey(userID)).Bytes()
	if err == redis.Nil {
		return domain.NotificationPreferences{}, false, nil
	}
	if err != nil {
		return domain.NotificationPreferences{}, false, fmt.Errorf("get notification settings: %w", err)
	}
	var prefs domain.NotificationPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return domain.NotificationPreferences{}, false, fmt.Errorf("unmarshal notification settings: %w", err)
	}
	return prefs, true, nil
}

// SetPreferences caches a user's notification preferences for a year.
func (s *Store) SetPreferences(ctx context.Context, prefs domain.NotificationPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal notification settings: %w", err)
	}
	return s.rdb.Set(ctx, notificationSettingsKey(prefs.UserID), data, settingsTTL).Err()
}

// DashboardStats reads the cached dashboard aggregate for a user, returning
// ok=false on a cache miss.
func (s *Store) DashboardStats(ctx context.Context, userID string, out any) (bool, error) {
	data, err := s.rdb.Get(ctx, dashboardStatsKey(userID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get dashboard stats cache: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal dashboard stats cache: %w", err)
	}
	return true, nil
}

// SetDashboardStats caches a user's dashboard aggregate for 60 seconds.
func (s *Store) SetDashboardStats(ctx context.Context, userID string, stats any) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal dashboard stats cache: %w", err)
	}
	return s.rdb.Set(ctx, dashboardStatsKey(userID), data, dashboardTTL).Err()
}

// Subscribe opens a pub/sub subscription to one or more channels, used by
// the Notification Router and SSE-style live consumers.
func (s *Store) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, channels...)
}

// SubscribePattern opens a pattern pub/sub subscription (e.g. "job_alerts:*"),
// used by the Notification Router to listen across every job without
// knowing ids in advance.
func (s *Store) SubscribePattern(ctx context.Context, patterns ...string) *redis.PubSub {
	return s.rdb.PSubscribe(ctx, patterns...)
}

// JobProgressChannel and JobAlertsChannel expose the channel names so
// subscribers don't need to know this package's key layout.
func JobProgressChannel(jobID string) string        { return jobProgressChannel(jobID) }
func JobAlertsChannel(jobID string) string           { return jobAlertsChannel(jobID) }
func UserNotificationsChannel(userID string) string  { return userNotificationsKey(userID) }

// JobAlertsPattern and JobProgressPattern are the wildcard patterns matching
// every job's respective channel.
func JobAlertsPattern() string   { return "job_alerts:*" }
func JobProgressPattern() string { return "job_progress:*" }

var _ = queueStatsTTL // reserved: queue.Manager owns queue_stats counters directly
