package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/lifecycle"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/queue"
	"github.com/jonesrussell/crawljobs/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJobStore is an in-memory lifecycle.Store used only by this test.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*domain.Job)}
}

func (s *fakeJobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeJobStore) LoadByID(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (s *fakeJobStore) UpdateWithOptimisticCheck(_ context.Context, job *domain.Job, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeJobStore) count(scheduleID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.ScheduleID != nil && *j.ScheduleID == scheduleID && !j.Status.Terminal() {
			n++
		}
	}
	return n
}

// fakeQueueManager is an in-memory lifecycle.QueueManager used only by this test.
type fakeQueueManager struct {
	mu      sync.Mutex
	entries []queue.Entry
}

func (q *fakeQueueManager) Enqueue(_ context.Context, entry queue.Entry) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)
	return len(q.entries), nil
}

func (q *fakeQueueManager) Remove(_ context.Context, _ string) error { return nil }

// fakeEphemeral is a no-op lifecycle.Ephemeral used only by this test.
type fakeEphemeral struct{}

func (fakeEphemeral) SetStatus(context.Context, *domain.Job) error               { return nil }
func (fakeEphemeral) SetProgress(context.Context, *domain.Job) error             { return nil }
func (fakeEphemeral) PublishJobEvent(context.Context, string, *domain.Job) error { return nil }

// fakeScheduleStore is an in-memory scheduler.ScheduleStore used only by this test.
type fakeScheduleStore struct {
	mu        sync.Mutex
	schedules map[string]*domain.Schedule
	deactivated map[string]bool
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{
		schedules:   make(map[string]*domain.Schedule),
		deactivated: make(map[string]bool),
	}
}

func (s *fakeScheduleStore) DueForRun(_ context.Context, now time.Time) ([]*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*domain.Schedule
	for _, sched := range s.schedules {
		if sched.Active && sched.NextRunAt != nil && !sched.NextRunAt.After(now) {
			due = append(due, sched)
		}
	}
	return due, nil
}

func (s *fakeScheduleStore) RecordRun(_ context.Context, id string, nextRunAt *time.Time, ranAt time.Time, succeeded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched := s.schedules[id]
	sched.NextRunAt = nextRunAt
	sched.LastRunAt = &ranAt
	sched.TotalRuns++
	if succeeded {
		sched.SuccessfulRuns++
	} else {
		sched.FailedRuns++
	}
	return nil
}

func (s *fakeScheduleStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[id].Active = false
	s.deactivated[id] = true
	return nil
}

// fakeJobCounter adapts fakeJobStore's count to scheduler.JobCounter.
type fakeJobCounter struct{ store *fakeJobStore }

func (c fakeJobCounter) ActiveChildJobCount(_ context.Context, scheduleID string) (int, error) {
	return c.store.count(scheduleID), nil
}

func newTestScheduler(t *testing.T, schedStore *fakeScheduleStore, jobStore *fakeJobStore, now func() time.Time) *scheduler.Scheduler {
	t.Helper()
	ctrl := lifecycle.New(jobStore, &fakeQueueManager{}, fakeEphemeral{}, now)
	return scheduler.New(schedStore, fakeJobCounter{store: jobStore}, ctrl, logger.NewNoOp(), time.Hour, now)
}

func TestScheduler_FiresDueSchedule_CreatesAndEnqueuesJob(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return now }

	schedStore := newFakeScheduleStore()
	nextRun := now.Add(-time.Minute)
	schedStore.schedules["s1"] = &domain.Schedule{
		ID: "s1", UserID: "u1", Name: "hourly keyword crawl",
		Frequency: domain.FrequencyHourly, Active: true, Timezone: "UTC",
		JobKind: domain.KindKeywordCrawl, JobPriority: domain.PriorityNormal,
		MaxConcurrentJobs: 1, NextRunAt: &nextRun,
	}

	jobStore := newFakeJobStore()
	sched := newTestScheduler(t, schedStore, jobStore, nowFn)

	sched.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	sched.Stop()

	assert.Equal(t, 1, jobStore.count("s1"))
	assert.Equal(t, 1, schedStore.schedules["s1"].TotalRuns)
	assert.Equal(t, 1, schedStore.schedules["s1"].SuccessfulRuns)
	require.NotNil(t, schedStore.schedules["s1"].NextRunAt)
	assert.Equal(t, now.Add(time.Hour), *schedStore.schedules["s1"].NextRunAt)
}

func TestScheduler_OnceSchedule_SelfDeactivates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return now }

	schedStore := newFakeScheduleStore()
	nextRun := now.Add(-time.Minute)
	schedStore.schedules["s1"] = &domain.Schedule{
		ID: "s1", UserID: "u1", Name: "one-off crawl",
		Frequency: domain.FrequencyOnce, Active: true, Timezone: "UTC",
		JobKind: domain.KindTrendingCrawl, JobPriority: domain.PriorityLow,
		MaxConcurrentJobs: 1, NextRunAt: &nextRun,
	}

	jobStore := newFakeJobStore()
	sched := newTestScheduler(t, schedStore, jobStore, nowFn)

	sched.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	sched.Stop()

	assert.True(t, schedStore.deactivated["s1"])
	assert.False(t, schedStore.schedules["s1"].Active)
	assert.Nil(t, schedStore.schedules["s1"].NextRunAt)
}

func TestScheduler_SkipsSchedule_AtMaxConcurrentJobs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return now }

	schedStore := newFakeScheduleStore()
	nextRun := now.Add(-time.Minute)
	schedStore.schedules["s1"] = &domain.Schedule{
		ID: "s1", UserID: "u1", Name: "capped schedule",
		Frequency: domain.FrequencyHourly, Active: true, Timezone: "UTC",
		JobKind: domain.KindAllKeywordsCrawl, JobPriority: domain.PriorityNormal,
		MaxConcurrentJobs: 1, NextRunAt: &nextRun,
	}

	jobStore := newFakeJobStore()
	existingScheduleID := "s1"
	jobStore.jobs["existing"] = &domain.Job{ID: "existing", ScheduleID: &existingScheduleID, Status: domain.StatusRunning}

	sched := newTestScheduler(t, schedStore, jobStore, nowFn)
	sched.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	sched.Stop()

	assert.Equal(t, 1, jobStore.count("s1"))
	assert.Equal(t, 0, schedStore.schedules["s1"].TotalRuns)
}
