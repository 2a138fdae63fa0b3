package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/lifecycle"
	"github.com/jonesrussell/crawljobs/internal/logger"
)

// defaultTickInterval is how often the scheduler wakes to check for due
// schedules.
const defaultTickInterval = 30 * time.Second

// ScheduleStore is the State Store contract the scheduler needs.
type ScheduleStore interface {
	DueForRun(ctx context.Context, now time.Time) ([]*domain.Schedule, error)
	RecordRun(ctx context.Context, id string, nextRunAt *time.Time, ranAt time.Time, succeeded bool) error
	Deactivate(ctx context.Context, id string) error
}

// JobCounter reports how many of a schedule's child jobs are still active
// (queued or running), used to enforce max_concurrent_jobs.
type JobCounter interface {
	ActiveChildJobCount(ctx context.Context, scheduleID string) (int, error)
}

// TickRecorder receives one observation per completed tick, used to feed
// Prometheus metrics without coupling the scheduler to that package.
type TickRecorder interface {
	ObserveSchedulerTick(seconds float64)
}

// Scheduler is the single writer driving Schedules into child Jobs.
type Scheduler struct {
	store    ScheduleStore
	jobs     JobCounter
	ctrl     *lifecycle.Controller
	logger   logger.Interface
	interval time.Duration
	now      func() time.Time
	metrics  TickRecorder

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Scheduler. interval defaults to 30s when zero; now
// defaults to time.Now when nil, overridden in tests.
func New(store ScheduleStore, jobs JobCounter, ctrl *lifecycle.Controller, log logger.Interface, interval time.Duration, now func() time.Time) *Scheduler {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:    store,
		jobs:     jobs,
		ctrl:     ctrl,
		logger:   log,
		interval: interval,
		now:      now,
		stopCh:   make(chan struct{}),
	}
}

// SetMetrics installs a TickRecorder to observe each tick's duration. Safe
// to call before Start; nil leaves tick timing unrecorded.
func (s *Scheduler) SetMetrics(recorder TickRecorder) {
	s.metrics = recorder
}

// Start runs the tick loop in a background goroutine until ctx is cancelled
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "tick_interval", s.interval)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the tick loop to exit and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduler pass: steps 1-3 of the tick loop.
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSchedulerTick(time.Since(start).Seconds())
		}
	}()

	now := s.now()
	due, err := s.store.DueForRun(ctx, now)
	if err != nil {
		s.logger.Error("scheduler: query due schedules failed", "error", err.Error())
		return
	}
	for _, sched := range due {
		s.fire(ctx, sched, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, sched *domain.Schedule, now time.Time) {
	log := s.logger.With("schedule_id", sched.ID, "user_id", sched.UserID)

	active, err := s.jobs.ActiveChildJobCount(ctx, sched.ID)
	if err != nil {
		log.Error("scheduler: active job count failed", "error", err.Error())
		return
	}
	if active >= sched.MaxConcurrentJobs {
		log.Debug("scheduler: skipping schedule, at max concurrent jobs", "active", active, "max", sched.MaxConcurrentJobs)
		return
	}

	job := jobFromSchedule(sched, now)
	succeeded := true
	if err := s.ctrl.Create(ctx, job); err != nil {
		log.Error("scheduler: create child job failed", "error", err.Error())
		succeeded = false
	} else if _, err := s.ctrl.Enqueue(ctx, job, 0); err != nil {
		log.Error("scheduler: enqueue child job failed", "job_id", job.ID, "error", err.Error())
		succeeded = false
	} else {
		log.Info("scheduler: fired schedule", "job_id", job.ID)
	}

	nextRunAt, err := ComputeNext(now, sched.Frequency, sched.Timezone, sched.CustomExpr)
	if err != nil {
		log.Error("scheduler: compute next run failed", "error", err.Error())
		nextRunAt = nil
	}

	if err := s.store.RecordRun(ctx, sched.ID, nextRunAt, now, succeeded); err != nil {
		log.Error("scheduler: record run failed", "error", err.Error())
	}

	if sched.Frequency == domain.FrequencyOnce {
		if err := s.store.Deactivate(ctx, sched.ID); err != nil {
			log.Error("scheduler: deactivate once-schedule failed", "error", err.Error())
		}
	}
}

func jobFromSchedule(sched *domain.Schedule, now time.Time) *domain.Job {
	tmpl := sched.Template()
	return &domain.Job{
		ID:         uuid.New().String(),
		UserID:     sched.UserID,
		KeywordID:  sched.KeywordID,
		ScheduleID: &sched.ID,
		Name:       sched.Name,
		Kind:       tmpl.Kind,
		Priority:   tmpl.Priority,
		MaxRetries: tmpl.MaxRetries,
		CreatedAt:  now,
	}
}
