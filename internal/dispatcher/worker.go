package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/queue"
)

// WorkerState represents the current state of a worker.
type WorkerState int32

const (
	WorkerStateIdle WorkerState = iota
	WorkerStateBusy
	WorkerStateStopping
	WorkerStateStopped
)

const stuckThreshold = 2 * time.Hour
const percentageMultiplier = 100

func (s WorkerState) String() string {
	switch s {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateBusy:
		return "busy"
	case WorkerStateStopping:
		return "stopping"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// JobHandler runs the 7-step dispatch loop for one dequeued entry.
type JobHandler func(ctx context.Context, entry queue.Entry) error

// Worker is one lane of the dispatcher pool.
type Worker struct {
	id         int
	state      atomic.Int32
	handler    JobHandler
	jobTimeout time.Duration
	logger     logger.Interface

	jobsProcessed atomic.Int64
	jobsSucceeded atomic.Int64
	jobsFailed    atomic.Int64
	lastJobAt     atomic.Int64
	lastError     atomic.Value

	currentJobID atomic.Value
	jobStartedAt atomic.Int64
}

// NewWorker creates a new worker.
func NewWorker(id int, handler JobHandler, jobTimeout time.Duration, log logger.Interface) *Worker {
	w := &Worker{id: id, handler: handler, jobTimeout: jobTimeout, logger: log}
	w.state.Store(int32(WorkerStateIdle))
	w.currentJobID.Store("")
	return w
}

func (w *Worker) ID() int              { return w.id }
func (w *Worker) State() WorkerState   { return WorkerState(w.state.Load()) }
func (w *Worker) IsIdle() bool         { return w.State() == WorkerStateIdle }
func (w *Worker) IsBusy() bool         { return w.State() == WorkerStateBusy }

// TryAcquire atomically claims the worker if it is idle, returning false if
// another caller already claimed it. This is the only safe way to reserve a
// worker: checking IsIdle and acting on the result separately races, since
// the check and the claim are not one atomic step.
func (w *Worker) TryAcquire() bool {
	return w.state.CompareAndSwap(int32(WorkerStateIdle), int32(WorkerStateBusy))
}

// Process runs one entry through the handler, tracking worker state and
// stats. The caller must have already claimed the worker via TryAcquire.
func (w *Worker) Process(ctx context.Context, entry queue.Entry) error {
	if !w.IsBusy() {
		return fmt.Errorf("worker %d: Process called without TryAcquire, current state: %s", w.id, w.State())
	}

	w.currentJobID.Store(entry.JobID)
	w.jobStartedAt.Store(time.Now().UnixNano())

	defer func() {
		w.currentJobID.Store("")
		w.jobStartedAt.Store(0)
		w.state.Store(int32(WorkerStateIdle))
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	w.logger.Info("worker processing job", "worker_id", w.id, "job_id", entry.JobID)

	start := time.Now()
	err := w.handler(jobCtx, entry)
	duration := time.Since(start)

	w.jobsProcessed.Add(1)
	w.lastJobAt.Store(time.Now().UnixNano())

	if err != nil {
		w.jobsFailed.Add(1)
		w.lastError.Store(err)
		w.logger.Error("worker job failed", "worker_id", w.id, "job_id", entry.JobID, "duration", duration, "error", err.Error())
		return fmt.Errorf("worker %d: job %s failed: %w", w.id, entry.JobID, err)
	}

	w.jobsSucceeded.Add(1)
	w.logger.Info("worker job completed", "worker_id", w.id, "job_id", entry.JobID, "duration", duration)
	return nil
}

// Stats returns the worker's statistics.
func (w *Worker) Stats() WorkerStats {
	var lastErr error
	if v := w.lastError.Load(); v != nil {
		lastErr, _ = v.(error)
	}
	currentJobID, _ := w.currentJobID.Load().(string)

	var lastJobTime time.Time
	if ts := w.lastJobAt.Load(); ts > 0 {
		lastJobTime = time.Unix(0, ts)
	}
	var jobStartTime time.Time
	if ts := w.jobStartedAt.Load(); ts > 0 {
		jobStartTime = time.Unix(0, ts)
	}

	return WorkerStats{
		ID: w.id, State: w.State(),
		JobsProcessed: w.jobsProcessed.Load(),
		JobsSucceeded: w.jobsSucceeded.Load(),
		JobsFailed:    w.jobsFailed.Load(),
		LastJobAt:     lastJobTime,
		LastError:     lastErr,
		CurrentJobID:  currentJobID,
		JobStartedAt:  jobStartTime,
	}
}

// WorkerStats holds statistics for a worker.
type WorkerStats struct {
	ID            int
	State         WorkerState
	JobsProcessed int64
	JobsSucceeded int64
	JobsFailed    int64
	LastJobAt     time.Time
	LastError     error
	CurrentJobID  string
	JobStartedAt  time.Time
}

// SuccessRate returns the success rate as a percentage.
func (s WorkerStats) SuccessRate() float64 {
	if s.JobsProcessed == 0 {
		return 0
	}
	return float64(s.JobsSucceeded) / float64(s.JobsProcessed) * percentageMultiplier
}

// IsHealthy reports whether the worker is neither stopped nor stuck on one
// job for longer than stuckThreshold (2h, whatever the job timeout is).
func (s WorkerStats) IsHealthy() bool {
	if s.State == WorkerStateStopped {
		return false
	}
	if s.State == WorkerStateBusy && !s.JobStartedAt.IsZero() && time.Since(s.JobStartedAt) > stuckThreshold {
		return false
	}
	return true
}
