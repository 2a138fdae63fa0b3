package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
	"github.com/jonesrussell/crawljobs/internal/queue"
)

// checkpointInterval and checkpointDelta are the periodic-flush policy for
// progress(): a durable write happens at most every 15 seconds, or sooner if
// current has moved by 10 percentage points since the last flush.
const (
	checkpointInterval = 15 * time.Second
	checkpointDeltaPct = 10.0

	// backoffBase and backoffCap implement the worker dispatcher's retry
	// delay formula; the controller applies it when re-enqueuing a RETRYING job.
	backoffBase = 60 * time.Second
	backoffCap  = 3600 * time.Second
)

// Store is the State Store contract the controller needs: create,
// load-by-id, and an optimistic-check update keyed on updated_at.
type Store interface {
	Create(ctx context.Context, job *domain.Job) error
	LoadByID(ctx context.Context, id string) (*domain.Job, error)
	UpdateWithOptimisticCheck(ctx context.Context, job *domain.Job, expectedUpdatedAt time.Time) error
}

// QueueManager is the Queue Manager contract the controller needs.
type QueueManager interface {
	Enqueue(ctx context.Context, entry queue.Entry) (int, error)
	Remove(ctx context.Context, jobID string) error
}

// Ephemeral is the Ephemeral Store contract the controller needs: live
// status/progress mirrors and the lifecycle event pub/sub channel.
type Ephemeral interface {
	SetStatus(ctx context.Context, job *domain.Job) error
	SetProgress(ctx context.Context, job *domain.Job) error
	PublishJobEvent(ctx context.Context, eventType string, job *domain.Job) error
}

// Controller is the Job Lifecycle Controller: the sole writer of Job status
// transitions, backed by the State Store, Queue Manager and Ephemeral Store.
type Controller struct {
	store     Store
	queue     QueueManager
	ephemeral Ephemeral
	now       func() time.Time

	checkpointsMu sync.Mutex
	checkpoints   map[string]*progressCheckpoint
}

// New constructs a Controller. now defaults to time.Now when nil, overridden
// in tests for deterministic timestamps.
func New(store Store, qm QueueManager, eph Ephemeral, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store:       store,
		queue:       qm,
		ephemeral:   eph,
		now:         now,
		checkpoints: make(map[string]*progressCheckpoint),
	}
}

// Create inserts a new Job in PENDING.
func (c *Controller) Create(ctx context.Context, job *domain.Job) error {
	job.Status = domain.StatusPending
	job.CreatedAt = c.now()
	job.UpdatedAt = job.CreatedAt
	if !job.Priority.IsValid() {
		job.Priority = domain.PriorityNormal
	}
	if err := c.store.Create(ctx, job); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "create job")
	}
	return nil
}

// Enqueue transitions PENDING|RETRYING -> QUEUED and hands the job to the
// Queue Manager, returning the entry's position in its priority queue.
func (c *Controller) Enqueue(ctx context.Context, job *domain.Job, delay time.Duration) (int, error) {
	if err := ValidateTransition(job.Status, domain.StatusQueued); err != nil {
		return 0, platerrors.Wrap(platerrors.KindInvalidTransition, err, "enqueue")
	}

	var scheduledFor *time.Time
	if delay > 0 {
		t := c.now().Add(delay)
		scheduledFor = &t
	}

	entry := queue.Entry{
		JobID:        job.ID,
		Priority:     job.Priority,
		EnqueuedAt:   c.now(),
		ScheduledFor: scheduledFor,
		JobKind:      job.Kind.Name,
		RetryCount:   job.RetryCount,
	}

	position, err := c.queue.Enqueue(ctx, entry)
	if err != nil {
		return 0, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "enqueue to queue manager")
	}

	prev := job.Status
	oldUpdatedAt := job.UpdatedAt
	job.Status = domain.StatusQueued
	job.ScheduledFor = scheduledFor
	job.UpdatedAt = c.now()
	if err := c.store.UpdateWithOptimisticCheck(ctx, job, oldUpdatedAt); err != nil {
		job.Status = prev
		return 0, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "persist queued status")
	}
	return position, nil
}

// Start transitions QUEUED -> RUNNING, stamping started_at on first start.
func (c *Controller) Start(ctx context.Context, job *domain.Job) error {
	if err := ValidateTransition(job.Status, domain.StatusRunning); err != nil {
		return platerrors.Wrap(platerrors.KindInvalidTransition, err, "start")
	}

	oldUpdatedAt := job.UpdatedAt
	job.Status = domain.StatusRunning
	if job.StartedAt == nil {
		t := c.now()
		job.StartedAt = &t
	}
	job.UpdatedAt = c.now()

	if err := c.store.UpdateWithOptimisticCheck(ctx, job, oldUpdatedAt); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "persist running status")
	}
	if err := c.ephemeral.SetStatus(ctx, job); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "mirror status")
	}
	return c.ephemeral.PublishJobEvent(ctx, "started", job)
}

// progressCheckpoint tracks, per job, when the last durable flush happened
// and at what percentage, so Progress can decide whether to checkpoint.
type progressCheckpoint struct {
	at  time.Time
	pct float64
}

// Progress updates counters on a RUNNING job. Only the Ephemeral Store is
// written on every call; the State Store is flushed at most every
// checkpointInterval or sooner on a checkpointDeltaPct percentage jump.
func (c *Controller) Progress(ctx context.Context, job *domain.Job, current, total int, message string) error {
	if job.Status != domain.StatusRunning {
		return platerrors.New(platerrors.KindInvalidTransition, fmt.Sprintf("progress: job %s is not running", job.ID))
	}

	job.Current = current
	if total > 0 {
		job.Total = total
	}
	if message != "" {
		job.Message = message
	}
	pct := job.Percentage()

	if err := c.ephemeral.SetProgress(ctx, job); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "mirror progress")
	}
	if err := c.ephemeral.PublishJobEvent(ctx, "progress", job); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "publish progress")
	}

	c.checkpointsMu.Lock()
	cp, ok := c.checkpoints[job.ID]
	due := !ok || c.now().Sub(cp.at) >= checkpointInterval || (pct-cp.pct) >= checkpointDeltaPct
	c.checkpointsMu.Unlock()

	if due {
		oldUpdatedAt := job.UpdatedAt
		job.UpdatedAt = c.now()
		if err := c.store.UpdateWithOptimisticCheck(ctx, job, oldUpdatedAt); err != nil {
			return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "checkpoint progress")
		}
		c.checkpointsMu.Lock()
		c.checkpoints[job.ID] = &progressCheckpoint{at: c.now(), pct: pct}
		c.checkpointsMu.Unlock()
	}
	return nil
}

func (c *Controller) clearCheckpoint(jobID string) {
	c.checkpointsMu.Lock()
	delete(c.checkpoints, jobID)
	c.checkpointsMu.Unlock()
}

// Complete transitions RUNNING -> COMPLETED.
func (c *Controller) Complete(ctx context.Context, job *domain.Job, saved, processed, failed, pointsConsumed int) error {
	if err := ValidateTransition(job.Status, domain.StatusCompleted); err != nil {
		if job.Status.Terminal() {
			return platerrors.Wrap(platerrors.KindInvalidTransition, platerrors.ErrAlreadyTerminal, "complete")
		}
		return platerrors.Wrap(platerrors.KindInvalidTransition, err, "complete")
	}

	oldUpdatedAt := job.UpdatedAt
	now := c.now()
	job.Status = domain.StatusCompleted
	job.ItemsSaved = saved
	job.ItemsProcessed = processed
	job.ItemsFailed = failed
	job.PointsConsumed += pointsConsumed
	job.Current = job.Total
	job.CompletedAt = &now
	if job.StartedAt != nil {
		d := now.Sub(*job.StartedAt).Seconds()
		job.ActualDurationSeconds = &d
	}
	job.UpdatedAt = now

	if err := c.store.UpdateWithOptimisticCheck(ctx, job, oldUpdatedAt); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "persist completed status")
	}
	c.clearCheckpoint(job.ID)
	_ = c.ephemeral.SetStatus(ctx, job)
	return c.ephemeral.PublishJobEvent(ctx, "completed", job)
}

// Fail transitions RUNNING -> RETRYING (if retries remain) or RUNNING ->
// FAILED (terminal). Called from a non-RUNNING state it is a no-op if the
// job is already terminal; otherwise it transitions straight to FAILED,
// since a job that never ran cannot be retried.
func (c *Controller) Fail(ctx context.Context, job *domain.Job, execErr error) error {
	if job.Status.Terminal() {
		return nil
	}

	oldUpdatedAt := job.UpdatedAt
	msg := execErr.Error()
	now := c.now()
	job.ErrorMessage = &msg
	job.UpdatedAt = now

	kind, _ := platerrors.KindOf(execErr)
	retryable := kind != platerrors.KindExecPermanent && job.RetryCount < job.MaxRetries

	if job.Status != domain.StatusRunning {
		// Never ran: no retry, straight to FAILED.
		retryable = false
	}

	if retryable {
		job.Status = domain.StatusRetrying
		job.RetryCount++
		if err := c.store.UpdateWithOptimisticCheck(ctx, job, oldUpdatedAt); err != nil {
			return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "persist retrying status")
		}
		_ = c.ephemeral.PublishJobEvent(ctx, "failed", job)

		delay := backoffDelay(job.RetryCount)
		if _, err := c.Enqueue(ctx, job, delay); err != nil {
			return err
		}
		return nil
	}

	if job.RetryCount < job.MaxRetries {
		job.RetryCount = job.MaxRetries
	}
	job.Status = domain.StatusFailed
	job.CompletedAt = &now
	if err := c.store.UpdateWithOptimisticCheck(ctx, job, oldUpdatedAt); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "persist failed status")
	}
	c.clearCheckpoint(job.ID)
	_ = c.ephemeral.SetStatus(ctx, job)
	return c.ephemeral.PublishJobEvent(ctx, "failed", job)
}

// backoffDelay implements 60s * 2^retry_count, capped at 3600s.
func backoffDelay(retryCount int) time.Duration {
	d := backoffBase
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}

// Cancel transitions any non-terminal status to CANCELLED, idempotently
// removing the job from the Queue Manager. Running executions observe
// cancellation cooperatively via the dispatcher's cancel signal, not here.
func (c *Controller) Cancel(ctx context.Context, job *domain.Job) error {
	if !CanCancel(job.Status) {
		return platerrors.Wrap(platerrors.KindInvalidTransition, platerrors.ErrAlreadyTerminal, "cancel")
	}

	if err := c.queue.Remove(ctx, job.ID); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "remove from queue")
	}

	oldUpdatedAt := job.UpdatedAt
	now := c.now()
	job.Status = domain.StatusCancelled
	job.CompletedAt = &now
	job.UpdatedAt = now
	if err := c.store.UpdateWithOptimisticCheck(ctx, job, oldUpdatedAt); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "persist cancelled status")
	}
	c.clearCheckpoint(job.ID)
	_ = c.ephemeral.SetStatus(ctx, job)
	return c.ephemeral.PublishJobEvent(ctx, "cancelled", job)
}

// Retry transitions a terminal FAILED job back to QUEUED via RETRYING,
// incrementing retry_count. Fails if retries are already exhausted.
func (c *Controller) Retry(ctx context.Context, job *domain.Job) error {
	if !CanRetry(job) {
		return platerrors.Wrap(platerrors.KindInvalidTransition, errRetriesExhausted, "retry")
	}

	oldUpdatedAt := job.UpdatedAt
	job.Status = domain.StatusRetrying
	job.RetryCount++
	job.ErrorMessage = nil
	job.CompletedAt = nil
	job.UpdatedAt = c.now()
	if err := c.store.UpdateWithOptimisticCheck(ctx, job, oldUpdatedAt); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "persist retrying status")
	}

	if _, err := c.Enqueue(ctx, job, 0); err != nil {
		return err
	}
	return nil
}
