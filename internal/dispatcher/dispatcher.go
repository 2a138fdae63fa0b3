package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/lifecycle"
	"github.com/jonesrussell/crawljobs/internal/logger"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
	"github.com/jonesrussell/crawljobs/internal/queue"
)

// Store is the narrow State Store contract the dispatcher needs to reload a
// job before executing it.
type Store interface {
	LoadByID(ctx context.Context, id string) (*domain.Job, error)
}

// QueueManager is the narrow Queue Manager contract the dispatcher needs.
type QueueManager interface {
	Dequeue(ctx context.Context, only ...domain.Priority) (*queue.Entry, error)
}

// Dispatcher owns the dequeue loop and the pool of workers executing jobs,
// driving the Lifecycle Controller through each job's 7-step outcome.
type Dispatcher struct {
	cfg    Config
	queue  QueueManager
	store  Store
	ctrl   *lifecycle.Controller
	exec   CrawlExecutor
	logger logger.Interface

	pool   *Pool
	health *HealthMonitor

	cancelsMu sync.Mutex
	cancels   map[string]chan struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Dispatcher. The pool is sized and timed out per cfg.
func New(cfg Config, qm QueueManager, st Store, ctrl *lifecycle.Controller, exec CrawlExecutor, log logger.Interface) (*Dispatcher, error) {
	d := &Dispatcher{
		cfg:     cfg,
		queue:   qm,
		store:   st,
		ctrl:    ctrl,
		exec:    exec,
		logger:  log,
		cancels: make(map[string]chan struct{}),
		stopCh:  make(chan struct{}),
	}

	pool, err := NewPool(cfg, d.handle, log)
	if err != nil {
		return nil, err
	}
	d.pool = pool
	d.health = NewHealthMonitor(pool, cfg.HealthCheckInterval, log)
	return d, nil
}

// Run starts the pool, the health monitor, and the dequeue loop. It blocks
// until ctx is cancelled and then calls Stop itself.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.pool.Start(); err != nil {
		return err
	}
	d.health.Start(ctx)

	d.wg.Add(1)
	go d.dequeueLoop(ctx)

	<-ctx.Done()
	return d.Stop(context.Background())
}

// Stop drains the pool and stops the health monitor.
func (d *Dispatcher) Stop(ctx context.Context) error {
	close(d.stopCh)
	d.wg.Wait()
	d.health.Stop()
	return d.pool.Stop(ctx)
}

func (d *Dispatcher) dequeueLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.DequeueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.drainOnce(ctx)
		}
	}
}

// drainOnce dequeues and submits as many entries as are immediately
// available, so a burst of queued work isn't throttled to one per tick.
func (d *Dispatcher) drainOnce(ctx context.Context) {
	for {
		entry, err := d.queue.Dequeue(ctx)
		if err != nil {
			d.logger.Error("dispatcher: dequeue failed", "error", err.Error())
			return
		}
		if entry == nil {
			return
		}
		if err := d.pool.Submit(ctx, *entry); err != nil {
			d.logger.Error("dispatcher: submit failed", "job_id", entry.JobID, "error", err.Error())
			return
		}
	}
}

// CancelJob closes the cancel signal for a currently-running job, if any.
// Safe to call even if the job isn't running on this dispatcher instance.
func (d *Dispatcher) CancelJob(jobID string) {
	d.cancelsMu.Lock()
	defer d.cancelsMu.Unlock()
	if ch, ok := d.cancels[jobID]; ok {
		close(ch)
		delete(d.cancels, jobID)
	}
}

func (d *Dispatcher) registerCancel(jobID string, ch chan struct{}) {
	d.cancelsMu.Lock()
	d.cancels[jobID] = ch
	d.cancelsMu.Unlock()
}

func (d *Dispatcher) clearCancel(jobID string) {
	d.cancelsMu.Lock()
	delete(d.cancels, jobID)
	d.cancelsMu.Unlock()
}

// handle runs the dispatch loop's steps 2-7 for one dequeued entry.
func (d *Dispatcher) handle(ctx context.Context, entry queue.Entry) error {
	job, err := d.store.LoadByID(ctx, entry.JobID)
	if err != nil {
		if kind, ok := platerrors.KindOf(err); ok && kind == platerrors.KindNotFound {
			d.logger.Warn("dispatcher: job not found, discarding entry", "job_id", entry.JobID)
			return nil
		}
		return err
	}
	if job.Status.Terminal() {
		d.logger.Debug("dispatcher: job already terminal, discarding entry", "job_id", entry.JobID, "status", string(job.Status))
		return nil
	}

	if err := d.ctrl.Start(ctx, job); err != nil {
		return err
	}

	cancelCh := make(chan struct{})
	d.registerCancel(job.ID, cancelCh)
	defer d.clearCancel(job.ID)

	progress := func(current, total int, message string) {
		if err := d.ctrl.Progress(ctx, job, current, total, message); err != nil {
			d.logger.Warn("dispatcher: progress update failed", "job_id", job.ID, "error", err.Error())
		}
	}

	result, execErr := d.exec.Execute(ctx, job, progress, cancelCh)

	select {
	case <-cancelCh:
		// Cancellation was already applied to the job by whoever closed this
		// channel (lifecycle.Controller.Cancel); nothing further to persist.
		return nil
	default:
	}

	if execErr != nil {
		return d.ctrl.Fail(ctx, job, classifyExecErr(ctx, execErr))
	}

	return d.ctrl.Complete(ctx, job, result.ItemsSaved, result.ItemsProcessed, result.ItemsFailed, result.PointsConsumed)
}

func classifyExecErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return platerrors.ClassifyTimeout(err)
	}
	if IsPermanent(err) {
		return platerrors.Wrap(platerrors.KindExecPermanent, err, "executor failed")
	}
	return platerrors.Wrap(platerrors.KindExecTransient, err, "executor failed")
}

// Stats exposes the pool's current statistics for the Monitoring View.
func (d *Dispatcher) Stats() PoolStats {
	return d.pool.Stats()
}

// Health exposes the most recent health check for the Monitoring View.
func (d *Dispatcher) Health() *HealthCheck {
	return d.health.LastCheck()
}
