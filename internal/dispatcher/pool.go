package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/queue"
)

// PoolState represents the current state of the pool.
type PoolState int32

const (
	PoolStateStopped PoolState = iota
	PoolStateRunning
	PoolStateDraining
)

// workerAcquireRetryInterval bounds how often acquireWorker rechecks for a
// freed worker in the (expected-unreachable) case that none is idle yet.
const workerAcquireRetryInterval = 5 * time.Millisecond

func (s PoolState) String() string {
	switch s {
	case PoolStateStopped:
		return "stopped"
	case PoolStateRunning:
		return "running"
	case PoolStateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Pool manages a fixed set of workers submitting dequeued entries to a
// shared JobHandler, bounded by a semaphore rather than unbounded goroutines.
type Pool struct {
	config  Config
	workers []*Worker
	handler JobHandler
	logger  logger.Interface
	state   atomic.Int32
	sem     chan struct{}
	wg      sync.WaitGroup
	stopCh  chan struct{}
	mu      sync.RWMutex

	totalJobsProcessed atomic.Int64
	totalJobsSucceeded atomic.Int64
	totalJobsFailed    atomic.Int64
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, handler JobHandler, log logger.Interface) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	p := &Pool{
		config:  cfg,
		handler: handler,
		logger:  log,
		workers: make([]*Worker, cfg.PoolSize),
		sem:     make(chan struct{}, cfg.PoolSize),
		stopCh:  make(chan struct{}),
	}
	for i := range cfg.PoolSize {
		p.workers[i] = NewWorker(i, handler, cfg.JobTimeout, log)
	}
	p.state.Store(int32(PoolStateStopped))
	return p, nil
}

// Start marks the pool as running.
func (p *Pool) Start() error {
	if !p.state.CompareAndSwap(int32(PoolStateStopped), int32(PoolStateRunning)) {
		return errors.New("pool is already running")
	}
	p.logger.Info("dispatcher pool started", "pool_size", p.config.PoolSize)
	return nil
}

// Stop drains in-flight work, waiting up to DrainTimeout.
func (p *Pool) Stop(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(PoolStateRunning), int32(PoolStateDraining)) {
		return errors.New("pool is not running")
	}
	p.logger.Info("dispatcher pool draining")
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("dispatcher pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("dispatcher pool stop timed out")
	case <-time.After(p.config.DrainTimeout):
		p.logger.Warn("dispatcher pool drain timeout exceeded")
	}

	p.state.Store(int32(PoolStateStopped))
	return nil
}

// Submit blocks until a worker slot is free, then dispatches entry.
func (p *Pool) Submit(ctx context.Context, entry queue.Entry) error {
	if p.State() != PoolStateRunning {
		return errors.New("pool is not running")
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return errors.New("pool is stopping")
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()

		worker := p.acquireWorker(ctx)
		if worker == nil {
			// The semaphore admits at most PoolSize in-flight goroutines and
			// there are PoolSize workers, so this should be unreachable in
			// steady state. Never drop a dequeued entry silently: run it
			// directly through the shared handler instead.
			p.logger.Error("no idle worker available, running entry without a worker slot", "job_id", entry.JobID)
			err := p.handler(ctx, entry)
			p.totalJobsProcessed.Add(1)
			if err != nil {
				p.totalJobsFailed.Add(1)
			} else {
				p.totalJobsSucceeded.Add(1)
			}
			return
		}

		err := worker.Process(ctx, entry)
		p.totalJobsProcessed.Add(1)
		if err != nil {
			p.totalJobsFailed.Add(1)
		} else {
			p.totalJobsSucceeded.Add(1)
		}
	}()

	return nil
}

// acquireWorker claims an idle worker atomically via TryAcquire, so two
// concurrent callers can never end up holding the same worker. It retries
// with a short backoff until one frees up or ctx/stopCh end the wait.
func (p *Pool) acquireWorker(ctx context.Context) *Worker {
	if w := p.tryAcquireAny(); w != nil {
		return w
	}

	ticker := time.NewTicker(workerAcquireRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if w := p.tryAcquireAny(); w != nil {
				return w
			}
		case <-ctx.Done():
			return nil
		case <-p.stopCh:
			return nil
		}
	}
}

func (p *Pool) tryAcquireAny() *Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, w := range p.workers {
		if w.TryAcquire() {
			return w
		}
	}
	return nil
}

func (p *Pool) State() PoolState { return PoolState(p.state.Load()) }
func (p *Pool) IsRunning() bool  { return p.State() == PoolStateRunning }
func (p *Pool) Size() int        { return p.config.PoolSize }

func (p *Pool) BusyCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	count := 0
	for _, w := range p.workers {
		if w.IsBusy() {
			count++
		}
	}
	return count
}

func (p *Pool) IdleCount() int { return p.Size() - p.BusyCount() }

// Stats returns pool statistics.
func (p *Pool) Stats() PoolStats {
	workerStats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		workerStats[i] = w.Stats()
	}
	return PoolStats{
		State:         p.State(),
		PoolSize:      p.config.PoolSize,
		BusyWorkers:   p.BusyCount(),
		IdleWorkers:   p.IdleCount(),
		JobsProcessed: p.totalJobsProcessed.Load(),
		JobsSucceeded: p.totalJobsSucceeded.Load(),
		JobsFailed:    p.totalJobsFailed.Load(),
		Workers:       workerStats,
	}
}

// PoolStats holds statistics for the pool.
type PoolStats struct {
	State         PoolState
	PoolSize      int
	BusyWorkers   int
	IdleWorkers   int
	JobsProcessed int64
	JobsSucceeded int64
	JobsFailed    int64
	Workers       []WorkerStats
}

// SuccessRate returns the success rate as a percentage.
func (s PoolStats) SuccessRate() float64 {
	if s.JobsProcessed == 0 {
		return 0
	}
	return float64(s.JobsSucceeded) / float64(s.JobsProcessed) * percentageMultiplier
}

// Utilization returns the pool utilization as a percentage.
func (s PoolStats) Utilization() float64 {
	if s.PoolSize == 0 {
		return 0
	}
	return float64(s.BusyWorkers) / float64(s.PoolSize) * percentageMultiplier
}
