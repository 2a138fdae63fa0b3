package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/crawljobs/internal/logger"
)

// defaultPollInterval is how often the poller refreshes gauge-style metrics
// between job and queue events.
const defaultPollInterval = 10 * time.Second

// PoolStats is the snapshot of worker pool counters a Poller reads on each
// tick. It mirrors dispatcher.PoolStats without importing that package, so
// metrics stays a leaf dependency.
type PoolStats struct {
	Size      int
	Busy      int
	Processed int64
	Succeeded int64
	Failed    int64
}

// Poller periodically samples the worker pool and queue so that metrics
// backed by values already tracked elsewhere (pool counters, queue depth)
// stay current without every call site pushing its own update.
type Poller struct {
	metrics  *Metrics
	interval time.Duration
	poolFn   func() PoolStats
	queueFn  func(ctx context.Context) (map[string]int, error)
	logger   logger.Interface

	lastProcessed int64
	lastSucceeded int64
	lastFailed    int64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPoller constructs a Poller. interval defaults to 10s when zero.
func NewPoller(
	m *Metrics,
	interval time.Duration,
	poolFn func() PoolStats,
	queueFn func(ctx context.Context) (map[string]int, error),
	log logger.Interface,
) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		metrics:  m,
		interval: interval,
		poolFn:   poolFn,
		queueFn:  queueFn,
		logger:   log,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the poll loop in a background goroutine until ctx is cancelled
// or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop signals the poll loop to exit and waits for it to finish.
func (p *Poller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.poolFn != nil {
		stats := p.poolFn()
		p.metrics.SetWorkerPoolStats(stats.Size, stats.Busy)
		p.addCounterDelta(p.metrics.JobsProcessedTotal.Add, &p.lastProcessed, stats.Processed)
		p.addCounterDelta(p.metrics.JobsSucceededTotal.Add, &p.lastSucceeded, stats.Succeeded)
		p.addCounterDelta(p.metrics.JobsFailedTotal.Add, &p.lastFailed, stats.Failed)
	}

	if p.queueFn == nil {
		return
	}
	depths, err := p.queueFn(ctx)
	if err != nil {
		p.logger.Warn("metrics: queue depth poll failed", "error", err.Error())
		return
	}
	for priority, depth := range depths {
		p.metrics.SetQueueDepth(priority, depth)
	}
}

// addCounterDelta advances a monotonic Prometheus counter by however much
// cumulative has grown since the last tick, since Pool tracks its own totals
// with plain atomics rather than Prometheus collectors.
func (p *Poller) addCounterDelta(add func(float64), last *int64, cumulative int64) {
	if delta := cumulative - *last; delta > 0 {
		add(float64(delta))
	}
	*last = cumulative
}
