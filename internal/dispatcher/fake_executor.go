package dispatcher

import (
	"context"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
)

// FakeExecutor is an illustrative CrawlExecutor: it reports a handful of
// progress ticks over a short, configurable duration and then reports
// completion. It never actually crawls anything. Production executors
// (a Reddit API client and friends) live outside this module.
type FakeExecutor struct {
	// TickInterval is the delay between progress ticks. Defaults to 200ms.
	TickInterval time.Duration
	// Ticks is how many progress updates to emit before completing. Defaults to 5.
	Ticks int
}

// NewFakeExecutor constructs a FakeExecutor with sensible defaults.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{TickInterval: 200 * time.Millisecond, Ticks: 5}
}

// Execute reports Ticks evenly-spaced progress updates, then completes.
// Cooperatively cancels when cancel is closed or ctx is done.
func (e *FakeExecutor) Execute(ctx context.Context, job *domain.Job, progress ProgressFunc, cancel CancelSignal) (Result, error) {
	ticks := e.Ticks
	if ticks <= 0 {
		ticks = 5
	}
	interval := e.TickInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	total := job.Total
	if total <= 0 {
		total = ticks
	}

	for i := 1; i <= ticks; i++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-cancel:
			return Result{}, nil
		case <-time.After(interval):
		}
		current := total * i / ticks
		progress(current, total, "processing")
	}

	return Result{ItemsProcessed: total, ItemsSaved: total, ItemsFailed: 0, PointsConsumed: total}, nil
}
