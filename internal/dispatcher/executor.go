package dispatcher

import (
	"context"
	"errors"

	"github.com/jonesrussell/crawljobs/internal/domain"
)

// ProgressFunc is invoked by a CrawlExecutor at its own discretion to report
// incremental progress. It never blocks on a State Store round trip.
type ProgressFunc func(current, total int, message string)

// CancelSignal is closed when the dispatcher observes a cancellation request
// for the job currently running. A well-behaved executor polls it between
// network calls and returns promptly once it is closed.
type CancelSignal <-chan struct{}

// Result is what a CrawlExecutor reports on successful completion.
type Result struct {
	ItemsProcessed int
	ItemsSaved     int
	ItemsFailed    int
	PointsConsumed int
}

// CrawlExecutor runs the actual crawl work for one job. Implementations live
// outside this package; the dispatcher only needs this narrow interface to
// drive the lifecycle.
type CrawlExecutor interface {
	Execute(ctx context.Context, job *domain.Job, progress ProgressFunc, cancel CancelSignal) (Result, error)
}

// ExecError optionally wraps an executor error to mark it permanent (not
// retryable). Any other error returned by Execute is treated as transient.
type ExecError struct {
	Err       error
	Permanent bool
}

func (e *ExecError) Error() string { return e.Err.Error() }
func (e *ExecError) Unwrap() error { return e.Err }

// Permanent wraps err as a non-retryable executor failure (bad parameters,
// HTTP 4xx, and similar unrecoverable conditions).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &ExecError{Err: err, Permanent: true}
}

// Transient wraps err as a retryable executor failure (network blip,
// rate limit, HTTP 5xx). Equivalent to returning err unwrapped.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &ExecError{Err: err, Permanent: false}
}

// IsPermanent reports whether err was marked non-retryable via Permanent.
func IsPermanent(err error) bool {
	var execErr *ExecError
	return errors.As(err, &execErr) && execErr.Permanent
}
