// Package lifecycle implements the Job Lifecycle Controller: the
// authoritative state machine governing every transition a Job makes from
// creation to a terminal state, plus the operations that drive it.
package lifecycle

import (
	"fmt"

	"github.com/jonesrussell/crawljobs/internal/domain"
)

// validTransitions enumerates every state change this FSM accepts.
// CANCELLED, COMPLETED and FAILED (after retry exhaustion) have no
// outgoing edges: they are terminal.
var validTransitions = map[domain.Status][]domain.Status{
	domain.StatusPending: {
		domain.StatusQueued,
		domain.StatusCancelled,
	},
	domain.StatusQueued: {
		domain.StatusRunning,
		domain.StatusCancelled,
	},
	domain.StatusRunning: {
		domain.StatusCompleted,
		domain.StatusFailed,
		domain.StatusRetrying,
		domain.StatusCancelled,
	},
	domain.StatusRetrying: {
		domain.StatusQueued,
		domain.StatusCancelled,
	},
	domain.StatusCompleted: {},
	domain.StatusFailed:    {},
	domain.StatusCancelled: {},
}

// ValidateTransition reports whether from->to is an allowed FSM edge.
func ValidateTransition(from, to domain.Status) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source status: %s", from)
	}
	for _, a := range allowed {
		if a == to {
			return nil
		}
	}
	if from.Terminal() {
		return fmt.Errorf("%w: job is %s", errTerminalState, from)
	}
	return fmt.Errorf("invalid state transition from %s to %s", from, to)
}

// CanCancel reports whether cancel(job) is reachable from the job's status.
// CANCELLED is reachable from PENDING, QUEUED, RUNNING, RETRYING.
func CanCancel(status domain.Status) bool {
	switch status {
	case domain.StatusPending, domain.StatusQueued, domain.StatusRunning, domain.StatusRetrying:
		return true
	default:
		return false
	}
}

// CanRetry reports whether retry(job) is reachable: only a terminal FAILED
// job with retries remaining may be retried.
func CanRetry(job *domain.Job) bool {
	return job.Status == domain.StatusFailed && job.RetryCount < job.MaxRetries
}
