// Package queue implements the Queue Manager: four priority FIFOs backed by
// Redis lists, one per domain.Priority level.
package queue

import (
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
)

// Entry is one unit of queued work. It carries enough of the job descriptor
// that a worker can act on it without a State Store round trip for routing
// decisions, though the authoritative Job row is always reloaded before execution.
type Entry struct {
	JobID        string           `json:"job_id"`
	Priority     domain.Priority  `json:"priority"`
	EnqueuedAt   time.Time        `json:"enqueued_at"`
	ScheduledFor *time.Time       `json:"scheduled_for,omitempty"`
	JobKind      domain.JobKindName `json:"job_type"`
	RetryCount   int              `json:"retry_count"`
}

// Due reports whether the entry's scheduled_for has arrived (or is unset).
func (e Entry) Due(now time.Time) bool {
	return e.ScheduledFor == nil || !e.ScheduledFor.After(now)
}

// Stats summarizes queue depth per priority plus cumulative counters.
type Stats struct {
	PerPriority map[domain.Priority]int `json:"per_priority"`
	Total       int                     `json:"total"`
	Enqueued    int64                   `json:"cumulative_enqueued"`
	Dequeued    int64                   `json:"cumulative_dequeued"`
}
