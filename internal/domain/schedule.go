package domain

import "time"

// Frequency is how often an active Schedule fires.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// JobTemplate is the blueprint a Schedule uses to create each child Job.
type JobTemplate struct {
	Kind       JobKind  `json:"kind"`
	Priority   Priority `db:"priority" json:"priority"`
	TimeoutSec int      `json:"timeout_seconds"`
	MaxRetries int      `json:"max_retries"`
}

// Schedule fires on a Frequency to create and enqueue Jobs.
type Schedule struct {
	ID        string  `db:"id"         json:"id"`
	UserID    string  `db:"user_id"    json:"user_id"`
	KeywordID *string `db:"keyword_id" json:"keyword_id,omitempty"`

	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Frequency   Frequency `db:"frequency"    json:"frequency"`
	CustomExpr  string    `db:"custom_expr"  json:"custom_expr,omitempty"`
	Active      bool      `db:"active"       json:"active"`
	Timezone    string    `db:"timezone"     json:"timezone"`

	JobKind       JobKindName `db:"job_kind"        json:"job_kind"`
	JobParameters JSONBMap    `db:"job_parameters"  json:"job_parameters,omitempty"`
	JobPriority   Priority    `db:"job_priority"    json:"job_priority"`
	JobTimeoutSec int         `db:"job_timeout_sec" json:"job_timeout_seconds"`
	JobMaxRetries int         `db:"job_max_retries" json:"job_max_retries"`

	MaxConcurrentJobs int `db:"max_concurrent_jobs" json:"max_concurrent_jobs"`

	NextRunAt *time.Time `db:"next_run_at" json:"next_run_at,omitempty"`
	LastRunAt *time.Time `db:"last_run_at" json:"last_run_at,omitempty"`

	TotalRuns      int `db:"total_runs"      json:"total_runs"`
	SuccessfulRuns int `db:"successful_runs" json:"successful_runs"`
	FailedRuns     int `db:"failed_runs"     json:"failed_runs"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SuccessRate derives successful_runs / total_runs as a percentage.
func (s *Schedule) SuccessRate() float64 {
	if s.TotalRuns <= 0 {
		return 0
	}
	return 100 * float64(s.SuccessfulRuns) / float64(s.TotalRuns)
}

// Template reconstructs the JobTemplate this schedule stamps onto each child
// job, decoding JobParameters into the typed payload JobKind selects. A
// decode failure yields a bare JobKind carrying only its Name, so a schedule
// with malformed parameters still fires rather than blocking the tick.
func (s *Schedule) Template() JobTemplate {
	kind, err := DecodeJobKind(s.JobKind, s.JobParameters)
	if err != nil {
		kind = JobKind{Name: s.JobKind}
	}
	return JobTemplate{
		Kind:       kind,
		Priority:   s.JobPriority,
		TimeoutSec: s.JobTimeoutSec,
		MaxRetries: s.JobMaxRetries,
	}
}
