// Package api implements the HTTP API for the job management subsystem.
package api

import (
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
)

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Name       string         `json:"name"       binding:"required"`
	JobType    string         `json:"job_type"    binding:"required"`
	Parameters map[string]any `json:"parameters"`
	Priority   string         `json:"priority"`
	MaxRetries int            `json:"max_retries"`
	KeywordID  *string        `json:"keyword_id"`
}

// CreateJobResponse is the body returned by POST /jobs.
type CreateJobResponse struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	EnqueueResult int    `json:"enqueue_result"`
}

// JobStatusResponse is the body returned by GET /jobs/{id}/status.
type JobStatusResponse struct {
	DBStatus              domain.Status `json:"db_status"`
	LiveStatus            domain.Status `json:"live_status"`
	Progress              float64       `json:"progress"`
	Current               int           `json:"current"`
	Total                 int           `json:"total"`
	StartedAt             *time.Time    `json:"started_at,omitempty"`
	CompletedAt           *time.Time    `json:"completed_at,omitempty"`
	ActualDurationSeconds *float64      `json:"actual_duration_seconds,omitempty"`
	RetryCount            int           `json:"retry_count"`
	PointsConsumed        int           `json:"points_consumed"`
}

// CreateScheduleRequest is the body of POST /schedules.
type CreateScheduleRequest struct {
	Name              string          `json:"name"       binding:"required"`
	Description       string          `json:"description"`
	Frequency         domain.Frequency `json:"frequency"  binding:"required"`
	CustomExpr        string          `json:"custom_expr"`
	Timezone          string          `json:"timezone"`
	JobType           string          `json:"job_type"    binding:"required"`
	JobParameters     map[string]any  `json:"job_parameters"`
	JobPriority       string          `json:"job_priority"`
	JobTimeoutSec     int             `json:"job_timeout_seconds"`
	JobMaxRetries     int             `json:"job_max_retries"`
	MaxConcurrentJobs int             `json:"max_concurrent_jobs"`
	KeywordID         *string         `json:"keyword_id"`
}

// SchedulesListResponse is the body returned by GET /schedules.
type SchedulesListResponse struct {
	Schedules []*domain.Schedule `json:"schedules"`
}

// ToggleScheduleResponse is the body returned by PUT /schedules/{id}/toggle.
type ToggleScheduleResponse struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}
