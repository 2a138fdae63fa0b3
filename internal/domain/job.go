// Package domain provides the core entities of the job management subsystem.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status is a job's position in the lifecycle state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is accepted from this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority ranks jobs for dequeue order, declared strictly
// urgent > high > normal > low everywhere in this package.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Priorities lists every priority in dequeue rank order, highest first.
func Priorities() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}
}

// ParsePriority converts a string to a Priority, defaulting to normal.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return Priority(s)
	default:
		return PriorityNormal
	}
}

// Weight returns a sort rank; lower means higher priority.
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	default:
		return false
	}
}

// JobKindName identifies which JobKind variant a Job carries.
type JobKindName string

const (
	KindKeywordCrawl     JobKindName = "keyword_crawl"
	KindTrendingCrawl    JobKindName = "trending_crawl"
	KindAllKeywordsCrawl JobKindName = "all_keywords_crawl"
	KindCommentsCrawl    JobKindName = "comments_crawl"
)

// JobKind is a tagged variant replacing an opaque parameters map: exactly one
// of the typed payload fields is populated, selected by Name.
type JobKind struct {
	Name             JobKindName             `json:"name"`
	KeywordCrawl     *KeywordCrawlParams     `json:"keyword_crawl,omitempty"`
	TrendingCrawl    *TrendingCrawlParams    `json:"trending_crawl,omitempty"`
	AllKeywordsCrawl *AllKeywordsCrawlParams `json:"all_keywords_crawl,omitempty"`
	CommentsCrawl    *CommentsCrawlParams    `json:"comments_crawl,omitempty"`
}

type KeywordCrawlParams struct {
	KeywordID string `json:"keyword_id" mapstructure:"keyword_id"`
	Limit     int    `json:"limit"      mapstructure:"limit"`
}

type TrendingCrawlParams struct {
	Region string `json:"region" mapstructure:"region"`
	Limit  int    `json:"limit"  mapstructure:"limit"`
}

type AllKeywordsCrawlParams struct {
	Limit int `json:"limit" mapstructure:"limit"`
}

type CommentsCrawlParams struct {
	PostID string `json:"post_id" mapstructure:"post_id"`
	Limit  int    `json:"limit"   mapstructure:"limit"`
}

// Value marshals JobKind to JSONB for storage.
func (k JobKind) Value() (driver.Value, error) {
	return json.Marshal(k)
}

// Scan unmarshals JobKind from a JSONB column.
func (k *JobKind) Scan(src any) error {
	if src == nil {
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JobKind scan: %T", src)
	}
	return json.Unmarshal(data, k)
}

// Job is a unit of crawl work tracked end to end by the Lifecycle Controller.
type Job struct {
	ID         string  `db:"id"          json:"id"`
	UserID     string  `db:"user_id"     json:"user_id"`
	KeywordID  *string `db:"keyword_id"  json:"keyword_id,omitempty"`
	ScheduleID *string `db:"schedule_id" json:"schedule_id,omitempty"`

	Name       string   `db:"name"        json:"name"`
	Kind       JobKind  `db:"kind"        json:"kind"`
	Priority   Priority `db:"priority"    json:"priority"`
	MaxRetries int      `db:"max_retries" json:"max_retries"`

	Status       Status  `db:"status"        json:"status"`
	RetryCount   int     `db:"retry_count"   json:"retry_count"`
	ErrorMessage *string `db:"error_message" json:"error_message,omitempty"`

	Current        int    `db:"current"         json:"current"`
	Total          int    `db:"total"           json:"total"`
	ItemsProcessed int    `db:"items_processed" json:"items_processed"`
	ItemsSaved     int    `db:"items_saved"     json:"items_saved"`
	ItemsFailed    int    `db:"items_failed"    json:"items_failed"`
	Message        string `db:"message"         json:"message,omitempty"`

	CreatedAt             time.Time  `db:"created_at"              json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"              json:"updated_at"`
	ScheduledFor          *time.Time `db:"scheduled_for"            json:"scheduled_for,omitempty"`
	StartedAt             *time.Time `db:"started_at"               json:"started_at,omitempty"`
	CompletedAt           *time.Time `db:"completed_at"             json:"completed_at,omitempty"`
	ActualDurationSeconds *float64   `db:"actual_duration_seconds" json:"actual_duration_seconds,omitempty"`

	PointsConsumed int `db:"points_consumed" json:"points_consumed"`
}

// Percentage derives progress percentage, clamped to [0,100].
func (j *Job) Percentage() float64 {
	if j.Total <= 0 {
		return 0
	}
	pct := 100 * float64(j.Current) / float64(j.Total)
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// SuccessRate derives items_saved / items_processed as a percentage.
func (j *Job) SuccessRate() float64 {
	if j.ItemsProcessed <= 0 {
		return 0
	}
	return 100 * float64(j.ItemsSaved) / float64(j.ItemsProcessed)
}
