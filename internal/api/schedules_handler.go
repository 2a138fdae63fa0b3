package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/crawljobs/internal/domain"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
	"github.com/jonesrussell/crawljobs/internal/scheduler"
)

// defaultScheduleTimezone is used when a schedule request omits one.
const defaultScheduleTimezone = "UTC"

// ScheduleStore is the subset of the State Store's schedule repository the
// schedules handler needs.
type ScheduleStore interface {
	Create(ctx context.Context, sched *domain.Schedule) error
	LoadByID(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context, userID string) ([]*domain.Schedule, error)
	Update(ctx context.Context, sched *domain.Schedule) error
}

// SchedulesHandler serves the schedule-control endpoints: create, list,
// toggle.
type SchedulesHandler struct {
	schedules ScheduleStore
}

// NewSchedulesHandler constructs a SchedulesHandler.
func NewSchedulesHandler(schedules ScheduleStore) *SchedulesHandler {
	return &SchedulesHandler{schedules: schedules}
}

// CreateSchedule handles POST /schedules.
func (h *SchedulesHandler) CreateSchedule(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	// Validate the job template decodes before persisting it, same as job
	// creation: a schedule with an unparseable template would otherwise only
	// fail once it first fires.
	if _, err := domain.DecodeJobKind(domain.JobKindName(req.JobType), req.JobParameters); err != nil {
		respondBadRequest(c, "invalid job_type or job_parameters: "+err.Error())
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = defaultScheduleTimezone
	}

	sched := &domain.Schedule{
		ID:                uuid.New().String(),
		UserID:            userID(c),
		KeywordID:         req.KeywordID,
		Name:              req.Name,
		Description:       req.Description,
		Frequency:         req.Frequency,
		CustomExpr:        req.CustomExpr,
		Active:            true,
		Timezone:          timezone,
		JobKind:           domain.JobKindName(req.JobType),
		JobParameters:     domain.JSONBMap(req.JobParameters),
		JobPriority:       domain.ParsePriority(req.JobPriority),
		JobTimeoutSec:     req.JobTimeoutSec,
		JobMaxRetries:     req.JobMaxRetries,
		MaxConcurrentJobs: req.MaxConcurrentJobs,
	}
	if sched.MaxConcurrentJobs <= 0 {
		sched.MaxConcurrentJobs = 1
	}

	nextRunAt, err := computeInitialRun(sched.Frequency, sched.Timezone, sched.CustomExpr)
	if err != nil {
		respondBadRequest(c, "invalid frequency: "+err.Error())
		return
	}
	sched.NextRunAt = nextRunAt

	if err := h.schedules.Create(c.Request.Context(), sched); err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	c.JSON(http.StatusCreated, sched)
}

// ListSchedules handles GET /schedules.
func (h *SchedulesHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, SchedulesListResponse{Schedules: schedules})
}

// ToggleSchedule handles PUT /schedules/:id/toggle: flips the active flag.
func (h *SchedulesHandler) ToggleSchedule(c *gin.Context) {
	id := c.Param("id")
	sched, err := h.schedules.LoadByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	if sched.UserID != userID(c) {
		respondNotFound(c, "schedule")
		return
	}

	sched.Active = !sched.Active
	if err := h.schedules.Update(c.Request.Context(), sched); err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, ToggleScheduleResponse{ID: sched.ID, Active: sched.Active})
}

// computeInitialRun seeds a freshly created schedule's next_run_at. A
// frequency=once schedule is due immediately, since ComputeNext only knows
// how to compute the run *after* one has already fired.
func computeInitialRun(freq domain.Frequency, tz, customExpr string) (*time.Time, error) {
	if freq == domain.FrequencyOnce {
		now := time.Now().UTC()
		return &now, nil
	}
	return scheduler.ComputeNext(time.Now().UTC(), freq, tz, customExpr)
}
