package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/lifecycle"
	"github.com/jonesrussell/crawljobs/internal/monitor"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
)

// JobStore is the subset of the State Store's job repository the jobs
// handler needs directly, beyond what lifecycle.Controller already wraps.
type JobStore interface {
	LoadByID(ctx context.Context, id string) (*domain.Job, error)
}

// CancelSignaler interrupts a job's in-flight executor, if the job is
// currently running on this dispatcher instance. Satisfied by
// *dispatcher.Dispatcher.
type CancelSignaler interface {
	CancelJob(jobID string)
}

// JobsHandler serves the job-control endpoints: create, status, progress,
// cancel, retry.
type JobsHandler struct {
	jobs JobStore
	ctrl *lifecycle.Controller
	view *monitor.View
	disp CancelSignaler
}

// NewJobsHandler constructs a JobsHandler. disp signals cancellation to a
// running executor; it is called after the state transition so a cancelled
// job is never left RUNNING even if disp is nil or the job isn't in-flight
// on this instance.
func NewJobsHandler(jobs JobStore, ctrl *lifecycle.Controller, view *monitor.View, disp CancelSignaler) *JobsHandler {
	return &JobsHandler{jobs: jobs, ctrl: ctrl, view: view, disp: disp}
}

// CreateJob handles POST /jobs: decodes the job kind's typed payload from the
// request's parameters map, creates the job in PENDING and immediately
// enqueues it.
func (h *JobsHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	kind, err := domain.DecodeJobKind(domain.JobKindName(req.JobType), req.Parameters)
	if err != nil {
		respondBadRequest(c, "invalid job_type or parameters: "+err.Error())
		return
	}

	job := &domain.Job{
		ID:         uuid.New().String(),
		UserID:     userID(c),
		KeywordID:  req.KeywordID,
		Name:       req.Name,
		Kind:       kind,
		Priority:   domain.ParsePriority(req.Priority),
		MaxRetries: req.MaxRetries,
	}

	ctx := c.Request.Context()
	if err := h.ctrl.Create(ctx, job); err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}

	position, err := h.ctrl.Enqueue(ctx, job, 0)
	if err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}

	c.JSON(http.StatusCreated, CreateJobResponse{
		JobID:         job.ID,
		Status:        string(job.Status),
		EnqueueResult: position,
	})
}

// GetJobStatus handles GET /jobs/:id/status.
func (h *JobsHandler) GetJobStatus(c *gin.Context) {
	job, err := h.loadOwnedJob(c)
	if err != nil {
		return
	}

	c.JSON(http.StatusOK, JobStatusResponse{
		DBStatus:              job.Status,
		LiveStatus:            job.Status,
		Progress:              job.Percentage(),
		Current:                job.Current,
		Total:                  job.Total,
		StartedAt:              job.StartedAt,
		CompletedAt:            job.CompletedAt,
		ActualDurationSeconds:  job.ActualDurationSeconds,
		RetryCount:             job.RetryCount,
		PointsConsumed:         job.PointsConsumed,
	})
}

// GetJobProgress handles GET /jobs/:id/progress: merges live Ephemeral Store
// progress with recent metric samples and an ETA, via the Monitoring View.
func (h *JobsHandler) GetJobProgress(c *gin.Context) {
	job, err := h.loadOwnedJob(c)
	if err != nil {
		return
	}

	detail, err := h.view.JobProgress(c.Request.Context(), job)
	if err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CancelJob handles POST /jobs/:id/cancel.
func (h *JobsHandler) CancelJob(c *gin.Context) {
	job, err := h.loadOwnedJob(c)
	if err != nil {
		return
	}

	if err := h.ctrl.Cancel(c.Request.Context(), job); err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	if h.disp != nil {
		h.disp.CancelJob(job.ID)
	}
	c.JSON(http.StatusOK, gin.H{"id": job.ID, "status": job.Status})
}

// RetryJob handles POST /jobs/:id/retry.
func (h *JobsHandler) RetryJob(c *gin.Context) {
	job, err := h.loadOwnedJob(c)
	if err != nil {
		return
	}

	if err := h.ctrl.Retry(c.Request.Context(), job); err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": job.ID, "status": job.Status})
}

// loadOwnedJob loads the job named by the :id path param, writing a response
// and returning a non-nil error if it is missing or not owned by the caller.
func (h *JobsHandler) loadOwnedJob(c *gin.Context) (*domain.Job, error) {
	id := c.Param("id")
	job, err := h.jobs.LoadByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return nil, err
	}
	if job.UserID != userID(c) {
		respondNotFound(c, "job")
		return nil, platerrors.New(platerrors.KindNotFound, "job not found")
	}
	return job, nil
}
