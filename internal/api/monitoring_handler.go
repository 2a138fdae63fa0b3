package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
	"github.com/jonesrussell/crawljobs/internal/monitor"
	"github.com/jonesrussell/crawljobs/internal/store"
)

// defaultHistoryPageSize matches the Monitoring View's own store.QueryParams default.
const defaultHistoryPageSize = 20

// MonitoringHandler serves the dashboard, active-jobs and job-history
// read endpoints, all backed by the Monitoring View.
type MonitoringHandler struct {
	view *monitor.View
}

// NewMonitoringHandler constructs a MonitoringHandler.
func NewMonitoringHandler(view *monitor.View) *MonitoringHandler {
	return &MonitoringHandler{view: view}
}

// Dashboard handles GET /monitoring/dashboard.
func (h *MonitoringHandler) Dashboard(c *gin.Context) {
	stats, err := h.view.Dashboard(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ActiveJobs handles GET /monitoring/active-jobs.
func (h *MonitoringHandler) ActiveJobs(c *gin.Context) {
	jobs, err := h.view.ActiveJobs(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// JobHistory handles GET /monitoring/job-history?limit&status&type.
func (h *MonitoringHandler) JobHistory(c *gin.Context) {
	limit, offset := parseLimitOffset(c, defaultHistoryPageSize, 0)
	limit = clampLimit(limit, MaxPageSize)
	page := offset/limit + 1

	params := store.QueryParams{
		UserID:   userID(c),
		Status:   c.Query("status"),
		JobKind:  c.Query("type"),
		Page:     page,
		PageSize: limit,
	}

	jobs, total, err := h.view.History(c.Request.Context(), params)
	if err != nil {
		respondError(c, platerrors.StatusCode(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": total})
}
