package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/crawljobs/internal/queue"
)

// QueueManager is the Queue Manager contract the queue handler needs.
type QueueManager interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

// QueueHandler serves GET /queue/statistics.
type QueueHandler struct {
	queue QueueManager
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(qm QueueManager) *QueueHandler {
	return &QueueHandler{queue: qm}
}

// Statistics handles GET /queue/statistics.
func (h *QueueHandler) Statistics(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		respondInternalError(c, "failed to retrieve queue statistics: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}
