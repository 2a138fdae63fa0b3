// Package api implements the HTTP API for the job management subsystem.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/crawljobs/internal/api/middleware"
	"github.com/jonesrussell/crawljobs/internal/config"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/metrics"
)

const (
	readHeaderTimeout = 10 * time.Second
	hoursPerDay       = 24
	minutesPerHour    = 60
	secondsPerMinute  = 60
)

// Handlers bundles the handlers SetupRouter wires onto the router. Any nil
// handler is skipped, letting a caller stand up a partial router (e.g. just
// /health) without wiring the entire subsystem.
type Handlers struct {
	Jobs       *JobsHandler
	Schedules  *SchedulesHandler
	Monitoring *MonitoringHandler
	Queue      *QueueHandler
	// Metrics, when set, is shared with the security middleware's rate
	// limiter so rejected requests are counted on the same registry the
	// metrics poller feeds.
	Metrics *metrics.Metrics
}

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(log logger.Interface, cfg config.Interface, h Handlers) (*gin.Engine, middleware.SecurityMiddlewareInterface) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	security := middleware.NewSecurityMiddleware(cfg.GetServerConfig(), log)
	if h.Metrics != nil {
		security.SetMetrics(h.Metrics)
	}
	router.Use(security.Middleware())

	startTime := time.Now()
	version := cfg.GetAppConfig().Version

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
			"uptime":  formatUptime(time.Since(startTime)),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupJobRoutes(router, h.Jobs)
	setupScheduleRoutes(router, h.Schedules)
	setupMonitoringRoutes(router, h.Monitoring)
	setupQueueRoutes(router, h.Queue)

	return router, security
}

func setupJobRoutes(router *gin.Engine, h *JobsHandler) {
	if h == nil {
		return
	}
	router.POST("/jobs", h.CreateJob)
	router.GET("/jobs/:id/status", h.GetJobStatus)
	router.GET("/jobs/:id/progress", h.GetJobProgress)
	router.POST("/jobs/:id/cancel", h.CancelJob)
	router.POST("/jobs/:id/retry", h.RetryJob)
}

func setupScheduleRoutes(router *gin.Engine, h *SchedulesHandler) {
	if h == nil {
		return
	}
	router.POST("/schedules", h.CreateSchedule)
	router.GET("/schedules", h.ListSchedules)
	router.PUT("/schedules/:id/toggle", h.ToggleSchedule)
}

func setupMonitoringRoutes(router *gin.Engine, h *MonitoringHandler) {
	if h == nil {
		return
	}
	router.GET("/monitoring/dashboard", h.Dashboard)
	router.GET("/monitoring/active-jobs", h.ActiveJobs)
	router.GET("/monitoring/job-history", h.JobHistory)
}

func setupQueueRoutes(router *gin.Engine, h *QueueHandler) {
	if h == nil {
		return
	}
	router.GET("/queue/statistics", h.Statistics)
}

// loggingMiddleware creates a middleware that logs HTTP requests.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log.Info("http request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// formatUptime formats a duration as a human-readable uptime string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	minutes := int(d.Minutes()) % minutesPerHour
	seconds := int(d.Seconds()) % secondsPerMinute

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// StartHTTPServer builds the http.Server wrapping SetupRouter's router.
func StartHTTPServer(
	log logger.Interface,
	cfg config.Interface,
	h Handlers,
) (*http.Server, middleware.SecurityMiddlewareInterface, error) {
	router, security := SetupRouter(log, cfg, h)

	srv := &http.Server{
		Addr:              cfg.GetServerConfig().Address,
		Handler:           router,
		ReadTimeout:       cfg.GetServerConfig().ReadTimeout,
		WriteTimeout:      cfg.GetServerConfig().WriteTimeout,
		IdleTimeout:       cfg.GetServerConfig().IdleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv, security, nil
}
