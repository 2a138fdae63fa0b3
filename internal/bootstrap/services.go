package bootstrap

import (
	"context"
	"time"

	"github.com/jonesrussell/crawljobs/internal/api"
	"github.com/jonesrussell/crawljobs/internal/config"
	"github.com/jonesrussell/crawljobs/internal/dispatcher"
	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/ephemeral"
	"github.com/jonesrussell/crawljobs/internal/lifecycle"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/metrics"
	"github.com/jonesrussell/crawljobs/internal/monitor"
	"github.com/jonesrussell/crawljobs/internal/notify"
	"github.com/jonesrussell/crawljobs/internal/queue"
	"github.com/jonesrussell/crawljobs/internal/scheduler"
	"github.com/redis/go-redis/v9"
)

const metricsPollInterval = 10 * time.Second

// ServiceComponents bundles every assembled component a command's Start
// needs to run and, on shutdown, stop in order.
type ServiceComponents struct {
	Ephemeral  *ephemeral.Store
	Queue      *queue.Manager
	Lifecycle  *lifecycle.Controller
	Dispatcher *dispatcher.Dispatcher
	Scheduler  *scheduler.Scheduler
	Monitor    *monitor.View
	Notify     *notify.Router
	Metrics    *metrics.Metrics
	Poller     *metrics.Poller
	Handlers   api.Handlers
}

// SetupServices wires the Queue Manager, Lifecycle Controller, Worker
// Dispatcher, Scheduler, Monitoring View, Notification Router, and
// Prometheus metrics on top of an already-connected database and Redis
// client.
func SetupServices(cfg config.Interface, log logger.Interface, db *DatabaseComponents, rdb *redis.Client) (*ServiceComponents, error) {
	eph := ephemeral.New(rdb)
	qm := queue.New(rdb)

	ctrl := lifecycle.New(db.Jobs, qm, eph, nil)

	met := metrics.NewMetrics(nil)

	exec := dispatcher.NewFakeExecutor()
	disp, err := dispatcher.New(cfg.GetDispatcherConfig(), qm, db.Jobs, ctrl, exec, log)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(db.Schedules, db.Jobs, ctrl, log, cfg.GetSchedulerTickInterval(), nil)
	sched.SetMetrics(met)

	view := monitor.New(db.Jobs, db.Schedules, qm, eph, nil)

	sinks := map[domain.DeliveryMethod]notify.NotificationSink{
		domain.DeliveryEmail:   notify.NewLogSink(domain.DeliveryEmail, log),
		domain.DeliverySMS:     notify.NewLogSink(domain.DeliverySMS, log),
		domain.DeliveryWebhook: notify.NewLogSink(domain.DeliveryWebhook, log),
	}
	router := notify.New(db.Notifications, eph, sinks, log)

	poolFn := func() metrics.PoolStats {
		s := disp.Stats()
		return metrics.PoolStats{
			Size:      s.PoolSize,
			Busy:      s.BusyWorkers,
			Processed: s.JobsProcessed,
			Succeeded: s.JobsSucceeded,
			Failed:    s.JobsFailed,
		}
	}
	queueFn := func(ctx context.Context) (map[string]int, error) {
		stats, err := qm.Stats(ctx)
		if err != nil {
			return nil, err
		}
		byPriority := make(map[string]int, len(stats.PerPriority))
		for priority, n := range stats.PerPriority {
			byPriority[string(priority)] = n
		}
		return byPriority, nil
	}
	poller := metrics.NewPoller(met, metricsPollInterval, poolFn, queueFn, log)

	handlers := api.Handlers{
		Jobs:       api.NewJobsHandler(db.Jobs, ctrl, view, disp),
		Schedules:  api.NewSchedulesHandler(db.Schedules),
		Monitoring: api.NewMonitoringHandler(view),
		Queue:      api.NewQueueHandler(qm),
		Metrics:    met,
	}

	return &ServiceComponents{
		Ephemeral:  eph,
		Queue:      qm,
		Lifecycle:  ctrl,
		Dispatcher: disp,
		Scheduler:  sched,
		Monitor:    view,
		Notify:     router,
		Metrics:    met,
		Poller:     poller,
		Handlers:   handlers,
	}, nil
}
