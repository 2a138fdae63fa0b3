// Package metrics exposes Prometheus instrumentation for the queue, the
// worker pool, and the scheduler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all crawljobs metrics.
	Namespace = "crawljobs"
	// Subsystem is the Prometheus subsystem for job management metrics.
	Subsystem = "jobs"
)

// Metrics holds the Prometheus collectors for the job management subsystem.
type Metrics struct {
	QueueDepth            *prometheus.GaugeVec
	JobsProcessedTotal     prometheus.Counter
	JobsSucceededTotal     prometheus.Counter
	JobsFailedTotal        prometheus.Counter
	WorkerPoolUtilization  prometheus.Gauge
	WorkerPoolSize         prometheus.Gauge
	WorkersBusy            prometheus.Gauge
	SchedulerTickDuration  prometheus.Histogram
	RateLimitedRequests    prometheus.Counter
}

// NewMetrics creates and registers the job management subsystem's metrics
// against reg. A nil reg registers against prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "queue_depth",
				Help:      "Current number of queued jobs per priority.",
			},
			[]string{"priority"},
		),
		JobsProcessedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "processed_total",
				Help:      "Total number of jobs the worker pool has finished executing.",
			},
		),
		JobsSucceededTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "succeeded_total",
				Help:      "Total number of jobs that completed successfully.",
			},
		),
		JobsFailedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "failed_total",
				Help:      "Total number of jobs that ended in a failure.",
			},
		),
		WorkerPoolUtilization: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "worker_pool_utilization_ratio",
				Help:      "Fraction of the worker pool currently busy, 0 to 1.",
			},
		),
		WorkerPoolSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "worker_pool_size",
				Help:      "Configured size of the worker pool.",
			},
		),
		WorkersBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "workers_busy",
				Help:      "Number of workers currently executing a job.",
			},
		),
		SchedulerTickDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "scheduler_tick_duration_seconds",
				Help:      "Time taken to evaluate and fire due schedules on one tick.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
		),
		RateLimitedRequests: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "api",
				Name:      "rate_limited_requests_total",
				Help:      "Total number of API requests rejected by the rate limiter.",
			},
		),
	}
}

// SetQueueDepth records the current depth of one priority's queue.
func (m *Metrics) SetQueueDepth(priority string, depth int) {
	m.QueueDepth.WithLabelValues(priority).Set(float64(depth))
}

// RecordJobOutcome records a job finishing, incrementing the processed
// counter and the succeeded or failed counter.
func (m *Metrics) RecordJobOutcome(succeeded bool) {
	m.JobsProcessedTotal.Inc()
	if succeeded {
		m.JobsSucceededTotal.Inc()
	} else {
		m.JobsFailedTotal.Inc()
	}
}

// SetWorkerPoolStats records the worker pool's current size, busy count,
// and utilization ratio.
func (m *Metrics) SetWorkerPoolStats(size, busy int) {
	m.WorkerPoolSize.Set(float64(size))
	m.WorkersBusy.Set(float64(busy))
	if size > 0 {
		m.WorkerPoolUtilization.Set(float64(busy) / float64(size))
	} else {
		m.WorkerPoolUtilization.Set(0)
	}
}

// ObserveSchedulerTick records how long one scheduler tick took to evaluate.
func (m *Metrics) ObserveSchedulerTick(seconds float64) {
	m.SchedulerTickDuration.Observe(seconds)
}

// IncrementRateLimited records an API request rejected by the rate limiter.
func (m *Metrics) IncrementRateLimited() {
	m.RateLimitedRequests.Inc()
}
