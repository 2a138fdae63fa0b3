package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestMetrics_RecordJobOutcome(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	m.RecordJobOutcome(true)
	m.RecordJobOutcome(false)

	assert.InDelta(t, 2, counterValue(t, m.JobsProcessedTotal), 0)
	assert.InDelta(t, 1, counterValue(t, m.JobsSucceededTotal), 0)
	assert.InDelta(t, 1, counterValue(t, m.JobsFailedTotal), 0)
}

func TestMetrics_SetWorkerPoolStats(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	m.SetWorkerPoolStats(4, 3)

	assert.InDelta(t, 4, gaugeValue(t, m.WorkerPoolSize), 0)
	assert.InDelta(t, 3, gaugeValue(t, m.WorkersBusy), 0)
	assert.InDelta(t, 0.75, gaugeValue(t, m.WorkerPoolUtilization), 0.0001)
}

func TestMetrics_SetWorkerPoolStats_EmptyPool(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	m.SetWorkerPoolStats(0, 0)

	assert.InDelta(t, 0, gaugeValue(t, m.WorkerPoolUtilization), 0.0001)
}

func TestPoller_TicksOnStart(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	poolCalls := make(chan struct{}, 1)
	poller := metrics.NewPoller(m, 5*time.Millisecond, func() metrics.PoolStats {
		select {
		case poolCalls <- struct{}{}:
		default:
		}
		return metrics.PoolStats{Size: 2, Busy: 1, Processed: 5, Succeeded: 4, Failed: 1}
	}, func(_ context.Context) (map[string]int, error) {
		return map[string]int{"urgent": 3}, nil
	}, logger.NewNoOp())

	ctx, cancel := context.WithCancel(context.Background())
	poller.Start(ctx)

	select {
	case <-poolCalls:
	case <-time.After(time.Second):
		t.Fatal("poller did not tick")
	}

	cancel()
	poller.Stop()

	assert.InDelta(t, 5, counterValue(t, m.JobsProcessedTotal), 0)
	assert.InDelta(t, 4, counterValue(t, m.JobsSucceededTotal), 0)
	assert.InDelta(t, 1, counterValue(t, m.JobsFailedTotal), 0)
}
