package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *queue.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return queue.New(rdb)
}

func TestManager_EnqueueDequeue_FIFO(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Enqueue(ctx, queue.Entry{JobID: "a", Priority: domain.PriorityNormal, EnqueuedAt: time.Now()})
	require.NoError(t, err)
	_, err = m.Enqueue(ctx, queue.Entry{JobID: "b", Priority: domain.PriorityNormal, EnqueuedAt: time.Now()})
	require.NoError(t, err)

	first, err := m.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", first.JobID)

	second, err := m.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", second.JobID)
}

func TestManager_Dequeue_PriorityOrder(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, _ = m.Enqueue(ctx, queue.Entry{JobID: "low", Priority: domain.PriorityLow, EnqueuedAt: time.Now()})
	_, _ = m.Enqueue(ctx, queue.Entry{JobID: "normal", Priority: domain.PriorityNormal, EnqueuedAt: time.Now()})
	_, _ = m.Enqueue(ctx, queue.Entry{JobID: "urgent", Priority: domain.PriorityUrgent, EnqueuedAt: time.Now()})

	order := []string{}
	for i := 0; i < 3; i++ {
		e, err := m.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, e)
		order = append(order, e.JobID)
	}

	require.Equal(t, []string{"urgent", "normal", "low"}, order)
}

func TestManager_Dequeue_RotatesDelayedEntry(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	future := time.Now().Add(time.Hour)
	_, _ = m.Enqueue(ctx, queue.Entry{JobID: "delayed", Priority: domain.PriorityNormal, EnqueuedAt: time.Now(), ScheduledFor: &future})
	_, _ = m.Enqueue(ctx, queue.Entry{JobID: "ready", Priority: domain.PriorityNormal, EnqueuedAt: time.Now()})

	e, err := m.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "ready", e.JobID)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.PerPriority[domain.PriorityNormal])
}

func TestManager_RemoveAndPosition(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, _ = m.Enqueue(ctx, queue.Entry{JobID: "a", Priority: domain.PriorityHigh, EnqueuedAt: time.Now()})
	_, _ = m.Enqueue(ctx, queue.Entry{JobID: "b", Priority: domain.PriorityHigh, EnqueuedAt: time.Now()})

	pos, err := m.Position(ctx, "a", domain.PriorityHigh)
	require.NoError(t, err)
	require.Equal(t, 1, pos)

	require.NoError(t, m.Remove(ctx, "a"))

	pos, err = m.Position(ctx, "a", domain.PriorityHigh)
	require.NoError(t, err)
	require.Equal(t, -1, pos)
}

func TestManager_Stats_CumulativeCounters(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, _ = m.Enqueue(ctx, queue.Entry{JobID: "a", Priority: domain.PriorityNormal, EnqueuedAt: time.Now()})
	_, err := m.Dequeue(ctx)
	require.NoError(t, err)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Enqueued)
	require.Equal(t, int64(1), stats.Dequeued)
}
