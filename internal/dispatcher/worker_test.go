package dispatcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawljobs/internal/dispatcher"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/queue"
)

func blockingHandler(release <-chan struct{}) dispatcher.JobHandler {
	return func(ctx context.Context, entry queue.Entry) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
}

func TestWorker_TryAcquire_ClaimsExactlyOnce(t *testing.T) {
	t.Parallel()
	w := dispatcher.NewWorker(1, func(context.Context, queue.Entry) error { return nil }, time.Second, logger.NewNoOp())

	require.True(t, w.TryAcquire())
	assert.False(t, w.TryAcquire(), "a second claim on an already-busy worker must fail")
	assert.True(t, w.IsBusy())
}

func TestWorker_TryAcquire_ConcurrentCallersClaimAtMostOnce(t *testing.T) {
	t.Parallel()
	w := dispatcher.NewWorker(1, func(context.Context, queue.Entry) error { return nil }, time.Second, logger.NewNoOp())

	const attempts = 50
	var mu sync.Mutex
	wonBy := 0

	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if w.TryAcquire() {
				mu.Lock()
				wonBy++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wonBy, "exactly one concurrent TryAcquire call may succeed")
}

func TestWorker_Process_RequiresPriorAcquire(t *testing.T) {
	t.Parallel()
	w := dispatcher.NewWorker(1, func(context.Context, queue.Entry) error { return nil }, time.Second, logger.NewNoOp())

	err := w.Process(context.Background(), queue.Entry{JobID: "job-1"})
	require.Error(t, err, "Process must refuse to run without a prior TryAcquire")
}

func TestWorker_Process_ReturnsToIdleAfterCompletion(t *testing.T) {
	t.Parallel()
	w := dispatcher.NewWorker(1, func(context.Context, queue.Entry) error { return nil }, time.Second, logger.NewNoOp())

	require.True(t, w.TryAcquire())
	require.NoError(t, w.Process(context.Background(), queue.Entry{JobID: "job-1"}))

	assert.True(t, w.IsIdle())
	assert.True(t, w.TryAcquire(), "worker must be acquirable again once idle")
}

func TestWorker_Process_SurfacesHandlerError(t *testing.T) {
	t.Parallel()
	handlerErr := errors.New("boom")
	w := dispatcher.NewWorker(1, func(context.Context, queue.Entry) error { return handlerErr }, time.Second, logger.NewNoOp())

	require.True(t, w.TryAcquire())
	err := w.Process(context.Background(), queue.Entry{JobID: "job-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, handlerErr)
	assert.True(t, w.IsIdle(), "worker must return to idle even on handler failure")

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.JobsProcessed)
	assert.Equal(t, int64(1), stats.JobsFailed)
	assert.Equal(t, int64(0), stats.JobsSucceeded)
	require.Error(t, stats.LastError)
}
