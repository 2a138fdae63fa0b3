package dispatcher_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawljobs/internal/dispatcher"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/queue"
)

func testConfig(poolSize int) dispatcher.Config {
	cfg := dispatcher.DefaultConfig()
	cfg.PoolSize = poolSize
	cfg.DrainTimeout = 2 * time.Second
	cfg.JobTimeout = 2 * time.Second
	return cfg
}

func TestPool_Submit_BurstNeverDropsAJob(t *testing.T) {
	t.Parallel()

	var handled int32
	handler := func(_ context.Context, _ queue.Entry) error {
		atomic.AddInt32(&handled, 1)
		time.Sleep(5 * time.Millisecond)
		return nil
	}

	pool, err := dispatcher.NewPool(testConfig(3), handler, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, pool.Start())
	defer func() { _ = pool.Stop(context.Background()) }()

	const burst = 100
	var wg sync.WaitGroup
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := pool.Submit(context.Background(), queue.Entry{JobID: "job"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&handled) == burst
	}, 2*time.Second, 5*time.Millisecond, "every submitted entry must reach the handler exactly once, with none silently dropped")

	stats := pool.Stats()
	assert.Equal(t, int64(burst), stats.JobsProcessed)
	assert.Equal(t, int64(burst), stats.JobsSucceeded)
	assert.Equal(t, int64(0), stats.JobsFailed)
}

func TestPool_Submit_NeverExceedsPoolSizeConcurrently(t *testing.T) {
	t.Parallel()

	const poolSize = 2
	var inFlight, maxInFlight int32
	handler := func(ctx context.Context, _ queue.Entry) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}

	pool, err := dispatcher.NewPool(testConfig(poolSize), handler, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, pool.Start())
	defer func() { _ = pool.Stop(context.Background()) }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, pool.Submit(context.Background(), queue.Entry{JobID: "job"}))
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return pool.Stats().JobsProcessed == 10
	}, 2*time.Second, 5*time.Millisecond)

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxInFlight)), poolSize)
}

func TestPool_Submit_RejectsWhenNotRunning(t *testing.T) {
	t.Parallel()
	pool, err := dispatcher.NewPool(testConfig(1), func(context.Context, queue.Entry) error { return nil }, logger.NewNoOp())
	require.NoError(t, err)

	err = pool.Submit(context.Background(), queue.Entry{JobID: "job-1"})
	assert.Error(t, err, "Submit must reject entries before the pool is started")
}

func TestPool_Stop_DrainsInFlightWork(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	pool, err := dispatcher.NewPool(testConfig(1), blockingHandler(release), logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, pool.Start())

	require.NoError(t, pool.Submit(context.Background(), queue.Entry{JobID: "job-1"}))

	stopDone := make(chan struct{})
	go func() {
		_ = pool.Stop(context.Background())
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.Fatal("Stop returned before in-flight work finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after in-flight work finished")
	}
}
