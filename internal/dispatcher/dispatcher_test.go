package dispatcher_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawljobs/internal/dispatcher"
	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/lifecycle"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/queue"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
)

type dispStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newDispStore() *dispStore { return &dispStore{jobs: make(map[string]*domain.Job)} }

func (s *dispStore) put(job *domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
}

func (s *dispStore) LoadByID(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, platerrors.New(platerrors.KindNotFound, "job not found: "+id)
	}
	cp := *job
	return &cp, nil
}

func (s *dispStore) UpdateWithOptimisticCheck(_ context.Context, job *domain.Job, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *dispStore) Create(_ context.Context, job *domain.Job) error {
	s.put(job)
	return nil
}

// dispQueue hands out a single entry once, then reports the queue empty, so
// the dispatcher's own dequeue loop drives exactly one job through Submit.
type dispQueue struct {
	mu      sync.Mutex
	pending *queue.Entry
}

func (q *dispQueue) enqueueOnce(entry queue.Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = &entry
}

func (q *dispQueue) Dequeue(context.Context, ...domain.Priority) (*queue.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		return nil, nil
	}
	entry := q.pending
	q.pending = nil
	return entry, nil
}

func (q *dispQueue) Enqueue(context.Context, queue.Entry) (int, error) { return 1, nil }
func (q *dispQueue) Remove(context.Context, string) error              { return nil }

type dispEphemeral struct{}

func (dispEphemeral) SetStatus(context.Context, *domain.Job) error           { return nil }
func (dispEphemeral) SetProgress(context.Context, *domain.Job) error         { return nil }
func (dispEphemeral) PublishJobEvent(context.Context, string, *domain.Job) error {
	return nil
}

// blockingExecutor blocks until the cooperative cancel signal closes, so
// CancelJob's effect on an in-flight job can be observed deterministically.
type blockingExecutor struct {
	started chan struct{}
	once    sync.Once
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{started: make(chan struct{})}
}

func (e *blockingExecutor) Execute(ctx context.Context, _ *domain.Job, _ dispatcher.ProgressFunc, cancel dispatcher.CancelSignal) (dispatcher.Result, error) {
	e.once.Do(func() { close(e.started) })
	select {
	case <-cancel:
		return dispatcher.Result{}, nil
	case <-ctx.Done():
		return dispatcher.Result{}, ctx.Err()
	}
}

func newTestDispatcher(t *testing.T, exec dispatcher.CrawlExecutor) (*dispatcher.Dispatcher, *dispStore, *dispQueue) {
	t.Helper()
	cfg := testConfig(1)
	cfg.DequeueInterval = 5 * time.Millisecond

	st := newDispStore()
	qm := &dispQueue{}
	ctrl := lifecycle.New(st, qm, dispEphemeral{}, nil)

	d, err := dispatcher.New(cfg, qm, st, ctrl, exec, logger.NewNoOp())
	require.NoError(t, err)
	return d, st, qm
}

func TestDispatcher_CancelJob_SignalsRunningExecutor(t *testing.T) {
	t.Parallel()

	exec := newBlockingExecutor()
	d, st, qm := newTestDispatcher(t, exec)

	job := &domain.Job{ID: "job-1", UserID: "user-1", Status: domain.StatusQueued, MaxRetries: 1}
	st.put(job)

	ctx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	runDone := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(runDone)
	}()

	qm.enqueueOnce(queue.Entry{JobID: job.ID})

	select {
	case <-exec.started:
	case <-time.After(time.Second):
		t.Fatal("executor never started")
	}

	d.CancelJob(job.ID)

	require.Eventually(t, func() bool {
		return d.Stats().JobsProcessed == 1
	}, 2*time.Second, 5*time.Millisecond, "CancelJob must let the in-flight handler return")

	cancelRun()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcher_CancelJob_NoOpWhenJobNotRunning(t *testing.T) {
	t.Parallel()
	d, _, _ := newTestDispatcher(t, dispatcher.NewFakeExecutor())
	assert.NotPanics(t, func() { d.CancelJob("not-running") })
}
