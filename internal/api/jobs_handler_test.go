package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/crawljobs/internal/api"
	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/lifecycle"
	"github.com/jonesrussell/crawljobs/internal/monitor"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
	"github.com/jonesrussell/crawljobs/internal/queue"
)

// fakeStore is an in-memory lifecycle.Store / api.JobStore used only by this test.
type fakeStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*domain.Job)}
}

func (s *fakeStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeStore) LoadByID(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, platerrors.New(platerrors.KindNotFound, "job not found: "+id)
	}
	cp := *job
	return &cp, nil
}

func (s *fakeStore) UpdateWithOptimisticCheck(_ context.Context, job *domain.Job, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

// fakeQueueManager is an in-memory lifecycle.QueueManager used only by this test.
type fakeQueueManager struct {
	mu      sync.Mutex
	entries []queue.Entry
}

func (q *fakeQueueManager) Enqueue(_ context.Context, entry queue.Entry) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)
	return len(q.entries), nil
}

func (q *fakeQueueManager) Remove(_ context.Context, _ string) error { return nil }

// fakeEphemeral is a no-op lifecycle.Ephemeral/monitor.Ephemeral used only by this test.
type fakeEphemeral struct{}

func (fakeEphemeral) SetStatus(context.Context, *domain.Job) error   { return nil }
func (fakeEphemeral) SetProgress(context.Context, *domain.Job) error { return nil }
func (fakeEphemeral) PublishJobEvent(context.Context, string, *domain.Job) error { return nil }
func (fakeEphemeral) ActiveJobSummaries(context.Context, string) (map[string]json.RawMessage, error) {
	return nil, nil
}
func (fakeEphemeral) GetProgress(context.Context, string) (*domain.Job, error) { return nil, nil }
func (fakeEphemeral) RecentMetrics(context.Context, string) ([]domain.JobMetricSample, error) {
	return nil, nil
}
func (fakeEphemeral) DashboardStats(context.Context, string, any) (bool, error) { return false, nil }
func (fakeEphemeral) SetDashboardStats(context.Context, string, any) error      { return nil }

// fakeCancelSignaler is an in-memory api.CancelSignaler used only by this test.
type fakeCancelSignaler struct {
	mu        sync.Mutex
	cancelled []string
}

func (f *fakeCancelSignaler) CancelJob(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, jobID)
}

func newTestHandler(t *testing.T) (*api.JobsHandler, *fakeStore) {
	t.Helper()
	handler, st, _ := newTestHandlerWithSignaler(t)
	return handler, st
}

func newTestHandlerWithSignaler(t *testing.T) (*api.JobsHandler, *fakeStore, *fakeCancelSignaler) {
	t.Helper()
	st := newFakeStore()
	ctrl := lifecycle.New(st, &fakeQueueManager{}, fakeEphemeral{}, nil)
	view := monitor.New(nil, nil, nil, fakeEphemeral{}, nil)
	disp := &fakeCancelSignaler{}
	return api.NewJobsHandler(st, ctrl, view, disp), st, disp
}

func TestJobsHandler_CreateJob(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	handler, _ := newTestHandler(t)
	router := gin.New()
	router.POST("/jobs", handler.CreateJob)

	body := `{"name":"crawl calgary","job_type":"keyword_crawl","parameters":{"keyword_id":"kw-1","limit":50}}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.UserIDHeader, "user-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp api.CreateJobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, 1, resp.EnqueueResult)
}

func TestJobsHandler_CreateJob_InvalidJobType(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	handler, _ := newTestHandler(t)
	router := gin.New()
	router.POST("/jobs", handler.CreateJob)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"name":"x","job_type":"not_a_kind"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobsHandler_CancelJob(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	handler, st, disp := newTestHandlerWithSignaler(t)
	job := &domain.Job{ID: "job-1", UserID: "user-1", Status: domain.StatusQueued, MaxRetries: 1}
	require.NoError(t, st.Create(context.Background(), job))

	router := gin.New()
	router.POST("/jobs/:id/cancel", handler.CancelJob)

	req := httptest.NewRequest(http.MethodPost, "/jobs/job-1/cancel", http.NoBody)
	req.Header.Set(api.UserIDHeader, "user-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"job-1"}, disp.cancelled)
}

func TestJobsHandler_CancelJob_WrongOwnerNotFound(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	handler, st := newTestHandler(t)
	job := &domain.Job{ID: "job-1", UserID: "user-1", Status: domain.StatusQueued}
	require.NoError(t, st.Create(context.Background(), job))

	router := gin.New()
	router.POST("/jobs/:id/cancel", handler.CancelJob)

	req := httptest.NewRequest(http.MethodPost, "/jobs/job-1/cancel", http.NoBody)
	req.Header.Set(api.UserIDHeader, "someone-else")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobsHandler_GetJobStatus(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	handler, st := newTestHandler(t)
	job := &domain.Job{ID: "job-1", UserID: "user-1", Status: domain.StatusRunning, Current: 5, Total: 10}
	require.NoError(t, st.Create(context.Background(), job))

	router := gin.New()
	router.GET("/jobs/:id/status", handler.GetJobStatus)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-1/status", http.NoBody)
	req.Header.Set(api.UserIDHeader, "user-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.JobStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusRunning, resp.DBStatus)
	assert.InDelta(t, 50.0, resp.Progress, 0.01)
}
