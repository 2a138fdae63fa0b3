package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/ephemeral"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/jonesrussell/crawljobs/internal/notify"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu            sync.Mutex
	created       []*domain.Notification
	delivered     []string
	failed        []string
	storedPrefs   map[string]domain.NotificationPreferences
}

func newFakeStore() *fakeStore {
	return &fakeStore{storedPrefs: make(map[string]domain.NotificationPreferences)}
}

func (s *fakeStore) Create(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, n)
	return nil
}

func (s *fakeStore) MarkDelivered(_ context.Context, id string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, id)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	return nil
}

func (s *fakeStore) GetPreferences(_ context.Context, userID string) (domain.NotificationPreferences, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, ok := s.storedPrefs[userID]
	return prefs, ok, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

type fakeEphemeral struct {
	mu          sync.Mutex
	pushed      []*domain.Notification
	cachedPrefs map[string]domain.NotificationPreferences
}

func newFakeEphemeral() *fakeEphemeral {
	return &fakeEphemeral{cachedPrefs: make(map[string]domain.NotificationPreferences)}
}

func (e *fakeEphemeral) GetPreferences(_ context.Context, userID string) (domain.NotificationPreferences, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prefs, ok := e.cachedPrefs[userID]
	return prefs, ok, nil
}

func (e *fakeEphemeral) SetPreferences(_ context.Context, prefs domain.NotificationPreferences) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cachedPrefs[prefs.UserID] = prefs
	return nil
}

func (e *fakeEphemeral) PushUserNotification(_ context.Context, n *domain.Notification) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pushed = append(e.pushed, n)
	return nil
}

func (e *fakeEphemeral) SubscribePattern(_ context.Context, _ ...string) *redis.PubSub {
	return nil
}

func (e *fakeEphemeral) pushedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pushed)
}

func TestRouter_Handle_StartedEvent_DefaultPreferencesAllow(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eph := newFakeEphemeral()
	router := notify.New(store, eph, nil, logger.NewNoOp())

	job := &domain.Job{ID: "j1", UserID: "u1", Name: "keyword crawl", Status: domain.StatusRunning}
	err := router.Handle(ctx, ephemeral.JobEvent{Event: "started", Job: job})
	require.NoError(t, err)

	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, eph.pushedCount())
}

func TestRouter_Handle_ProgressEvent_SuppressedUntilMilestone(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.storedPrefs["u1"] = domain.NotificationPreferences{UserID: "u1", NotifyOnProgress: true}
	eph := newFakeEphemeral()
	router := notify.New(store, eph, nil, logger.NewNoOp())

	job := &domain.Job{ID: "j2", UserID: "u1", Name: "trending crawl", Status: domain.StatusRunning, Current: 10, Total: 100}
	require.NoError(t, router.Handle(ctx, ephemeral.JobEvent{Event: "progress", Job: job}))
	assert.Equal(t, 0, store.count(), "10%% should not cross a milestone")

	job.Current = 30
	require.NoError(t, router.Handle(ctx, ephemeral.JobEvent{Event: "progress", Job: job}))
	assert.Equal(t, 1, store.count(), "30%% should cross the 25%% milestone")

	job.Current = 40
	require.NoError(t, router.Handle(ctx, ephemeral.JobEvent{Event: "progress", Job: job}))
	assert.Equal(t, 1, store.count(), "still below 50%%, no second notification")
}

func TestRouter_Handle_FailedEvent_RespectsDisabledPreference(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.storedPrefs["u1"] = domain.NotificationPreferences{UserID: "u1", NotifyOnFailed: false}
	eph := newFakeEphemeral()
	router := notify.New(store, eph, nil, logger.NewNoOp())

	msg := "boom"
	job := &domain.Job{ID: "j3", UserID: "u1", Name: "comments crawl", Status: domain.StatusFailed, ErrorMessage: &msg}
	require.NoError(t, router.Handle(ctx, ephemeral.JobEvent{Event: "failed", Job: job}))

	assert.Equal(t, 0, store.count())
	assert.Equal(t, 0, eph.pushedCount())
}

func TestRouter_Handle_FailedEvent_EmailAlwaysSentRegardlessOfEmailEnabled(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.storedPrefs["u1"] = domain.NotificationPreferences{UserID: "u1", NotifyOnFailed: true, EmailEnabled: false}
	eph := newFakeEphemeral()
	router := notify.New(store, eph, nil, logger.NewNoOp())

	msg := "boom"
	job := &domain.Job{ID: "j5", UserID: "u1", Name: "comments crawl", Status: domain.StatusFailed, ErrorMessage: &msg}
	require.NoError(t, router.Handle(ctx, ephemeral.JobEvent{Event: "failed", Job: job}))

	require.Equal(t, 2, store.count(), "failure notifications go to both dashboard and email even with email_enabled=false")
	methods := make(map[domain.DeliveryMethod]bool)
	for _, n := range store.created {
		methods[n.DeliveryMethod] = true
	}
	assert.True(t, methods[domain.DeliveryDashboard])
	assert.True(t, methods[domain.DeliveryEmail])
}

func TestRouter_Handle_RetryingFailedEvent_NotSurfacedAsFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	eph := newFakeEphemeral()
	router := notify.New(store, eph, nil, logger.NewNoOp())

	job := &domain.Job{ID: "j4", UserID: "u1", Name: "keyword crawl", Status: domain.StatusRetrying}
	require.NoError(t, router.Handle(ctx, ephemeral.JobEvent{Event: "failed", Job: job}))

	assert.Equal(t, 0, store.count())
}
