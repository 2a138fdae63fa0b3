package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/ephemeral"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/redis/go-redis/v9"
)

// milestones are the progress percentages that trigger a milestone
// notification; all other progress events are suppressed.
var milestones = []int{25, 50, 75}

// Store is the State Store contract the router needs.
type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
	MarkDelivered(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, sinkErr error) error
	GetPreferences(ctx context.Context, userID string) (domain.NotificationPreferences, bool, error)
}

// Ephemeral is the Ephemeral Store contract the router needs.
type Ephemeral interface {
	GetPreferences(ctx context.Context, userID string) (domain.NotificationPreferences, bool, error)
	SetPreferences(ctx context.Context, prefs domain.NotificationPreferences) error
	PushUserNotification(ctx context.Context, n *domain.Notification) error
	SubscribePattern(ctx context.Context, patterns ...string) *redis.PubSub
}

// Router is the Notification Router: it consumes lifecycle events and
// dispatches filtered, per-channel deliveries.
type Router struct {
	store  Store
	eph    Ephemeral
	sinks  map[domain.DeliveryMethod]NotificationSink
	logger logger.Interface

	milestonesMu sync.Mutex
	crossed      map[string]map[int]bool // jobID -> milestone -> already sent
}

// New constructs a Router with one sink per delivery channel it will use.
// Dashboard delivery is always implicitly handled via eph.PushUserNotification
// regardless of what sinks map contains.
func New(store Store, eph Ephemeral, sinks map[domain.DeliveryMethod]NotificationSink, log logger.Interface) *Router {
	return &Router{
		store:   store,
		eph:     eph,
		sinks:   sinks,
		logger:  log,
		crossed: make(map[string]map[int]bool),
	}
}

// Run subscribes to every job's alert and progress channels and processes
// events until ctx is cancelled. Blocking; intended to run in its own
// goroutine from the composition root.
func (r *Router) Run(ctx context.Context) error {
	ps := r.eph.SubscribePattern(ctx, ephemeral.JobAlertsPattern(), ephemeral.JobProgressPattern())
	defer ps.Close()

	r.logger.Info("notification router started")
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("notification router stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handleMessage(ctx, msg)
		}
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *redis.Message) {
	var event ephemeral.JobEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		r.logger.Warn("notification router: malformed event payload", "error", err.Error())
		return
	}
	if event.Job == nil {
		return
	}
	if err := r.Handle(ctx, event); err != nil {
		r.logger.Error("notification router: handle event failed", "job_id", event.Job.ID, "error", err.Error())
	}
}

// Handle runs the full per-event pipeline: preference load, filtering,
// milestone suppression, per-channel delivery, and persistence.
func (r *Router) Handle(ctx context.Context, event ephemeral.JobEvent) error {
	job := event.Job
	notifType, ok := classify(event.Event, job)
	if !ok {
		return nil
	}

	if notifType == domain.NotificationProgressMilestone {
		milestone, crossed := r.crossedMilestone(job)
		if !crossed {
			return nil
		}
		event.Event = fmt.Sprintf("progress %d%%", milestone)
	}

	prefs, err := r.preferencesFor(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.Enabled(notifType) {
		return nil
	}

	title, message, severity := renderContent(notifType, job, event.Event)

	r.deliver(ctx, job, notifType, title, message, severity, domain.DeliveryDashboard, "")
	// Failure emails always go out once job_failed notifications are enabled
	// at all: unlike started/completed, a failure isn't gated on the
	// email_enabled toggle, since a user who wants to know about failures
	// wants to know regardless of their general email preference.
	if prefs.EmailEnabled || notifType == domain.NotificationFailed {
		r.deliver(ctx, job, notifType, title, message, severity, domain.DeliveryEmail, "")
	}
	if prefs.SMSEnabled && prefs.PhoneNumber != nil {
		r.deliver(ctx, job, notifType, title, message, severity, domain.DeliverySMS, *prefs.PhoneNumber)
	}
	return nil
}

func classify(eventType string, job *domain.Job) (domain.NotificationType, bool) {
	switch eventType {
	case "started":
		return domain.NotificationStarted, true
	case "completed":
		return domain.NotificationCompleted, true
	case "failed":
		if job.Status == domain.StatusFailed {
			return domain.NotificationFailed, true
		}
		return "", false
	case "progress":
		return domain.NotificationProgressMilestone, true
	default:
		return "", false
	}
}

// crossedMilestone reports whether job.Percentage() has just crossed a new
// milestone (25/50/75) that hasn't already fired for this job.
func (r *Router) crossedMilestone(job *domain.Job) (int, bool) {
	pct := job.Percentage()

	r.milestonesMu.Lock()
	defer r.milestonesMu.Unlock()

	seen, ok := r.crossed[job.ID]
	if !ok {
		seen = make(map[int]bool)
		r.crossed[job.ID] = seen
	}

	for _, m := range milestones {
		if pct >= float64(m) && !seen[m] {
			seen[m] = true
			if job.Status.Terminal() {
				delete(r.crossed, job.ID)
			}
			return m, true
		}
	}
	if job.Status.Terminal() {
		delete(r.crossed, job.ID)
	}
	return 0, false
}

func (r *Router) preferencesFor(ctx context.Context, userID string) (domain.NotificationPreferences, error) {
	if prefs, ok, err := r.eph.GetPreferences(ctx, userID); err != nil {
		return domain.NotificationPreferences{}, err
	} else if ok {
		return prefs, nil
	}

	prefs, ok, err := r.store.GetPreferences(ctx, userID)
	if err != nil {
		return domain.NotificationPreferences{}, err
	}
	if !ok {
		prefs = domain.DefaultNotificationPreferences(userID)
	}
	_ = r.eph.SetPreferences(ctx, prefs)
	return prefs, nil
}

func renderContent(t domain.NotificationType, job *domain.Job, detail string) (title, message string, severity domain.Severity) {
	switch t {
	case domain.NotificationStarted:
		return "Job started", fmt.Sprintf("%q started running.", job.Name), domain.SeverityInfo
	case domain.NotificationCompleted:
		return "Job completed", fmt.Sprintf("%q finished: %d saved, %d failed.", job.Name, job.ItemsSaved, job.ItemsFailed), domain.SeveritySuccess
	case domain.NotificationFailed:
		msg := "unknown error"
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		return "Job failed", fmt.Sprintf("%q failed: %s", job.Name, msg), domain.SeverityError
	case domain.NotificationProgressMilestone:
		return "Job progress", fmt.Sprintf("%q reached %s.", job.Name, detail), domain.SeverityInfo
	default:
		return "Job update", job.Name, domain.SeverityInfo
	}
}

// deliver pushes a dashboard-method notification to the live feed, inserts
// one Notification row with sent=false, then (if a sink is registered for method) hands
// delivery off to a goroutine that updates the row on completion. The row is
// fully written before the goroutine starts, so the two never race on it.
func (r *Router) deliver(ctx context.Context, job *domain.Job, t domain.NotificationType, title, message string, severity domain.Severity, method domain.DeliveryMethod, recipient string) {
	n := &domain.Notification{
		ID: uuid.New().String(), JobID: job.ID, UserID: job.UserID,
		Type: t, Title: title, Message: message, Severity: severity,
		DeliveryMethod: method, Recipient: recipient,
		DeliveryStatus: domain.DeliveryPending,
	}

	if method == domain.DeliveryDashboard {
		if err := r.eph.PushUserNotification(ctx, n); err != nil {
			r.logger.Warn("notification router: dashboard push failed", "job_id", job.ID, "error", err.Error())
		}
	}

	if err := r.store.Create(ctx, n); err != nil {
		r.logger.Warn("notification router: persist notification failed", "job_id", job.ID, "error", err.Error())
		return
	}

	if sink, ok := r.sinks[method]; ok {
		go r.sendAsync(context.WithoutCancel(ctx), sink, n)
	}
}

// sendAsync runs a sink out-of-band so a slow channel never blocks event
// consumption; failures are logged, not retried.
func (r *Router) sendAsync(ctx context.Context, sink NotificationSink, n *domain.Notification) {
	if err := sink.Send(ctx, n); err != nil {
		r.logger.Warn("notification router: sink delivery failed", "job_id", n.JobID, "channel", string(n.DeliveryMethod), "error", err.Error())
		if markErr := r.store.MarkFailed(ctx, n.ID, err); markErr != nil {
			r.logger.Warn("notification router: mark failed failed", "job_id", n.JobID, "error", markErr.Error())
		}
		return
	}
	if err := r.store.MarkDelivered(ctx, n.ID, time.Now()); err != nil {
		r.logger.Warn("notification router: mark delivered failed", "job_id", n.JobID, "error", err.Error())
	}
}
