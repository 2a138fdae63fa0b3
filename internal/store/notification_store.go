package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/crawljobs/internal/domain"
	platerrors "github.com/jonesrussell/crawljobs/internal/platform/errors"
)

const notificationColumns = `id, job_id, user_id,
	type, title, message, severity,
	delivery_method, recipient,
	sent, sent_at, delivery_status, error_message,
	read, read_at,
	created_at`

// NotificationStore is the State Store's Postgres-backed notification and
// notification-preference repository.
type NotificationStore struct {
	db *sqlx.DB
}

// NewNotificationStore constructs a NotificationStore over an open connection pool.
func NewNotificationStore(db *sqlx.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Create persists a notification delivery record.
func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (
			id, job_id, user_id, type, title, message, severity,
			delivery_method, recipient, sent, sent_at, delivery_status, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	err := s.db.QueryRowContext(
		ctx, query,
		n.ID, n.JobID, n.UserID, n.Type, n.Title, n.Message, n.Severity,
		n.DeliveryMethod, n.Recipient, n.Sent, n.SentAt, n.DeliveryStatus, n.ErrorMessage,
	).Scan(&n.CreatedAt)
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "create notification")
	}
	return nil
}

// MarkDelivered flips a notification's sent/delivery_status fields after its
// sink succeeds.
func (s *NotificationStore) MarkDelivered(ctx context.Context, id string, sentAt time.Time) error {
	query := `UPDATE notifications SET sent = true, sent_at = $1, delivery_status = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, sentAt, domain.DeliveryDelivered, id); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "mark notification delivered")
	}
	return nil
}

// MarkFailed records a sink failure on the Notification row. Per the
// no-inline-retry policy, this is a terminal status: the router does not
// resend.
func (s *NotificationStore) MarkFailed(ctx context.Context, id string, sinkErr error) error {
	msg := sinkErr.Error()
	query := `UPDATE notifications SET delivery_status = $1, error_message = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, domain.DeliveryFailed, msg, id); err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "mark notification failed")
	}
	return nil
}

// ListForUser returns a user's notifications newest first, for the dashboard
// history view that backs the in-memory Ephemeral Store cache.
func (s *NotificationStore) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var notifications []*domain.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := s.db.SelectContext(ctx, &notifications, query, userID, limit); err != nil {
		return nil, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "list notifications")
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	return notifications, nil
}

// MarkRead flips a notification's read flag.
func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE notifications SET read = true, read_at = NOW() WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "mark notification read")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "mark notification read rows affected")
	}
	if n == 0 {
		return platerrors.New(platerrors.KindNotFound, fmt.Sprintf("notification not found: %s", id))
	}
	return nil
}

// GetPreferences retrieves a user's stored notification preferences.
// Returns ok=false if the user has never saved preferences.
func (s *NotificationStore) GetPreferences(ctx context.Context, userID string) (domain.NotificationPreferences, bool, error) {
	var prefs domain.NotificationPreferences
	query := `SELECT user_id, notify_on_started, notify_on_completed, notify_on_failed, notify_on_progress,
		email_enabled, sms_enabled, phone_number FROM notification_preferences WHERE user_id = $1`
	err := s.db.GetContext(ctx, &prefs, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotificationPreferences{}, false, nil
	}
	if err != nil {
		return domain.NotificationPreferences{}, false, platerrors.Wrap(platerrors.KindStoreUnavailable, err, "load notification preferences")
	}
	return prefs, true, nil
}

// UpsertPreferences creates or replaces a user's notification preferences.
func (s *NotificationStore) UpsertPreferences(ctx context.Context, prefs domain.NotificationPreferences) error {
	query := `INSERT INTO notification_preferences (
			user_id, notify_on_started, notify_on_completed, notify_on_failed, notify_on_progress,
			email_enabled, sms_enabled, phone_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			notify_on_started = EXCLUDED.notify_on_started,
			notify_on_completed = EXCLUDED.notify_on_completed,
			notify_on_failed = EXCLUDED.notify_on_failed,
			notify_on_progress = EXCLUDED.notify_on_progress,
			email_enabled = EXCLUDED.email_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			phone_number = EXCLUDED.phone_number`

	_, err := s.db.ExecContext(
		ctx, query,
		prefs.UserID, prefs.NotifyOnStarted, prefs.NotifyOnCompleted, prefs.NotifyOnFailed, prefs.NotifyOnProgress,
		prefs.EmailEnabled, prefs.SMSEnabled, prefs.PhoneNumber,
	)
	if err != nil {
		return platerrors.Wrap(platerrors.KindStoreUnavailable, err, "upsert notification preferences")
	}
	return nil
}
