package notify

import (
	"context"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/jonesrussell/crawljobs/internal/logger"
)

// LogSink is an illustrative NotificationSink that logs instead of
// delivering anywhere. Real email/SMS/webhook sinks are out of scope.
type LogSink struct {
	method logger.Interface
	kind   domain.DeliveryMethod
}

// NewLogSink constructs a LogSink for a given delivery method, logging via log.
func NewLogSink(kind domain.DeliveryMethod, log logger.Interface) *LogSink {
	return &LogSink{method: log, kind: kind}
}

// Send logs the notification as though it were delivered.
func (s *LogSink) Send(_ context.Context, n *domain.Notification) error {
	s.method.Info("notification delivered",
		"channel", string(s.kind), "job_id", n.JobID, "user_id", n.UserID,
		"type", string(n.Type), "title", n.Title)
	return nil
}
