// Package notify implements the Notification Router: it consumes lifecycle
// events off the Ephemeral Store's pub/sub channels, filters them by user
// preference, and dispatches deliveries to per-channel sinks.
package notify

import (
	"context"

	"github.com/jonesrussell/crawljobs/internal/domain"
)

// NotificationSink delivers one Notification over a specific channel
// (dashboard, email, SMS, webhook). Production sinks live outside this
// module; only a logging fake ships here.
type NotificationSink interface {
	Send(ctx context.Context, n *domain.Notification) error
}
