// notify.go implements the notification gate: the decision of whether a
// non-passing check becomes an outbound notification, based on the trip's
// per-channel preferences and severity threshold. Delivery itself belongs
// to the external dispatcher; its failures are logged, never propagated.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tripguardian/internal/types"
)

// maxMessageDetailLines caps how many check detail lines feed the
// notification message body.
const maxMessageDetailLines = 3

// Dispatcher is the external notification fan-out. Delivery guarantees are
// its responsibility; the gate only hands over rendered messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, tripID string, notification types.NotificationRecord, channel types.ChannelType) error
}

// NotificationGate gates and dispatches notifications for non-passing
// checks.
type NotificationGate struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewNotificationGate creates a NotificationGate.
func NewNotificationGate(dispatcher Dispatcher, logger *slog.Logger) *NotificationGate {
	return &NotificationGate{dispatcher: dispatcher, logger: logger}
}

// MaybeNotify decides whether the check outcome warrants a notification.
//
// Rules, in order:
//   - passed checks never notify;
//   - the event severity (worst of weather- and alert-derived) must be at
//     or above the trip's alert threshold;
//   - at least one channel must be enabled — all channels disabled means
//     skip entirely, with no record created.
//
// When all gates pass, exactly one NotificationRecord is appended to the
// trip and handed to the dispatcher once per enabled channel.
func (g *NotificationGate) MaybeNotify(ctx context.Context, trip *types.TripMonitoringRecord, outcome CheckOutcome, now time.Time) *types.NotificationRecord {
	if outcome.Status == types.CheckPassed {
		return nil
	}

	prefs := trip.NotificationPreferences
	if !outcome.Severity.AtLeast(prefs.AlertThreshold) {
		g.logger.DebugContext(ctx, "notification below threshold, skipped",
			"trip_id", trip.ID,
			"severity", outcome.Severity,
			"threshold", prefs.AlertThreshold,
		)
		return nil
	}

	channels := prefs.EnabledChannels()
	if len(channels) == 0 {
		g.logger.DebugContext(ctx, "all notification channels disabled, skipped",
			"trip_id", trip.ID,
		)
		return nil
	}

	notification := types.NotificationRecord{
		ID:        uuid.New().String(),
		Timestamp: now,
		Severity:  outcome.Severity,
		Title:     notificationTitle(outcome),
		Message:   notificationMessage(outcome),
		Channels:  channels,
	}
	trip.Notifications = append(trip.Notifications, notification)

	for _, channel := range channels {
		if err := g.dispatcher.Dispatch(ctx, trip.ID, notification, channel); err != nil {
			// Delivery is the dispatcher's concern beyond logging.
			g.logger.ErrorContext(ctx, "notification dispatch failed",
				"trip_id", trip.ID,
				"notification_id", notification.ID,
				"channel", channel,
				"error", err,
			)
		}
	}

	g.logger.InfoContext(ctx, "notification dispatched",
		"trip_id", trip.ID,
		"notification_id", notification.ID,
		"severity", notification.Severity,
		"channels", len(channels),
	)

	return &trip.Notifications[len(trip.Notifications)-1]
}

// notificationTitle renders the headline from the outcome.
func notificationTitle(outcome CheckOutcome) string {
	if len(outcome.Alerts) > 0 {
		return fmt.Sprintf("Travel alert: %s", outcome.Alerts[0].Title)
	}
	return fmt.Sprintf("Trip conditions %s", outcome.Status)
}

// notificationMessage builds the body from the first few detail lines.
func notificationMessage(outcome CheckOutcome) string {
	lines := outcome.Details
	if len(lines) > maxMessageDetailLines {
		lines = lines[:maxMessageDetailLines]
	}
	if len(lines) == 0 {
		return fmt.Sprintf("A monitoring check reported status %s.", outcome.Status)
	}
	return strings.Join(lines, "\n")
}
