// Package types defines the domain model for the Active-Guardian trip
// monitor: the per-trip monitoring record, its embedded sub-entities
// (checks, alerts, delta plans, notifications), the closed enums governing
// their lifecycles, and the typed error taxonomy shared by every layer.
package types

import (
	"time"
)

// ItineraryItem is one ordered stop in a trip itinerary.
type ItineraryItem struct {
	Location    string  `json:"location" validate:"required"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	Activity    string  `json:"activity,omitempty"`
	Time        string  `json:"time,omitempty"` // wall-clock "HH:MM"
	DurationMin int     `json:"duration_min,omitempty"`
	Date        string  `json:"date,omitempty"` // "2006-01-02"
}

// Itinerary is the ordered sequence of stops for a trip. Stored as one JSONB
// document; replaced wholesale when a delta plan is accepted.
type Itinerary []ItineraryItem

// CheckHistory is the append-only sequence of completed monitoring checks.
type CheckHistory []MonitoringCheck

// AlertList holds ActiveAlert entries (either the active set or history).
type AlertList []ActiveAlert

// DeltaPlanList is the ordered sequence of delta-plan proposals.
type DeltaPlanList []DeltaPlan

// NotificationLog is the append-only sequence of gated notifications.
type NotificationLog []NotificationRecord

// TripWindow is the inclusive start/end date range of a trip.
// Invariant: End is never before Start.
type TripWindow struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
}

// NotificationPreferences gates outbound notifications per trip.
// AlertThreshold is the minimum event severity that triggers a notification.
type NotificationPreferences struct {
	Push           bool          `json:"push"`
	Email          bool          `json:"email"`
	SMS            bool          `json:"sms"`
	AlertThreshold AlertSeverity `json:"alert_threshold"`
}

// EnabledChannels returns the channels switched on in the preferences, in a
// stable order.
func (p NotificationPreferences) EnabledChannels() []ChannelType {
	var channels []ChannelType
	if p.Push {
		channels = append(channels, ChannelPush)
	}
	if p.Email {
		channels = append(channels, ChannelEmail)
	}
	if p.SMS {
		channels = append(channels, ChannelSMS)
	}
	return channels
}

// MonitoringCheck is the immutable record of one completed condition check.
// Appended to TripMonitoringRecord.MonitoringHistory; never mutated.
type MonitoringCheck struct {
	ID           string      `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	CheckType    CheckType   `json:"check_type"`
	Status       CheckStatus `json:"status"`
	WeatherScore int         `json:"weather_score"` // 0-100
	AlertsFound  int         `json:"alerts_found"`
	Details      string      `json:"details,omitempty"`
}

// ActiveAlert is a detected risk affecting the trip. Alerts live in
// ActiveAlerts until acknowledged, then move (atomically, with the response
// recorded) to AlertHistory.
//
// Deduplication identity is the (Title, AffectedLocation) pair: a newly
// detected alert matching an existing active alert is dropped, not
// duplicated.
type ActiveAlert struct {
	ID                string         `json:"id"`
	Category          AlertCategory  `json:"category"`
	Severity          AlertSeverity  `json:"severity"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	AffectedLocation  string         `json:"affected_location"`
	AffectedDate      *time.Time     `json:"affected_date,omitempty"`
	SourceURL         string         `json:"source_url,omitempty"`
	ExpiresAt         *time.Time     `json:"expires_at,omitempty"`
	DetectedAt        time.Time      `json:"detected_at"`
	IsAcknowledged    bool           `json:"is_acknowledged"`
	UserResponse      *AlertResponse `json:"user_response,omitempty"`
	TravelImpact      string         `json:"travel_impact,omitempty"`
	RecommendedAction string         `json:"recommended_action,omitempty"`
}

// SameIncident reports whether two alerts describe the same incident under
// the dedup identity rule.
func (a ActiveAlert) SameIncident(other ActiveAlert) bool {
	return a.Title == other.Title && a.AffectedLocation == other.AffectedLocation
}

// DeltaPlan is a proposed replacement itinerary generated in response to
// detected risk. At most one plan per trip is "current" (awaiting a user
// decision) at any time.
type DeltaPlan struct {
	ID                string          `json:"id"`
	GeneratedAt       time.Time       `json:"generated_at"`
	Reason            string          `json:"reason"`
	TriggeringAlertID string          `json:"triggering_alert_id,omitempty"`
	OriginalItems     []ItineraryItem `json:"original_items"`
	SuggestedItems    []ItineraryItem `json:"suggested_items"`
	AffectedDates     []string        `json:"affected_dates,omitempty"`
	ImpactSummary     string          `json:"impact_summary,omitempty"`
	AIExplanation     string          `json:"ai_explanation,omitempty"`

	// Decision outcome. UserAccepted is nil until the user responds.
	UserAccepted *bool      `json:"user_accepted,omitempty"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
}

// Decided reports whether the user has accepted or rejected the plan.
func (p DeltaPlan) Decided() bool { return p.UserAccepted != nil }

// NotificationRecord is one gated outbound notification appended to the trip
// record before being handed to the dispatcher. Delivery outcome is the
// dispatcher's concern, not tracked here.
type NotificationRecord struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Severity  AlertSeverity `json:"severity"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Channels  []ChannelType `json:"channels"`
}

// TripMonitoringRecord is the single shared mutable document per trip under
// guardianship. Created by the trip-acceptance flow in NOT_MONITORING;
// mutated only by the worker loop and the monitoring façade. The record owns
// all embedded sub-entities; none are independently addressable.
type TripMonitoringRecord struct {
	ID        string     `json:"id" db:"id"`
	Itinerary Itinerary  `json:"itinerary" db:"itinerary"`
	Window    TripWindow `json:"window" db:"-"`

	MonitoringStatus    MonitoringStatus `json:"monitoring_status" db:"monitoring_status"`
	MonitoringInterval  time.Duration    `json:"monitoring_interval" db:"monitoring_interval"`
	NextScheduledCheck  *time.Time       `json:"next_scheduled_check,omitempty" db:"next_scheduled_check"`
	LastMonitoringCheck *time.Time       `json:"last_monitoring_check,omitempty" db:"last_monitoring_check"`
	MonitoringStartedAt *time.Time       `json:"monitoring_started_at,omitempty" db:"monitoring_started_at"`
	MonitoringEndedAt   *time.Time       `json:"monitoring_ended_at,omitempty" db:"monitoring_ended_at"`

	MonitoringHistory  CheckHistory    `json:"monitoring_history" db:"monitoring_history"`
	ActiveAlerts       AlertList       `json:"active_alerts" db:"active_alerts"`
	AlertHistory       AlertList       `json:"alert_history" db:"alert_history"`
	DeltaPlans         DeltaPlanList   `json:"delta_plans" db:"delta_plans"`
	CurrentDeltaPlanID string          `json:"current_delta_plan_id,omitempty" db:"current_delta_plan_id"`
	Notifications      NotificationLog `json:"notifications" db:"notifications"`

	NotificationPreferences NotificationPreferences `json:"notification_preferences" db:"notification_preferences"`

	// Counters are monotonically increasing and updated alongside the
	// events they count.
	TotalAlertsDetected      int `json:"total_alerts_detected" db:"total_alerts_detected"`
	TotalDeltaPlansGenerated int `json:"total_delta_plans_generated" db:"total_delta_plans_generated"`
	MonitoringChecksCount    int `json:"monitoring_checks_count" db:"monitoring_checks_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UnacknowledgedAlerts returns the active alerts awaiting acknowledgement.
// Active alerts are unacknowledged by definition; this defends against
// records written by older code paths.
func (t *TripMonitoringRecord) UnacknowledgedAlerts() []ActiveAlert {
	var out []ActiveAlert
	for _, a := range t.ActiveAlerts {
		if !a.IsAcknowledged {
			out = append(out, a)
		}
	}
	return out
}

// FindActiveAlert returns a pointer to the active alert with the given ID,
// or nil if it is not in the active set.
func (t *TripMonitoringRecord) FindActiveAlert(id string) *ActiveAlert {
	for i := range t.ActiveAlerts {
		if t.ActiveAlerts[i].ID == id {
			return &t.ActiveAlerts[i]
		}
	}
	return nil
}

// FindDeltaPlan returns a pointer to the delta plan with the given ID, or
// nil if no such plan exists.
func (t *TripMonitoringRecord) FindDeltaPlan(id string) *DeltaPlan {
	for i := range t.DeltaPlans {
		if t.DeltaPlans[i].ID == id {
			return &t.DeltaPlans[i]
		}
	}
	return nil
}

// CurrentDeltaPlan returns the plan awaiting a user decision, or nil.
func (t *TripMonitoringRecord) CurrentDeltaPlan() *DeltaPlan {
	if t.CurrentDeltaPlanID == "" {
		return nil
	}
	return t.FindDeltaPlan(t.CurrentDeltaPlanID)
}

// HighestActiveSeverity returns the worst severity among unacknowledged
// alerts, or SeverityInfo when none are active.
func (t *TripMonitoringRecord) HighestActiveSeverity() AlertSeverity {
	worst := SeverityInfo
	for _, a := range t.ActiveAlerts {
		if !a.IsAcknowledged {
			worst = worst.Worst(a.Severity)
		}
	}
	return worst
}

// OverallHealth derives the status-view health indicator from the
// unacknowledged alert severities: critical/high -> critical, medium/low ->
// warning, otherwise good.
func (t *TripMonitoringRecord) OverallHealth() OverallHealth {
	worst := t.HighestActiveSeverity()
	switch {
	case len(t.UnacknowledgedAlerts()) == 0:
		return HealthGood
	case worst.AtLeast(SeverityHigh):
		return HealthCritical
	case worst.AtLeast(SeverityLow):
		return HealthWarning
	default:
		return HealthGood
	}
}

// MonitoringStatusInfo is the façade's status-query DTO.
type MonitoringStatusInfo struct {
	TripID              string           `json:"trip_id"`
	Status              MonitoringStatus `json:"status"`
	OverallHealth       OverallHealth    `json:"overall_health"`
	ActiveAlertCount    int              `json:"active_alert_count"`
	LastMonitoringCheck *time.Time       `json:"last_monitoring_check,omitempty"`
	NextScheduledCheck  *time.Time       `json:"next_scheduled_check,omitempty"`
	ChecksCount         int              `json:"checks_count"`
	HasPendingDeltaPlan bool             `json:"has_pending_delta_plan"`
}
