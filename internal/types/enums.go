package types

import (
	"strings"
	"time"
)

// MonitoringStatus represents the lifecycle state of a trip under guardianship.
type MonitoringStatus string

const (
	// StatusNotMonitoring is the initial state after a trip is accepted but
	// before guardianship starts.
	StatusNotMonitoring MonitoringStatus = "NOT_MONITORING"
	// StatusActiveMonitoring means the trip is scheduled for periodic checks.
	StatusActiveMonitoring MonitoringStatus = "ACTIVE_MONITORING"
	// StatusAlertDetected means the most recent check found at least one
	// high or critical alert that is still unacknowledged.
	StatusAlertDetected MonitoringStatus = "ALERT_DETECTED"
	// StatusDeltaPlanGenerated means an alternative itinerary proposal is
	// awaiting a user decision.
	StatusDeltaPlanGenerated MonitoringStatus = "DELTA_PLAN_GENERATED"
	// StatusPaused suspends scheduling without ending guardianship.
	StatusPaused MonitoringStatus = "PAUSED"
	// StatusCompleted and StatusCancelled are terminal (absorbing) states.
	StatusCompleted MonitoringStatus = "COMPLETED"
	StatusCancelled MonitoringStatus = "CANCELLED"
)

// IsTerminal reports whether the status is absorbing: once entered, no
// further checks are scheduled and no transition leaves it.
func (s MonitoringStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether the trip is in any state eligible for monitoring
// checks (the guardianship states).
func (s MonitoringStatus) IsActive() bool {
	switch s {
	case StatusActiveMonitoring, StatusAlertDetected, StatusDeltaPlanGenerated:
		return true
	}
	return false
}

// CheckType identifies which condition checkers contributed to a MonitoringCheck.
type CheckType string

const (
	CheckTypeWeather CheckType = "weather"
	CheckTypeAlerts  CheckType = "alerts"
	CheckTypeFull    CheckType = "full"
)

// CheckStatus is the folded outcome of one monitoring check.
type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckWarning CheckStatus = "warning"
	CheckFailed  CheckStatus = "failed"
)

// Worst returns the more severe of two check statuses
// (failed > warning > passed).
func (s CheckStatus) Worst(other CheckStatus) CheckStatus {
	rank := map[CheckStatus]int{CheckPassed: 0, CheckWarning: 1, CheckFailed: 2}
	if rank[other] > rank[s] {
		return other
	}
	return s
}

// AlertCategory is the closed set of risk categories an ActiveAlert can carry.
type AlertCategory string

const (
	CategoryWeather             AlertCategory = "weather"
	CategoryProtest             AlertCategory = "protest"
	CategoryStrike              AlertCategory = "strike"
	CategoryNaturalDisaster     AlertCategory = "natural_disaster"
	CategoryLandslide           AlertCategory = "landslide"
	CategoryFlood               AlertCategory = "flood"
	CategoryRoadClosure         AlertCategory = "road_closure"
	CategoryTransportDisruption AlertCategory = "transport_disruption"
	CategorySecurityIncident    AlertCategory = "security_incident"
	CategoryHealthEmergency     AlertCategory = "health_emergency"
	CategoryWildlifeDanger      AlertCategory = "wildlife_danger"
	CategoryGeneral             AlertCategory = "general"
)

// AlertSeverity orders alert significance: info < low < medium < high < critical.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// severityRank defines the total order used for threshold comparison.
// Every AlertSeverity constant MUST have an entry here; Rank falls back to
// the lowest rank for values outside the closed set.
var severityRank = map[AlertSeverity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the position of the severity in the total order.
// Unrecognized values rank as info (0).
func (s AlertSeverity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is at or above the given threshold severity.
func (s AlertSeverity) AtLeast(threshold AlertSeverity) bool {
	return s.Rank() >= threshold.Rank()
}

// Worst returns the more severe of two severities.
func (s AlertSeverity) Worst(other AlertSeverity) AlertSeverity {
	if other.Rank() > s.Rank() {
		return other
	}
	return s
}

// AlertResponse is the user's decision when acknowledging an alert.
type AlertResponse string

const (
	ResponseAcceptRisk AlertResponse = "accept_risk"
	ResponseModifyPlan AlertResponse = "modify_plan"
	ResponseCancel     AlertResponse = "cancel"
)

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	ChannelPush  ChannelType = "push"
	ChannelEmail ChannelType = "email"
	ChannelSMS   ChannelType = "sms"
)

// StopReason describes why guardianship was stopped.
type StopReason string

const (
	StopCompleted StopReason = "completed"
	StopCancelled StopReason = "cancelled"
	StopPaused    StopReason = "paused"
)

// OverallHealth summarizes a trip's unacknowledged alerts for status views.
type OverallHealth string

const (
	HealthGood     OverallHealth = "good"
	HealthWarning  OverallHealth = "warning"
	HealthCritical OverallHealth = "critical"
)

// Monitoring interval bounds. Intervals outside this range are clamped
// rather than rejected so stored records can never schedule pathologically
// tight or stalled check loops.
const (
	MinMonitoringInterval     = 15 * time.Minute
	MaxMonitoringInterval     = 24 * time.Hour
	DefaultMonitoringInterval = 4 * time.Hour
)

// ClampInterval bounds a monitoring interval to [MinMonitoringInterval,
// MaxMonitoringInterval]. A zero or negative interval gets the default.
func ClampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultMonitoringInterval
	}
	if d < MinMonitoringInterval {
		return MinMonitoringInterval
	}
	if d > MaxMonitoringInterval {
		return MaxMonitoringInterval
	}
	return d
}

// categoryLookup translates free-form category strings from the Reasoning
// Engine into the closed AlertCategory enum. Keys are lowercase. Inputs not
// present here fall back to CategoryGeneral (ingestion must never fail on an
// unrecognized category).
var categoryLookup = map[string]AlertCategory{
	"weather":              CategoryWeather,
	"storm":                CategoryWeather,
	"cyclone":              CategoryWeather,
	"protest":              CategoryProtest,
	"demonstration":        CategoryProtest,
	"civil_unrest":         CategoryProtest,
	"strike":               CategoryStrike,
	"hartal":               CategoryStrike,
	"natural_disaster":     CategoryNaturalDisaster,
	"earthquake":           CategoryNaturalDisaster,
	"tsunami":              CategoryNaturalDisaster,
	"landslide":            CategoryLandslide,
	"mudslide":             CategoryLandslide,
	"flood":                CategoryFlood,
	"flooding":             CategoryFlood,
	"road_closure":         CategoryRoadClosure,
	"road-closure":         CategoryRoadClosure,
	"closure":              CategoryRoadClosure,
	"transport_disruption": CategoryTransportDisruption,
	"transport":            CategoryTransportDisruption,
	"rail_disruption":      CategoryTransportDisruption,
	"security_incident":    CategorySecurityIncident,
	"security":             CategorySecurityIncident,
	"terrorism":            CategorySecurityIncident,
	"health_emergency":     CategoryHealthEmergency,
	"health":               CategoryHealthEmergency,
	"disease_outbreak":     CategoryHealthEmergency,
	"wildlife_danger":      CategoryWildlifeDanger,
	"wildlife":             CategoryWildlifeDanger,
	"general":              CategoryGeneral,
}

// severityLookup translates free-form severity strings from the Reasoning
// Engine into AlertSeverity. Inputs not present here fall back to
// SeverityMedium.
var severityLookup = map[string]AlertSeverity{
	"info":     SeverityInfo,
	"minor":    SeverityLow,
	"low":      SeverityLow,
	"medium":   SeverityMedium,
	"moderate": SeverityMedium,
	"high":     SeverityHigh,
	"severe":   SeverityHigh,
	"critical": SeverityCritical,
	"extreme":  SeverityCritical,
}

// ParseAlertCategory maps an upstream category string to the closed enum.
// Returns the mapped category and whether the input was recognized.
func ParseAlertCategory(raw string) (AlertCategory, bool) {
	c, ok := categoryLookup[normalizeEnumInput(raw)]
	if !ok {
		return CategoryGeneral, false
	}
	return c, true
}

// ParseAlertSeverity maps an upstream severity string to AlertSeverity.
// Returns the mapped severity and whether the input was recognized.
func ParseAlertSeverity(raw string) (AlertSeverity, bool) {
	s, ok := severityLookup[normalizeEnumInput(raw)]
	if !ok {
		return SeverityMedium, false
	}
	return s, true
}

// normalizeEnumInput lowercases and trims an upstream enum string so lookup
// keys match regardless of upstream casing or stray whitespace.
func normalizeEnumInput(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
}
