// state.go implements the monitoring status state machine. Transitions are
// pure functions over a TripMonitoringRecord: they either apply fully or
// return a typed error leaving the record untouched, so façade callers can
// rely on guard failures never producing partial writes.
//
// States: NOT_MONITORING -> ACTIVE_MONITORING -> ALERT_DETECTED ->
// DELTA_PLAN_GENERATED -> back to ACTIVE_MONITORING; any active state may
// move to PAUSED; COMPLETED and CANCELLED are absorbing.
package monitor

import (
	"fmt"
	"time"

	"tripguardian/internal/types"
)

// Start begins (or resumes) guardianship. Legal only from NOT_MONITORING or
// PAUSED, and only while the trip window has not ended. Sets the status to
// ACTIVE_MONITORING, stamps MonitoringStartedAt, and schedules the first
// check one interval out.
func Start(rec *types.TripMonitoringRecord, now time.Time) error {
	if rec.MonitoringStatus.IsTerminal() {
		return types.NewAppError(types.ErrCodeInvalidState,
			fmt.Sprintf("cannot start monitoring from terminal state %s", rec.MonitoringStatus), nil)
	}
	if rec.MonitoringStatus.IsActive() {
		return types.NewAppError(types.ErrCodeAlreadyMonitoring,
			fmt.Sprintf("trip %s is already being monitored", rec.ID), nil)
	}
	if rec.Window.End.Before(now) {
		return types.NewAppError(types.ErrCodeTripEnded,
			fmt.Sprintf("trip %s ended %s", rec.ID, rec.Window.End.Format("2006-01-02")), nil)
	}

	rec.MonitoringInterval = types.ClampInterval(rec.MonitoringInterval)
	rec.MonitoringStatus = types.StatusActiveMonitoring
	rec.MonitoringStartedAt = &now
	rec.MonitoringEndedAt = nil
	next := now.Add(rec.MonitoringInterval)
	rec.NextScheduledCheck = &next

	return nil
}

// Stop ends or suspends guardianship. Legal from any non-terminal state.
// Stamps MonitoringEndedAt and clears NextScheduledCheck so the trip falls
// out of the due-trip selection.
func Stop(rec *types.TripMonitoringRecord, reason types.StopReason, now time.Time) error {
	if rec.MonitoringStatus.IsTerminal() {
		return types.NewAppError(types.ErrCodeInvalidState,
			fmt.Sprintf("cannot stop monitoring from terminal state %s", rec.MonitoringStatus), nil)
	}

	switch reason {
	case types.StopCompleted:
		rec.MonitoringStatus = types.StatusCompleted
	case types.StopCancelled:
		rec.MonitoringStatus = types.StatusCancelled
	case types.StopPaused:
		rec.MonitoringStatus = types.StatusPaused
	default:
		return types.NewAppError(types.ErrCodeInvalidState,
			fmt.Sprintf("unknown stop reason %q", reason), nil)
	}

	rec.MonitoringEndedAt = &now
	rec.NextScheduledCheck = nil

	return nil
}

// ApplyCheckSeverity moves the trip to ALERT_DETECTED when a completed
// check found a high or critical alert. Terminal states are never checked,
// so the transition applies from any remaining state.
func ApplyCheckSeverity(rec *types.TripMonitoringRecord, worst types.AlertSeverity) {
	if rec.MonitoringStatus.IsTerminal() {
		return
	}
	if worst.AtLeast(types.SeverityHigh) {
		rec.MonitoringStatus = types.StatusAlertDetected
	}
}

// MarkDeltaPlanGenerated records that a delta plan proposal is now pending.
// The DELTA_PLAN_GENERATED status is only meaningful while in
// ALERT_DETECTED; other states keep their status but still carry the plan.
func MarkDeltaPlanGenerated(rec *types.TripMonitoringRecord, planID string) {
	rec.CurrentDeltaPlanID = planID
	if rec.MonitoringStatus == types.StatusAlertDetected {
		rec.MonitoringStatus = types.StatusDeltaPlanGenerated
	}
}

// AcknowledgeAlert records the user's response on an active alert and moves
// it to the alert history. A cancel response ends guardianship; otherwise,
// acknowledging the last outstanding alert returns ALERT_DETECTED to
// ACTIVE_MONITORING.
func AcknowledgeAlert(rec *types.TripMonitoringRecord, alertID string, response types.AlertResponse, now time.Time) error {
	idx := -1
	for i := range rec.ActiveAlerts {
		if rec.ActiveAlerts[i].ID == alertID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert,
			fmt.Sprintf("alert %s is not active on trip %s", alertID, rec.ID), nil)
	}

	alert := rec.ActiveAlerts[idx]
	alert.IsAcknowledged = true
	alert.UserResponse = &response

	// Atomic move from active to history.
	rec.ActiveAlerts = append(rec.ActiveAlerts[:idx], rec.ActiveAlerts[idx+1:]...)
	rec.AlertHistory = append(rec.AlertHistory, alert)

	if response == types.ResponseCancel {
		return Stop(rec, types.StopCancelled, now)
	}

	if len(rec.UnacknowledgedAlerts()) == 0 && rec.MonitoringStatus == types.StatusAlertDetected {
		rec.MonitoringStatus = types.StatusActiveMonitoring
	}

	return nil
}

// DecideDeltaPlan applies the user's accept/reject decision to the plan with
// the given ID. Accepting replaces the trip's itinerary wholesale with the
// plan's suggested items. Either decision clears the current-plan pointer
// and, if the status was DELTA_PLAN_GENERATED, returns it to
// ACTIVE_MONITORING.
func DecideDeltaPlan(rec *types.TripMonitoringRecord, planID string, accept bool, now time.Time) error {
	plan := rec.FindDeltaPlan(planID)
	if plan == nil {
		return types.NewAppError(types.ErrCodeNotFoundDeltaPlan,
			fmt.Sprintf("delta plan %s not found on trip %s", planID, rec.ID), nil)
	}
	if plan.Decided() {
		return types.NewAppError(types.ErrCodeInvalidState,
			fmt.Sprintf("delta plan %s has already been decided", planID), nil)
	}

	plan.UserAccepted = &accept
	if accept {
		plan.AcceptedAt = &now
		rec.Itinerary = append(types.Itinerary(nil), plan.SuggestedItems...)
	}

	if rec.CurrentDeltaPlanID == planID {
		rec.CurrentDeltaPlanID = ""
	}
	if rec.MonitoringStatus == types.StatusDeltaPlanGenerated {
		rec.MonitoringStatus = types.StatusActiveMonitoring
	}

	return nil
}
