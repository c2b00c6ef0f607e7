// Package monitor implements the Active-Guardian core: the monitoring state
// machine, the per-trip check pipeline, the delta-plan generator, the
// notification gate, and the synchronous façade consumed by the API layer
// and the scheduled worker.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tripguardian/internal/types"
)

// TripRepository abstracts the persistence store operations the core needs:
// read-by-filter for due trips, read-by-id, and atomic whole-record save.
type TripRepository interface {
	GetByID(ctx context.Context, id string) (*types.TripMonitoringRecord, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*types.TripMonitoringRecord, error)
	Save(ctx context.Context, rec *types.TripMonitoringRecord) error
}

// ServiceConfig holds the dependencies and feature gates for the monitoring
// service. Constructor injection keeps tests free to run independent
// instances.
type ServiceConfig struct {
	Repo       TripRepository
	Engine     ReasoningEngine
	Dispatcher Dispatcher
	Clock      types.Clock
	Logger     *slog.Logger

	WeatherCheckEnabled  bool
	AlertCheckEnabled    bool
	DeltaPlansEnabled    bool
	NotificationsEnabled bool
	AlertLookbackDays    int
}

// Service is the monitoring façade. Every operation is a plain synchronous
// call returning a result or a typed AppError; this is the only way external
// code touches the monitoring core.
type Service struct {
	repo     TripRepository
	clock    types.Clock
	logger   *slog.Logger
	validate *validator.Validate

	weather  *WeatherChecker // nil when disabled
	alerts   *AlertChecker   // nil when disabled
	deltaGen *DeltaPlanGenerator
	gate     *NotificationGate

	deltaPlansEnabled    bool
	notificationsEnabled bool
}

// NewService wires the monitoring core from its configuration.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}

	s := &Service{
		repo:                 cfg.Repo,
		clock:                clock,
		logger:               logger,
		validate:             validator.New(),
		deltaPlansEnabled:    cfg.DeltaPlansEnabled,
		notificationsEnabled: cfg.NotificationsEnabled,
	}

	if cfg.WeatherCheckEnabled {
		s.weather = NewWeatherChecker(cfg.Engine, logger)
	}
	if cfg.AlertCheckEnabled {
		s.alerts = NewAlertChecker(cfg.Engine, cfg.AlertLookbackDays, logger)
	}
	if cfg.DeltaPlansEnabled {
		s.deltaGen = NewDeltaPlanGenerator(cfg.Engine, logger)
	}
	if cfg.NotificationsEnabled {
		s.gate = NewNotificationGate(cfg.Dispatcher, logger)
	}

	return s
}

// CreateRecordParams are the inputs to CreateRecord, supplied by the
// trip-acceptance flow.
type CreateRecordParams struct {
	TripID      string                        `validate:"required"`
	Itinerary   types.Itinerary               `validate:"required,min=1,dive"`
	Window      types.TripWindow              `validate:"required"`
	Interval    time.Duration                 // zero means default
	Preferences types.NotificationPreferences //
}

// CreateRecord creates a trip monitoring record in NOT_MONITORING. The
// record stays unscheduled until Start is called.
func (s *Service) CreateRecord(ctx context.Context, params CreateRecordParams) (*types.TripMonitoringRecord, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField,
			"invalid create-record parameters", err)
	}
	if params.Window.End.Before(params.Window.Start) {
		return nil, types.NewAppError(types.ErrCodeValidationWindow,
			"trip window end precedes start", nil)
	}

	prefs := params.Preferences
	if prefs.AlertThreshold == "" {
		prefs.AlertThreshold = types.SeverityMedium
	}

	now := s.clock.Now()
	rec := &types.TripMonitoringRecord{
		ID:                      params.TripID,
		Itinerary:               params.Itinerary,
		Window:                  params.Window,
		MonitoringStatus:        types.StatusNotMonitoring,
		MonitoringInterval:      types.ClampInterval(params.Interval),
		NotificationPreferences: prefs,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "trip monitoring record created",
		"trip_id", rec.ID,
		"interval", rec.MonitoringInterval,
	)

	return rec, nil
}

// Start begins guardianship for the trip. Fails with AlreadyMonitoring from
// any active state and TripEnded when the window has passed; guard failures
// leave the stored record unmodified.
func (s *Service) Start(ctx context.Context, tripID string) (*types.TripMonitoringRecord, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := Start(rec, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "monitoring started",
		"trip_id", rec.ID,
		"next_check", rec.NextScheduledCheck,
	)

	return rec, nil
}

// Stop ends or pauses guardianship for the trip.
func (s *Service) Stop(ctx context.Context, tripID string, reason types.StopReason) (*types.TripMonitoringRecord, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := Stop(rec, reason, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "monitoring stopped",
		"trip_id", rec.ID,
		"reason", reason,
		"status", rec.MonitoringStatus,
	)

	return rec, nil
}

// GetStatus returns the trip's monitoring status summary, deriving overall
// health from the unacknowledged alert severities.
func (s *Service) GetStatus(ctx context.Context, tripID string) (*types.MonitoringStatusInfo, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	return &types.MonitoringStatusInfo{
		TripID:              rec.ID,
		Status:              rec.MonitoringStatus,
		OverallHealth:       rec.OverallHealth(),
		ActiveAlertCount:    len(rec.UnacknowledgedAlerts()),
		LastMonitoringCheck: rec.LastMonitoringCheck,
		NextScheduledCheck:  rec.NextScheduledCheck,
		ChecksCount:         rec.MonitoringChecksCount,
		HasPendingDeltaPlan: rec.CurrentDeltaPlanID != "",
	}, nil
}

// GetActiveAlerts returns the trip's unacknowledged alerts.
func (s *Service) GetActiveAlerts(ctx context.Context, tripID string) ([]types.ActiveAlert, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return rec.UnacknowledgedAlerts(), nil
}

// AcknowledgeAlert records the user's response to an active alert, moving
// it atomically to history. A cancel response ends guardianship.
func (s *Service) AcknowledgeAlert(ctx context.Context, tripID, alertID string, response types.AlertResponse) (*types.TripMonitoringRecord, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := AcknowledgeAlert(rec, alertID, response, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "alert acknowledged",
		"trip_id", rec.ID,
		"alert_id", alertID,
		"response", response,
		"status", rec.MonitoringStatus,
	)

	return rec, nil
}

// GetCurrentDeltaPlan returns the plan awaiting a decision, or a typed
// not-found error when none is pending.
func (s *Service) GetCurrentDeltaPlan(ctx context.Context, tripID string) (*types.DeltaPlan, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	plan := rec.CurrentDeltaPlan()
	if plan == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundDeltaPlan,
			fmt.Sprintf("no delta plan pending on trip %s", tripID), nil)
	}
	return plan, nil
}

// RespondToDeltaPlan applies the user's accept/reject decision. Accepting
// replaces the trip's itinerary with the plan's suggested items.
func (s *Service) RespondToDeltaPlan(ctx context.Context, tripID, planID string, accept bool) (*types.TripMonitoringRecord, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := DecideDeltaPlan(rec, planID, accept, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "delta plan decided",
		"trip_id", rec.ID,
		"plan_id", planID,
		"accepted", accept,
	)

	return rec, nil
}

// GetMonitoringHistory returns the most recent checks, newest first,
// capped at limit (0 means all).
func (s *Service) GetMonitoringHistory(ctx context.Context, tripID string, limit int) ([]types.MonitoringCheck, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	history := rec.MonitoringHistory
	out := make([]types.MonitoringCheck, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		out = append(out, history[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// TriggerImmediateCheck runs one monitoring pass for the trip synchronously,
// bypassing the schedule. Intended for manual/debug use; the caller accepts
// the (cross-trip) overlap risk with an in-flight cycle.
func (s *Service) TriggerImmediateCheck(ctx context.Context, tripID string) (*types.MonitoringCheck, error) {
	rec, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if rec.MonitoringStatus.IsTerminal() {
		return nil, types.NewAppError(types.ErrCodeInvalidState,
			fmt.Sprintf("trip %s monitoring is %s", tripID, rec.MonitoringStatus), nil)
	}

	check := s.MonitorTrip(ctx, rec)
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	if check == nil {
		return nil, types.NewAppError(types.ErrCodeInvalidState,
			fmt.Sprintf("trip %s is no longer eligible for checks", tripID), nil)
	}
	return check, nil
}

// MonitorTrip runs the full per-trip pipeline on an in-memory record:
// concurrent condition checks, alert dedup and counting, the state-machine
// transition, best-effort delta-plan generation, and the notification gate.
// It mutates the record but does not persist it; callers save.
//
// A trip whose window has already ended is completed instead of checked and
// yields a nil check.
func (s *Service) MonitorTrip(ctx context.Context, trip *types.TripMonitoringRecord) *types.MonitoringCheck {
	now := s.clock.Now()

	if trip.Window.End.Before(now) {
		if err := Stop(trip, types.StopCompleted, now); err == nil {
			s.logger.InfoContext(ctx, "trip window ended, monitoring completed",
				"trip_id", trip.ID,
			)
		}
		return nil
	}

	outcome := runChecks(ctx, trip, now, s.weather, s.alerts)

	// Merge found alerts into the active set; duplicates of an existing
	// active incident are dropped and counted nowhere.
	added := mergeAlerts(trip, outcome.Alerts)
	trip.TotalAlertsDetected += added

	check := types.MonitoringCheck{
		ID:           uuid.New().String(),
		Timestamp:    now,
		CheckType:    outcome.CheckType,
		Status:       outcome.Status,
		WeatherScore: outcome.WeatherScore,
		AlertsFound:  added,
		Details:      strings.Join(outcome.Details, "; "),
	}
	trip.MonitoringHistory = append(trip.MonitoringHistory, check)
	trip.MonitoringChecksCount++
	trip.LastMonitoringCheck = &now

	ApplyCheckSeverity(trip, outcome.Severity)

	if outcome.Status == types.CheckFailed && s.deltaPlansEnabled && s.deltaGen != nil {
		s.deltaGen.Generate(ctx, trip, now)
	}

	if s.notificationsEnabled && s.gate != nil {
		s.gate.MaybeNotify(ctx, trip, outcome, now)
	}

	s.logger.InfoContext(ctx, "monitoring check completed",
		"trip_id", trip.ID,
		"check_id", check.ID,
		"status", check.Status,
		"alerts_found", added,
		"monitoring_status", trip.MonitoringStatus,
	)

	return &trip.MonitoringHistory[len(trip.MonitoringHistory)-1]
}

// mergeAlerts appends newly found alerts to the trip's active set, dropping
// any that match an existing active alert under the (title, location)
// dedup identity. Returns the number actually added.
func mergeAlerts(trip *types.TripMonitoringRecord, found []types.ActiveAlert) int {
	added := 0
	for _, alert := range found {
		duplicate := false
		for _, existing := range trip.ActiveAlerts {
			if existing.SameIncident(alert) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		trip.ActiveAlerts = append(trip.ActiveAlerts, alert)
		added++
	}
	return added
}
