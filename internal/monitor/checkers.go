// checkers.go implements the two condition checkers that re-validate a trip
// against real-world conditions. Both hit unrelated Reasoning Engine
// capabilities, so one trip's checks run concurrently; a transport failure
// in either degrades to a neutral "check unavailable" result and never
// aborts the trip's processing.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tripguardian/internal/types"
)

// ReasoningEngine abstracts the external engine's three capabilities.
// Implemented by engine.ReasoningClient; mocked in tests.
type ReasoningEngine interface {
	// ValidateWeather returns a weather-suitability verdict for the
	// itinerary on the target date.
	ValidateWeather(ctx context.Context, itinerary types.Itinerary, tripDate time.Time) (*types.WeatherVerdict, error)
	// ValidateAlerts returns a civil/safety verdict for the locations over
	// the lookback window.
	ValidateAlerts(ctx context.Context, locations []string, lookbackDays int) (*types.SafetyVerdict, error)
	// GenerateDeltaPlan returns a replacement-itinerary proposal, or nil
	// when the engine has no suggestion.
	GenerateDeltaPlan(ctx context.Context, trip *types.TripMonitoringRecord, alerts []types.ActiveAlert) (*types.DeltaPlanProposal, error)
}

// checkResult is one checker's contribution to a monitoring check.
type checkResult struct {
	status      types.CheckStatus
	score       int // weather only, 0-100
	alerts      []types.ActiveAlert
	details     []string
	severity    types.AlertSeverity
	unavailable bool
}

// neutralResult is the degraded outcome when a checker's upstream call
// fails: it passes (one flaky upstream never fails the cycle) and reports
// the unavailability as a detail line.
func neutralResult(checker string, err error) checkResult {
	return checkResult{
		status:      types.CheckPassed,
		severity:    types.SeverityInfo,
		details:     []string{fmt.Sprintf("%s check unavailable: %v", checker, err)},
		unavailable: true,
	}
}

// CheckOutcome is the folded result of all enabled checkers for one trip.
type CheckOutcome struct {
	CheckType    types.CheckType
	Status       types.CheckStatus
	WeatherScore int
	// Alerts holds every alert found this pass, before deduplication
	// against the trip's active set.
	Alerts  []types.ActiveAlert
	Details []string
	// Severity is the worst severity across all found alerts, used for
	// the ALERT_DETECTED transition and the notification gate.
	Severity types.AlertSeverity
	// UnavailableCheckers counts degraded checkers for telemetry.
	UnavailableCheckers int
}

// WeatherChecker validates itinerary weather via the Reasoning Engine.
type WeatherChecker struct {
	engine ReasoningEngine
	logger *slog.Logger
}

// NewWeatherChecker creates a WeatherChecker.
func NewWeatherChecker(engine ReasoningEngine, logger *slog.Logger) *WeatherChecker {
	return &WeatherChecker{engine: engine, logger: logger}
}

// Check runs the weather validation for the trip's next travel day.
// Blocking issues each become one high-severity weather alert; warnings
// contribute detail lines only.
func (c *WeatherChecker) Check(ctx context.Context, trip *types.TripMonitoringRecord, now time.Time) checkResult {
	verdict, err := c.engine.ValidateWeather(ctx, trip.Itinerary, targetDate(trip, now))
	if err != nil {
		c.logger.WarnContext(ctx, "weather check degraded",
			"trip_id", trip.ID,
			"error", err,
		)
		return neutralResult("weather", err)
	}

	res := checkResult{
		status:   types.CheckPassed,
		score:    verdict.Score,
		severity: types.SeverityInfo,
	}

	location := firstLocation(trip.Itinerary)
	for _, issue := range verdict.BlockingIssues {
		res.alerts = append(res.alerts, types.ActiveAlert{
			ID:               uuid.New().String(),
			Category:         types.CategoryWeather,
			Severity:         types.SeverityHigh,
			Title:            issue,
			AffectedLocation: location,
			DetectedAt:       now,
		})
		res.details = append(res.details, "weather blocking issue: "+issue)
	}
	for _, warning := range verdict.Warnings {
		res.details = append(res.details, "weather warning: "+warning)
	}
	for _, fc := range verdict.Forecasts {
		if fc.Summary != "" {
			res.details = append(res.details, fmt.Sprintf("forecast %s: %s", fc.Location, fc.Summary))
		}
	}

	switch {
	case len(verdict.BlockingIssues) > 0:
		res.status = types.CheckFailed
		res.severity = types.SeverityHigh
	case !verdict.Valid || len(verdict.Warnings) > 0:
		res.status = types.CheckWarning
		res.severity = types.SeverityLow
	}

	return res
}

// AlertChecker validates civil/safety conditions via the Reasoning Engine.
type AlertChecker struct {
	engine       ReasoningEngine
	lookbackDays int
	logger       *slog.Logger

	// Unmapped upstream enum values are logged once per distinct value,
	// not once per occurrence.
	mu           sync.Mutex
	seenUnmapped map[string]struct{}
}

// NewAlertChecker creates an AlertChecker with the given lookback window.
func NewAlertChecker(engine ReasoningEngine, lookbackDays int, logger *slog.Logger) *AlertChecker {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	return &AlertChecker{
		engine:       engine,
		lookbackDays: lookbackDays,
		logger:       logger,
		seenUnmapped: make(map[string]struct{}),
	}
}

// Check runs the civil/safety validation. Blocking alerts map into
// ActiveAlerts with category/severity translated through the fixed lookup
// (general/medium fallback); non-blocking alerts contribute details only.
func (c *AlertChecker) Check(ctx context.Context, trip *types.TripMonitoringRecord, now time.Time) checkResult {
	verdict, err := c.engine.ValidateAlerts(ctx, itineraryLocations(trip.Itinerary), c.lookbackDays)
	if err != nil {
		c.logger.WarnContext(ctx, "safety alert check degraded",
			"trip_id", trip.ID,
			"error", err,
		)
		return neutralResult("alerts", err)
	}

	res := checkResult{
		status:   types.CheckPassed,
		severity: types.SeverityInfo,
	}

	for _, raw := range verdict.BlockingAlerts {
		alert := c.mapUpstreamAlert(ctx, raw, now)
		res.alerts = append(res.alerts, alert)
		res.severity = res.severity.Worst(alert.Severity)
		res.details = append(res.details, fmt.Sprintf("safety alert (%s/%s): %s", alert.Category, alert.Severity, alert.Title))
	}
	for _, raw := range verdict.OtherAlerts {
		res.details = append(res.details, "safety advisory: "+raw.Title)
	}
	for _, rec := range verdict.Recommendations {
		res.details = append(res.details, "recommendation: "+rec)
	}

	switch {
	case len(verdict.BlockingAlerts) > 0:
		res.status = types.CheckFailed
	case !verdict.Safe || len(verdict.OtherAlerts) > 0:
		res.status = types.CheckWarning
		res.severity = res.severity.Worst(types.SeverityLow)
	}

	return res
}

// mapUpstreamAlert translates one free-form upstream alert into the closed
// domain enums, logging unrecognized values once.
func (c *AlertChecker) mapUpstreamAlert(ctx context.Context, raw types.UpstreamAlert, now time.Time) types.ActiveAlert {
	category, knownCat := types.ParseAlertCategory(raw.Category)
	severity, knownSev := types.ParseAlertSeverity(raw.Severity)
	if !knownCat {
		c.logUnmappedOnce(ctx, "category", raw.Category)
	}
	if !knownSev {
		c.logUnmappedOnce(ctx, "severity", raw.Severity)
	}

	return types.ActiveAlert{
		ID:                uuid.New().String(),
		Category:          category,
		Severity:          severity,
		Title:             raw.Title,
		Description:       raw.Description,
		AffectedLocation:  raw.Location,
		AffectedDate:      raw.Date,
		SourceURL:         raw.SourceURL,
		ExpiresAt:         raw.ExpiresAt,
		DetectedAt:        now,
		TravelImpact:      raw.TravelImpact,
		RecommendedAction: raw.RecommendedAction,
	}
}

// logUnmappedOnce records one warning per distinct unmapped upstream value.
func (c *AlertChecker) logUnmappedOnce(ctx context.Context, kind, value string) {
	key := kind + ":" + value
	c.mu.Lock()
	_, seen := c.seenUnmapped[key]
	if !seen {
		c.seenUnmapped[key] = struct{}{}
	}
	c.mu.Unlock()

	if !seen {
		c.logger.WarnContext(ctx, "unmapped upstream alert value, using fallback",
			"kind", kind,
			"value", value,
		)
	}
}

// runChecks executes the enabled checkers concurrently (the only intentional
// fan-out: at most two outstanding engine calls per trip) and folds their
// results into one CheckOutcome. Checkers never surface errors, so the group
// wait cannot fail.
func runChecks(ctx context.Context, trip *types.TripMonitoringRecord, now time.Time, weather *WeatherChecker, alerts *AlertChecker) CheckOutcome {
	var weatherRes, alertsRes checkResult
	weatherRes.status = types.CheckPassed
	alertsRes.status = types.CheckPassed

	g, gCtx := errgroup.WithContext(ctx)
	if weather != nil {
		g.Go(func() error {
			weatherRes = weather.Check(gCtx, trip, now)
			return nil
		})
	}
	if alerts != nil {
		g.Go(func() error {
			alertsRes = alerts.Check(gCtx, trip, now)
			return nil
		})
	}
	_ = g.Wait()

	outcome := CheckOutcome{
		CheckType:    checkTypeFor(weather != nil, alerts != nil),
		Status:       weatherRes.status.Worst(alertsRes.status),
		WeatherScore: weatherRes.score,
		Alerts:       append(append([]types.ActiveAlert(nil), weatherRes.alerts...), alertsRes.alerts...),
		Details:      append(append([]string(nil), weatherRes.details...), alertsRes.details...),
		Severity:     weatherRes.severity.Worst(alertsRes.severity),
	}
	if weatherRes.unavailable {
		outcome.UnavailableCheckers++
	}
	if alertsRes.unavailable {
		outcome.UnavailableCheckers++
	}

	return outcome
}

// checkTypeFor names the check by which checkers contributed.
func checkTypeFor(weatherEnabled, alertsEnabled bool) types.CheckType {
	switch {
	case weatherEnabled && alertsEnabled:
		return types.CheckTypeFull
	case weatherEnabled:
		return types.CheckTypeWeather
	default:
		return types.CheckTypeAlerts
	}
}

// targetDate picks the date the checks validate: the next travel day, i.e.
// the later of now and the window start (the window end has already been
// guarded by the caller).
func targetDate(trip *types.TripMonitoringRecord, now time.Time) time.Time {
	if trip.Window.Start.After(now) {
		return trip.Window.Start
	}
	return now
}

// itineraryLocations returns the distinct stop locations in itinerary order.
func itineraryLocations(itinerary types.Itinerary) []string {
	seen := make(map[string]struct{}, len(itinerary))
	var locations []string
	for _, item := range itinerary {
		name := strings.TrimSpace(item.Location)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		locations = append(locations, name)
	}
	return locations
}

// firstLocation returns the first stop's location, or a generic label for
// an empty itinerary.
func firstLocation(itinerary types.Itinerary) string {
	for _, item := range itinerary {
		if strings.TrimSpace(item.Location) != "" {
			return item.Location
		}
	}
	return "itinerary"
}
