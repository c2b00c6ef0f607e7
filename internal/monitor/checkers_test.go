package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripguardian/internal/types"
)

// ============================================================
// WeatherChecker
// ============================================================

func TestWeatherChecker_BlockingIssuesBecomeAlerts(t *testing.T) {
	engine := &mockEngine{weatherVerdict: &types.WeatherVerdict{
		Valid:          false,
		Score:          20,
		BlockingIssues: []string{"flood warning", "cyclone approach"},
		Warnings:       []string{"heavy rain expected"},
	}}
	checker := NewWeatherChecker(engine, discardLogger())

	res := checker.Check(context.Background(), galleTrip(), testT0)

	assert.Equal(t, types.CheckFailed, res.status)
	assert.Equal(t, types.SeverityHigh, res.severity)
	assert.Equal(t, 20, res.score)
	require.Len(t, res.alerts, 2)
	for _, alert := range res.alerts {
		assert.Equal(t, types.CategoryWeather, alert.Category)
		assert.Equal(t, types.SeverityHigh, alert.Severity)
		assert.Equal(t, "Galle Fort", alert.AffectedLocation)
		assert.Equal(t, testT0, alert.DetectedAt)
		assert.NotEmpty(t, alert.ID)
	}
	assert.Contains(t, res.alerts[0].Title, "flood warning")
}

func TestWeatherChecker_WarningsOnly(t *testing.T) {
	engine := &mockEngine{weatherVerdict: &types.WeatherVerdict{
		Valid:    true,
		Score:    70,
		Warnings: []string{"afternoon showers"},
	}}
	checker := NewWeatherChecker(engine, discardLogger())

	res := checker.Check(context.Background(), galleTrip(), testT0)

	assert.Equal(t, types.CheckWarning, res.status)
	assert.Equal(t, types.SeverityLow, res.severity)
	assert.Empty(t, res.alerts, "warnings never create alerts")
	assert.Contains(t, res.details[0], "afternoon showers")
}

func TestWeatherChecker_Clean(t *testing.T) {
	engine := &mockEngine{weatherVerdict: &types.WeatherVerdict{Valid: true, Score: 95}}
	checker := NewWeatherChecker(engine, discardLogger())

	res := checker.Check(context.Background(), galleTrip(), testT0)
	assert.Equal(t, types.CheckPassed, res.status)
	assert.Empty(t, res.alerts)
	assert.False(t, res.unavailable)
}

func TestWeatherChecker_UpstreamFailureDegradesToNeutral(t *testing.T) {
	engine := &mockEngine{weatherErr: errors.New("connection refused")}
	checker := NewWeatherChecker(engine, discardLogger())

	res := checker.Check(context.Background(), galleTrip(), testT0)

	assert.Equal(t, types.CheckPassed, res.status, "unavailable checker must not fail the check")
	assert.True(t, res.unavailable)
	assert.Empty(t, res.alerts)
	require.Len(t, res.details, 1)
	assert.Contains(t, res.details[0], "weather check unavailable")
}

// ============================================================
// AlertChecker
// ============================================================

func TestAlertChecker_MapsBlockingAlerts(t *testing.T) {
	engine := &mockEngine{safetyVerdict: &types.SafetyVerdict{
		Safe: false,
		BlockingAlerts: []types.UpstreamAlert{
			{Title: "Hartal announced", Category: "hartal", Severity: "severe", Location: "Colombo"},
			{Title: "Road washed out", Category: "something_new", Severity: "catastrophic", Location: "Galle"},
		},
		OtherAlerts:     []types.UpstreamAlert{{Title: "pickpocketing advisory"}},
		Recommendations: []string{"avoid the old town after dark"},
	}}
	checker := NewAlertChecker(engine, 7, discardLogger())

	res := checker.Check(context.Background(), galleTrip(), testT0)

	assert.Equal(t, types.CheckFailed, res.status)
	require.Len(t, res.alerts, 2)

	assert.Equal(t, types.CategoryStrike, res.alerts[0].Category)
	assert.Equal(t, types.SeverityHigh, res.alerts[0].Severity)

	// Unrecognized upstream values fall back instead of failing ingestion.
	assert.Equal(t, types.CategoryGeneral, res.alerts[1].Category)
	assert.Equal(t, types.SeverityMedium, res.alerts[1].Severity)

	assert.Equal(t, types.SeverityHigh, res.severity, "worst severity across found alerts")
	assert.Contains(t, res.details, "safety advisory: pickpocketing advisory")
	assert.Contains(t, res.details, "recommendation: avoid the old town after dark")
}

func TestAlertChecker_OtherAlertsOnlyWarn(t *testing.T) {
	engine := &mockEngine{safetyVerdict: &types.SafetyVerdict{
		Safe:        true,
		OtherAlerts: []types.UpstreamAlert{{Title: "minor delays"}},
	}}
	checker := NewAlertChecker(engine, 7, discardLogger())

	res := checker.Check(context.Background(), galleTrip(), testT0)
	assert.Equal(t, types.CheckWarning, res.status)
	assert.Empty(t, res.alerts)
}

func TestAlertChecker_UpstreamFailureDegradesToNeutral(t *testing.T) {
	engine := &mockEngine{safetyErr: errors.New("timeout")}
	checker := NewAlertChecker(engine, 7, discardLogger())

	res := checker.Check(context.Background(), galleTrip(), testT0)
	assert.Equal(t, types.CheckPassed, res.status)
	assert.True(t, res.unavailable)
}

// ============================================================
// runChecks
// ============================================================

func TestRunChecks_FoldsWorstOutcome(t *testing.T) {
	engine := &mockEngine{
		weatherVerdict: &types.WeatherVerdict{Valid: true, Score: 80, Warnings: []string{"light rain"}},
		safetyVerdict: &types.SafetyVerdict{
			Safe: false,
			BlockingAlerts: []types.UpstreamAlert{
				{Title: "protest", Category: "protest", Severity: "critical", Location: "Colombo"},
			},
		},
	}
	weather := NewWeatherChecker(engine, discardLogger())
	alerts := NewAlertChecker(engine, 7, discardLogger())

	outcome := runChecks(context.Background(), galleTrip(), testT0, weather, alerts)

	assert.Equal(t, types.CheckTypeFull, outcome.CheckType)
	assert.Equal(t, types.CheckFailed, outcome.Status)
	assert.Equal(t, types.SeverityCritical, outcome.Severity)
	assert.Equal(t, 80, outcome.WeatherScore)
	assert.Len(t, outcome.Alerts, 1)
	assert.Equal(t, 1, engine.weatherCalls)
	assert.Equal(t, 1, engine.alertCalls)
}

func TestRunChecks_SingleCheckerTypes(t *testing.T) {
	engine := &mockEngine{}
	weather := NewWeatherChecker(engine, discardLogger())
	alerts := NewAlertChecker(engine, 7, discardLogger())

	weatherOnly := runChecks(context.Background(), galleTrip(), testT0, weather, nil)
	assert.Equal(t, types.CheckTypeWeather, weatherOnly.CheckType)

	alertsOnly := runChecks(context.Background(), galleTrip(), testT0, nil, alerts)
	assert.Equal(t, types.CheckTypeAlerts, alertsOnly.CheckType)
}

func TestRunChecks_CountsUnavailableCheckers(t *testing.T) {
	engine := &mockEngine{
		weatherErr: errors.New("down"),
		safetyErr:  errors.New("down"),
	}
	weather := NewWeatherChecker(engine, discardLogger())
	alerts := NewAlertChecker(engine, 7, discardLogger())

	outcome := runChecks(context.Background(), galleTrip(), testT0, weather, alerts)
	assert.Equal(t, 2, outcome.UnavailableCheckers)
	assert.Equal(t, types.CheckPassed, outcome.Status)
}

// ============================================================
// Helpers
// ============================================================

func TestItineraryLocations_DistinctOrdered(t *testing.T) {
	itinerary := types.Itinerary{
		{Location: "Galle Fort"},
		{Location: "Unawatuna"},
		{Location: "Galle Fort"},
		{Location: "  "},
		{Location: "Mirissa"},
	}
	got := itineraryLocations(itinerary)
	assert.Equal(t, []string{"Galle Fort", "Unawatuna", "Mirissa"}, got)
}

func TestTargetDate(t *testing.T) {
	trip := galleTrip()

	// Trip already underway: validate for now.
	assert.Equal(t, testT0, targetDate(trip, testT0))

	// Trip not started yet: validate for the first travel day.
	trip.Window.Start = testT0.Add(48 * time.Hour)
	assert.Equal(t, trip.Window.Start, targetDate(trip, testT0))
}
