package types

import "time"

// This file defines the wire contracts consumed from the Reasoning Engine.
// The engine is an external service; category and severity strings arrive
// free-form and are mapped into the closed enums at ingestion
// (ParseAlertCategory / ParseAlertSeverity).

// LocationForecast is the per-stop forecast report attached to a weather
// verdict. Contributes to check details only; never creates alerts.
type LocationForecast struct {
	Location string  `json:"location"`
	Summary  string  `json:"summary"`
	TempC    float64 `json:"temp_c,omitempty"`
	PrecipMM float64 `json:"precip_mm,omitempty"`
	WindKPH  float64 `json:"wind_kph,omitempty"`
}

// WeatherVerdict is the engine's weather-suitability response for an
// itinerary on a target date.
type WeatherVerdict struct {
	Valid          bool               `json:"valid"`
	Score          int                `json:"score"` // 0-100
	BlockingIssues []string           `json:"blocking_issues,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
	Forecasts      []LocationForecast `json:"forecasts,omitempty"`
}

// UpstreamAlert is a civil/safety incident as reported by the engine.
// Category and Severity are free-form strings from the upstream model.
type UpstreamAlert struct {
	Category          string     `json:"category"`
	Severity          string     `json:"severity"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Location          string     `json:"location"`
	Date              *time.Time `json:"date,omitempty"`
	SourceURL         string     `json:"source_url,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	TravelImpact      string     `json:"travel_impact,omitempty"`
	RecommendedAction string     `json:"recommended_action,omitempty"`
}

// SafetyVerdict is the engine's civil/safety-alert response for a set of
// itinerary locations over a lookback window.
type SafetyVerdict struct {
	Safe            bool            `json:"safe"`
	BlockingAlerts  []UpstreamAlert `json:"blocking_alerts,omitempty"`
	OtherAlerts     []UpstreamAlert `json:"other_alerts,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

// DeltaPlanProposal is the engine's suggested replacement itinerary in
// response to a set of active alerts.
type DeltaPlanProposal struct {
	Reason         string          `json:"reason"`
	OriginalItems  []ItineraryItem `json:"original_items,omitempty"`
	SuggestedItems []ItineraryItem `json:"suggested_items"`
	AffectedDates  []string        `json:"affected_dates,omitempty"`
	ImpactSummary  string          `json:"impact_summary,omitempty"`
	Explanation    string          `json:"explanation,omitempty"`
}
