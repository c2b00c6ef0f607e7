package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tripguardian/internal/types"
)

// userAgent identifies the guardian worker to the Reasoning Engine.
const userAgent = "TripGuardian-Monitor/1.0"

// Config holds the Reasoning Engine client settings.
type Config struct {
	BaseURL string
	APIKey  types.SecretString
	// Timeout bounds each call, independent of the scheduler cadence.
	Timeout time.Duration
	Logger  *slog.Logger
}

// ReasoningClient is the HTTP client for the Reasoning Engine's three
// capabilities: weather validation, civil/safety-alert validation, and
// delta-plan generation. Each call carries its own timeout so a slow
// upstream degrades to "check unavailable" instead of stalling the cycle.
type ReasoningClient struct {
	base    *resilientClient
	baseURL string
	apiKey  types.SecretString
	timeout time.Duration
	logger  *slog.Logger
}

// NewReasoningClient creates a ReasoningClient with circuit breaking and
// retry behavior suitable for background monitoring calls.
func NewReasoningClient(httpClient *http.Client, cfg Config, opts ...clientOption) *ReasoningClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ReasoningClient{
		base:    newResilientClient(httpClient, "reasoning-engine", DefaultRetryPolicy(), userAgent, opts...),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		logger:  logger,
	}
}

// weatherRequest is the wire request for ValidateWeather.
type weatherRequest struct {
	Itinerary []types.ItineraryItem `json:"itinerary"`
	TripDate  string                `json:"trip_date"` // "2006-01-02"
}

// alertsRequest is the wire request for ValidateAlerts.
type alertsRequest struct {
	Locations    []string `json:"locations"`
	LookbackDays int      `json:"lookback_days"`
}

// deltaPlanRequest is the wire request for GenerateDeltaPlan.
type deltaPlanRequest struct {
	TripID       string                `json:"trip_id"`
	Itinerary    []types.ItineraryItem `json:"itinerary"`
	WindowStart  string                `json:"window_start"`
	WindowEnd    string                `json:"window_end"`
	ActiveAlerts []types.ActiveAlert   `json:"active_alerts"`
}

// ValidateWeather asks the engine for a weather-suitability verdict for the
// itinerary on the target date.
func (c *ReasoningClient) ValidateWeather(ctx context.Context, itinerary types.Itinerary, tripDate time.Time) (*types.WeatherVerdict, error) {
	req := weatherRequest{
		Itinerary: itinerary,
		TripDate:  tripDate.Format("2006-01-02"),
	}

	var verdict types.WeatherVerdict
	if err := c.post(ctx, "/v1/validate/weather", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// ValidateAlerts asks the engine for a civil/safety verdict covering the
// given locations over the lookback window.
func (c *ReasoningClient) ValidateAlerts(ctx context.Context, locations []string, lookbackDays int) (*types.SafetyVerdict, error) {
	req := alertsRequest{
		Locations:    locations,
		LookbackDays: lookbackDays,
	}

	var verdict types.SafetyVerdict
	if err := c.post(ctx, "/v1/validate/alerts", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// GenerateDeltaPlan asks the engine for a replacement itinerary given the
// trip's current plan and unacknowledged alerts. A nil proposal with nil
// error means the engine had no suggestion.
func (c *ReasoningClient) GenerateDeltaPlan(ctx context.Context, trip *types.TripMonitoringRecord, alerts []types.ActiveAlert) (*types.DeltaPlanProposal, error) {
	req := deltaPlanRequest{
		TripID:       trip.ID,
		Itinerary:    trip.Itinerary,
		WindowStart:  trip.Window.Start.Format("2006-01-02"),
		WindowEnd:    trip.Window.End.Format("2006-01-02"),
		ActiveAlerts: alerts,
	}

	var proposal types.DeltaPlanProposal
	if err := c.post(ctx, "/v1/delta-plan", req, &proposal); err != nil {
		return nil, err
	}
	if len(proposal.SuggestedItems) == 0 {
		// The engine answered but proposed nothing usable.
		return nil, nil
	}
	return &proposal, nil
}

// post executes one JSON request/response round trip with the per-call
// timeout applied on top of the caller's context.
func (c *ReasoningClient) post(ctx context.Context, path string, body any, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"marshaling engine request", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"building engine request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(types.ErrCodeEngineUnavailable,
			fmt.Sprintf("reasoning engine %s returned %d", path, resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeEngineUnavailable,
			"decoding reasoning engine response", err)
	}

	return nil
}
