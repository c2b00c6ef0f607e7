// deltaplan.go implements the delta-plan generator: a best-effort
// augmentation that asks the Reasoning Engine for a replacement itinerary
// when a check fails. Generation failure leaves the trip in ALERT_DETECTED;
// it is never a blocking dependency of the check cycle.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tripguardian/internal/types"
)

// DeltaPlanGenerator invokes the engine and merges accepted proposals into
// the trip record.
type DeltaPlanGenerator struct {
	engine ReasoningEngine
	logger *slog.Logger
}

// NewDeltaPlanGenerator creates a DeltaPlanGenerator.
func NewDeltaPlanGenerator(engine ReasoningEngine, logger *slog.Logger) *DeltaPlanGenerator {
	return &DeltaPlanGenerator{engine: engine, logger: logger}
}

// Generate asks the engine for a replacement itinerary given the trip's
// unacknowledged alerts, appends the resulting DeltaPlan, and marks it
// current. Returns nil (without error semantics) when:
//   - a plan is already awaiting a decision (at most one outstanding), or
//   - the engine call fails or returns no usable proposal.
func (g *DeltaPlanGenerator) Generate(ctx context.Context, trip *types.TripMonitoringRecord, now time.Time) *types.DeltaPlan {
	if trip.CurrentDeltaPlanID != "" {
		g.logger.DebugContext(ctx, "delta plan already pending, skipping generation",
			"trip_id", trip.ID,
			"plan_id", trip.CurrentDeltaPlanID,
		)
		return nil
	}

	alerts := trip.UnacknowledgedAlerts()
	proposal, err := g.engine.GenerateDeltaPlan(ctx, trip, alerts)
	if err != nil {
		g.logger.WarnContext(ctx, "delta plan generation failed",
			"trip_id", trip.ID,
			"error", err,
		)
		return nil
	}
	if proposal == nil || len(proposal.SuggestedItems) == 0 {
		g.logger.InfoContext(ctx, "engine returned no delta plan",
			"trip_id", trip.ID,
		)
		return nil
	}

	original := proposal.OriginalItems
	if len(original) == 0 {
		original = append([]types.ItineraryItem(nil), trip.Itinerary...)
	}

	plan := types.DeltaPlan{
		ID:                uuid.New().String(),
		GeneratedAt:       now,
		Reason:            proposal.Reason,
		TriggeringAlertID: worstAlertID(alerts),
		OriginalItems:     original,
		SuggestedItems:    proposal.SuggestedItems,
		AffectedDates:     proposal.AffectedDates,
		ImpactSummary:     proposal.ImpactSummary,
		AIExplanation:     proposal.Explanation,
	}

	trip.DeltaPlans = append(trip.DeltaPlans, plan)
	trip.TotalDeltaPlansGenerated++
	MarkDeltaPlanGenerated(trip, plan.ID)

	g.logger.InfoContext(ctx, "delta plan generated",
		"trip_id", trip.ID,
		"plan_id", plan.ID,
		"suggested_items", len(plan.SuggestedItems),
	)

	return trip.FindDeltaPlan(plan.ID)
}

// worstAlertID returns the ID of the most severe alert, preferring earlier
// detection on ties. Empty when no alerts are given.
func worstAlertID(alerts []types.ActiveAlert) string {
	var worst *types.ActiveAlert
	for i := range alerts {
		if worst == nil || alerts[i].Severity.Rank() > worst.Severity.Rank() {
			worst = &alerts[i]
		}
	}
	if worst == nil {
		return ""
	}
	return worst.ID
}
