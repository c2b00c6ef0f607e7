package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tripguardian/internal/types"
)

// TripMonitorRepository provides data access for the trip_monitors table.
// It implements the three operations the monitoring core needs from the
// persistence store: read-by-filter for due trips, read-by-id, and an
// atomic whole-record upsert.
type TripMonitorRepository struct {
	db DBTX
}

// NewTripMonitorRepository creates a repository backed by the given
// connection (pool or transaction).
func NewTripMonitorRepository(db DBTX) *TripMonitorRepository {
	return &TripMonitorRepository{db: db}
}

// tripColumns is the standard column set for trip monitor queries. The
// column order must match scanTripMonitor.
const tripColumns = `id, itinerary, window_start, window_end,
	monitoring_status, monitoring_interval_seconds,
	next_scheduled_check, last_monitoring_check,
	monitoring_started_at, monitoring_ended_at,
	monitoring_history, active_alerts, alert_history,
	delta_plans, current_delta_plan_id, notifications,
	notification_preferences,
	total_alerts_detected, total_delta_plans_generated, monitoring_checks_count,
	created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTripMonitor scans one row into a TripMonitoringRecord. Column order
// must match tripColumns.
func scanTripMonitor(row rowScanner) (*types.TripMonitoringRecord, error) {
	var (
		rec             types.TripMonitoringRecord
		intervalSeconds int64
		currentPlanID   *string
	)

	err := row.Scan(
		&rec.ID,
		&rec.Itinerary,
		&rec.Window.Start,
		&rec.Window.End,
		&rec.MonitoringStatus,
		&intervalSeconds,
		&rec.NextScheduledCheck,
		&rec.LastMonitoringCheck,
		&rec.MonitoringStartedAt,
		&rec.MonitoringEndedAt,
		&rec.MonitoringHistory,
		&rec.ActiveAlerts,
		&rec.AlertHistory,
		&rec.DeltaPlans,
		&currentPlanID,
		&rec.Notifications,
		&rec.NotificationPreferences,
		&rec.TotalAlertsDetected,
		&rec.TotalDeltaPlansGenerated,
		&rec.MonitoringChecksCount,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.MonitoringInterval = time.Duration(intervalSeconds) * time.Second
	if currentPlanID != nil {
		rec.CurrentDeltaPlanID = *currentPlanID
	}

	return &rec, nil
}

// GetByID fetches a single trip monitoring record. Returns a typed
// not-found error when no row exists.
func (r *TripMonitorRepository) GetByID(ctx context.Context, id string) (*types.TripMonitoringRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM trip_monitors WHERE id = $1`, tripColumns)

	rec, err := scanTripMonitor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundTrip,
				fmt.Sprintf("trip monitoring record %s not found", id), err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB,
			"fetching trip monitoring record", err)
	}
	return rec, nil
}

// FindDue returns trips eligible for the next monitoring cycle: status
// ACTIVE_MONITORING with next_scheduled_check at or before now, or with no
// scheduled check at all (absent means due). Results are ordered by due
// time ascending with unscheduled trips first, so the most overdue trips
// are processed before the batch limit cuts off.
func (r *TripMonitorRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*types.TripMonitoringRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM trip_monitors
		WHERE monitoring_status = $1
		  AND (next_scheduled_check IS NULL OR next_scheduled_check <= $2)
		ORDER BY next_scheduled_check ASC NULLS FIRST
		LIMIT $3`, tripColumns)

	rows, err := r.db.Query(ctx, query, types.StatusActiveMonitoring, now, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "querying due trips", err)
	}
	defer rows.Close()

	var due []*types.TripMonitoringRecord
	for rows.Next() {
		rec, err := scanTripMonitor(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning due trip row", err)
		}
		due = append(due, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating due trips", err)
	}

	return due, nil
}

// Save performs a whole-record upsert. The single-statement write is the
// atomicity boundary the scheduler's concurrency model relies on.
func (r *TripMonitorRepository) Save(ctx context.Context, rec *types.TripMonitoringRecord) error {
	query := `INSERT INTO trip_monitors (
			id, itinerary, window_start, window_end,
			monitoring_status, monitoring_interval_seconds,
			next_scheduled_check, last_monitoring_check,
			monitoring_started_at, monitoring_ended_at,
			monitoring_history, active_alerts, alert_history,
			delta_plans, current_delta_plan_id, notifications,
			notification_preferences,
			total_alerts_detected, total_delta_plans_generated, monitoring_checks_count,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
		ON CONFLICT (id) DO UPDATE SET
			itinerary = EXCLUDED.itinerary,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			monitoring_status = EXCLUDED.monitoring_status,
			monitoring_interval_seconds = EXCLUDED.monitoring_interval_seconds,
			next_scheduled_check = EXCLUDED.next_scheduled_check,
			last_monitoring_check = EXCLUDED.last_monitoring_check,
			monitoring_started_at = EXCLUDED.monitoring_started_at,
			monitoring_ended_at = EXCLUDED.monitoring_ended_at,
			monitoring_history = EXCLUDED.monitoring_history,
			active_alerts = EXCLUDED.active_alerts,
			alert_history = EXCLUDED.alert_history,
			delta_plans = EXCLUDED.delta_plans,
			current_delta_plan_id = EXCLUDED.current_delta_plan_id,
			notifications = EXCLUDED.notifications,
			notification_preferences = EXCLUDED.notification_preferences,
			total_alerts_detected = EXCLUDED.total_alerts_detected,
			total_delta_plans_generated = EXCLUDED.total_delta_plans_generated,
			monitoring_checks_count = EXCLUDED.monitoring_checks_count,
			updated_at = EXCLUDED.updated_at`

	var currentPlanID *string
	if rec.CurrentDeltaPlanID != "" {
		currentPlanID = &rec.CurrentDeltaPlanID
	}

	rec.UpdatedAt = time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.Itinerary,
		rec.Window.Start,
		rec.Window.End,
		rec.MonitoringStatus,
		int64(rec.MonitoringInterval/time.Second),
		rec.NextScheduledCheck,
		rec.LastMonitoringCheck,
		rec.MonitoringStartedAt,
		rec.MonitoringEndedAt,
		rec.MonitoringHistory,
		rec.ActiveAlerts,
		rec.AlertHistory,
		rec.DeltaPlans,
		currentPlanID,
		rec.Notifications,
		rec.NotificationPreferences,
		rec.TotalAlertsDetected,
		rec.TotalDeltaPlansGenerated,
		rec.MonitoringChecksCount,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "saving trip monitoring record", err)
	}

	return nil
}
