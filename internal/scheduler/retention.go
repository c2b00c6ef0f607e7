package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/gzip"

	"tripguardian/internal/types"
)

// ArchiveStore persists trimmed monitoring history to cold storage.
type ArchiveStore interface {
	InsertArchive(ctx context.Context, tripID string, from, to time.Time, checkCount int, payload []byte) error
}

// RetentionService caps the embedded history arrays on a trip record so the
// document cannot grow without bound over a long trip. Trimmed checks are
// gzip-compressed JSONL and moved to the archive table; acknowledged alerts
// past the cap are dropped.
type RetentionService struct {
	archive   ArchiveStore
	logger    *slog.Logger
	maxChecks int
	maxAlerts int
}

const (
	defaultMaxChecks       = 200
	defaultMaxAlertHistory = 100
)

// NewRetentionService creates a retention service. maxChecks <= 0 selects
// the default cap.
func NewRetentionService(archive ArchiveStore, maxChecks int, logger *slog.Logger) *RetentionService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxChecks <= 0 {
		maxChecks = defaultMaxChecks
	}
	return &RetentionService{
		archive:   archive,
		logger:    logger,
		maxChecks: maxChecks,
		maxAlerts: defaultMaxAlertHistory,
	}
}

// Enforce trims the trip's history arrays in memory. The caller saves the
// record afterwards; a failed archive write leaves the check history intact
// so nothing is lost, and the next cycle retries.
func (r *RetentionService) Enforce(ctx context.Context, trip *types.TripMonitoringRecord) {
	if excess := len(trip.MonitoringHistory) - r.maxChecks; excess > 0 {
		trimmed := trip.MonitoringHistory[:excess]
		if err := r.archiveChecks(ctx, trip.ID, trimmed); err != nil {
			r.logger.ErrorContext(ctx, "history archive failed, keeping checks",
				"trip_id", trip.ID,
				"excess", excess,
				"error", err,
			)
		} else {
			trip.MonitoringHistory = trip.MonitoringHistory[excess:]
			r.logger.InfoContext(ctx, "monitoring history archived",
				"trip_id", trip.ID,
				"archived_checks", excess,
			)
		}
	}

	if excess := len(trip.AlertHistory) - r.maxAlerts; excess > 0 {
		trip.AlertHistory = trip.AlertHistory[excess:]
	}
}

// archiveChecks serializes the oldest checks as gzip JSONL and writes them
// to the archive store.
func (r *RetentionService) archiveChecks(ctx context.Context, tripID string, checks []types.MonitoringCheck) error {
	if r.archive == nil {
		return fmt.Errorf("no archive store configured")
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for i := range checks {
		if err := enc.Encode(&checks[i]); err != nil {
			return fmt.Errorf("encoding check %s: %w", checks[i].ID, err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compressing archive payload: %w", err)
	}

	from := checks[0].Timestamp
	to := checks[len(checks)-1].Timestamp
	if err := r.archive.InsertArchive(ctx, tripID, from, to, len(checks), buf.Bytes()); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}
