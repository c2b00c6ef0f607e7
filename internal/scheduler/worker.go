// Package scheduler implements the guardian worker: the periodic wake-up
// loop that finds trips due for re-validation, runs them through the
// monitoring pipeline one at a time, and re-arms their schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tripguardian/internal/types"
)

// TripSource abstracts the persistence operations the worker needs.
type TripSource interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]*types.TripMonitoringRecord, error)
	Save(ctx context.Context, rec *types.TripMonitoringRecord) error
}

// TripMonitor runs one monitoring pass on an in-memory record. A nil check
// means the trip was not checked (window ended, monitoring completed).
type TripMonitor interface {
	MonitorTrip(ctx context.Context, trip *types.TripMonitoringRecord) *types.MonitoringCheck
}

// Metrics receives per-cycle telemetry. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordCycle(ctx context.Context, result CycleResult)
	RecordCycleSkipped(ctx context.Context)
}

// CycleResult summarizes one worker cycle.
type CycleResult struct {
	Skipped     bool
	Processed   int
	Failed      int
	Completed   int // trips whose window ended during the cycle
	AlertsFound int
	Duration    time.Duration
}

// WorkerConfig holds the dependencies for the guardian worker.
type WorkerConfig struct {
	Source    TripSource
	Monitor   TripMonitor
	Retention *RetentionService // optional
	Metrics   Metrics           // optional
	Clock     types.Clock
	Logger    *slog.Logger

	WakeInterval time.Duration
	BatchSize    int
}

// Worker is the scheduled monitoring daemon. One instance runs per process;
// the inFlight guard makes overlapping wake-ups skip rather than stack.
type Worker struct {
	source    TripSource
	monitor   TripMonitor
	retention *RetentionService
	metrics   Metrics
	clock     types.Clock
	logger    *slog.Logger

	wakeInterval time.Duration
	batchSize    int

	inFlight atomic.Bool
}

const (
	defaultWakeInterval = time.Minute
	defaultBatchSize    = 25
)

// NewWorker creates a guardian worker with the given configuration.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	wake := cfg.WakeInterval
	if wake <= 0 {
		wake = defaultWakeInterval
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	return &Worker{
		source:       cfg.Source,
		monitor:      cfg.Monitor,
		retention:    cfg.Retention,
		metrics:      cfg.Metrics,
		clock:        clock,
		logger:       logger,
		wakeInterval: wake,
		batchSize:    batch,
	}
}

// Run starts the wake-up loop and blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "guardian worker started",
		"wake_interval", w.wakeInterval,
		"batch_size", w.batchSize,
	)

	ticker := time.NewTicker(w.wakeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "guardian worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunCycle(ctx); err != nil {
				w.logger.ErrorContext(ctx, "monitoring cycle failed",
					"error", err,
				)
			}
		}
	}
}

// RunCycle executes one monitoring cycle: select due trips, process each
// sequentially, re-arm its schedule, and save. If a previous cycle is still
// in flight the wake-up is skipped entirely rather than queued.
//
// A single trip's failure never aborts the cycle; the trip is re-armed and
// saved so the next cycle retries it.
func (w *Worker) RunCycle(ctx context.Context) (CycleResult, error) {
	if !w.inFlight.CompareAndSwap(false, true) {
		w.logger.WarnContext(ctx, "previous cycle still in flight, skipping wake-up")
		if w.metrics != nil {
			w.metrics.RecordCycleSkipped(ctx)
		}
		return CycleResult{Skipped: true}, nil
	}
	defer w.inFlight.Store(false)

	started := w.clock.Now()

	due, err := w.source.FindDue(ctx, started, w.batchSize)
	if err != nil {
		return CycleResult{}, fmt.Errorf("selecting due trips: %w", err)
	}
	if len(due) == 0 {
		return CycleResult{}, nil
	}

	w.logger.InfoContext(ctx, "monitoring cycle started",
		"due_trips", len(due),
	)

	var result CycleResult
	for _, trip := range due {
		check, checkErr := w.checkTrip(ctx, trip)

		// Re-arm regardless of the check outcome. A trip that stopped
		// scheduling itself would silently fall out of guardianship.
		w.rearm(trip, started)

		if w.retention != nil {
			w.retention.Enforce(ctx, trip)
		}

		if saveErr := w.source.Save(ctx, trip); saveErr != nil {
			result.Failed++
			w.logger.ErrorContext(ctx, "failed to save trip after check",
				"trip_id", trip.ID,
				"error", saveErr,
			)
			continue
		}

		switch {
		case checkErr != nil:
			result.Failed++
			w.logger.ErrorContext(ctx, "trip check failed",
				"trip_id", trip.ID,
				"error", checkErr,
			)
		case check == nil:
			result.Completed++
		default:
			result.Processed++
			result.AlertsFound += check.AlertsFound
		}
	}

	result.Duration = w.clock.Now().Sub(started)

	w.logger.InfoContext(ctx, "monitoring cycle complete",
		"processed", result.Processed,
		"failed", result.Failed,
		"completed", result.Completed,
		"alerts_found", result.AlertsFound,
		"duration", result.Duration,
	)

	if w.metrics != nil {
		w.metrics.RecordCycle(ctx, result)
	}

	return result, nil
}

// checkTrip runs the monitoring pipeline for one trip, converting panics
// into errors so a single bad record cannot take down the cycle.
func (w *Worker) checkTrip(ctx context.Context, trip *types.TripMonitoringRecord) (check *types.MonitoringCheck, err error) {
	defer func() {
		if r := recover(); r != nil {
			check = nil
			err = fmt.Errorf("monitoring pipeline panic: %v", r)
		}
	}()

	return w.monitor.MonitorTrip(ctx, trip), nil
}

// rearm schedules the trip's next check. Terminal and paused trips stay
// unscheduled.
func (w *Worker) rearm(trip *types.TripMonitoringRecord, now time.Time) {
	if trip.MonitoringStatus.IsTerminal() || trip.MonitoringStatus == types.StatusPaused {
		return
	}
	next := now.Add(types.ClampInterval(trip.MonitoringInterval))
	trip.NextScheduledCheck = &next
}
