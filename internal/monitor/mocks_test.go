package monitor

import (
	"context"
	"log/slog"
	"os"
	"time"

	"tripguardian/internal/types"
)

// ============================================================
// Mock Implementations
// ============================================================

// mockEngine is a scripted ReasoningEngine.
type mockEngine struct {
	weatherVerdict *types.WeatherVerdict
	weatherErr     error
	safetyVerdict  *types.SafetyVerdict
	safetyErr      error
	proposal       *types.DeltaPlanProposal
	proposalErr    error

	weatherCalls int
	alertCalls   int
	planCalls    int
}

func (m *mockEngine) ValidateWeather(_ context.Context, _ types.Itinerary, _ time.Time) (*types.WeatherVerdict, error) {
	m.weatherCalls++
	if m.weatherErr != nil {
		return nil, m.weatherErr
	}
	if m.weatherVerdict != nil {
		return m.weatherVerdict, nil
	}
	return &types.WeatherVerdict{Valid: true, Score: 90}, nil
}

func (m *mockEngine) ValidateAlerts(_ context.Context, _ []string, _ int) (*types.SafetyVerdict, error) {
	m.alertCalls++
	if m.safetyErr != nil {
		return nil, m.safetyErr
	}
	if m.safetyVerdict != nil {
		return m.safetyVerdict, nil
	}
	return &types.SafetyVerdict{Safe: true}, nil
}

func (m *mockEngine) GenerateDeltaPlan(_ context.Context, _ *types.TripMonitoringRecord, _ []types.ActiveAlert) (*types.DeltaPlanProposal, error) {
	m.planCalls++
	if m.proposalErr != nil {
		return nil, m.proposalErr
	}
	return m.proposal, nil
}

// mockDispatcher records dispatched notifications per channel.
type mockDispatcher struct {
	dispatched []types.ChannelType
	err        error
}

func (m *mockDispatcher) Dispatch(_ context.Context, _ string, _ types.NotificationRecord, channel types.ChannelType) error {
	m.dispatched = append(m.dispatched, channel)
	return m.err
}

// mockTripRepo is an in-memory TripRepository.
type mockTripRepo struct {
	trips      map[string]*types.TripMonitoringRecord
	due        []*types.TripMonitoringRecord
	getErr     error
	saveErr    error
	findDueErr error
	saveCalls  int
}

func newMockTripRepo(trips ...*types.TripMonitoringRecord) *mockTripRepo {
	m := &mockTripRepo{trips: make(map[string]*types.TripMonitoringRecord)}
	for _, trip := range trips {
		m.trips[trip.ID] = trip
	}
	return m
}

func (m *mockTripRepo) GetByID(_ context.Context, id string) (*types.TripMonitoringRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.trips[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundTrip, "trip not found", nil)
	}
	return rec, nil
}

func (m *mockTripRepo) FindDue(_ context.Context, _ time.Time, limit int) ([]*types.TripMonitoringRecord, error) {
	if m.findDueErr != nil {
		return nil, m.findDueErr
	}
	if limit > 0 && len(m.due) > limit {
		return m.due[:limit], nil
	}
	return m.due, nil
}

func (m *mockTripRepo) Save(_ context.Context, rec *types.TripMonitoringRecord) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.trips[rec.ID] = rec
	return nil
}

// fixedClock returns a frozen instant for deterministic scheduling math.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ============================================================
// Fixtures
// ============================================================

var testT0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// galleTrip is the canonical fixture: a one-stop trip under active
// monitoring with a 4h interval.
func galleTrip() *types.TripMonitoringRecord {
	started := testT0
	next := testT0.Add(4 * time.Hour)
	return &types.TripMonitoringRecord{
		ID: "trip_galle",
		Itinerary: types.Itinerary{
			{Location: "Galle Fort", Time: "10:00"},
		},
		Window: types.TripWindow{
			Start: testT0.Add(-24 * time.Hour),
			End:   testT0.Add(5 * 24 * time.Hour),
		},
		MonitoringStatus:    types.StatusActiveMonitoring,
		MonitoringInterval:  4 * time.Hour,
		MonitoringStartedAt: &started,
		NextScheduledCheck:  &next,
		NotificationPreferences: types.NotificationPreferences{
			Push:           true,
			Email:          true,
			AlertThreshold: types.SeverityMedium,
		},
		CreatedAt: testT0.Add(-48 * time.Hour),
		UpdatedAt: testT0,
	}
}

func newTestService(engine *mockEngine, repo *mockTripRepo, dispatcher *mockDispatcher, now time.Time) *Service {
	return NewService(ServiceConfig{
		Repo:                 repo,
		Engine:               engine,
		Dispatcher:           dispatcher,
		Clock:                fixedClock{now: now},
		Logger:               discardLogger(),
		WeatherCheckEnabled:  true,
		AlertCheckEnabled:    true,
		DeltaPlansEnabled:    true,
		NotificationsEnabled: true,
		AlertLookbackDays:    7,
	})
}
