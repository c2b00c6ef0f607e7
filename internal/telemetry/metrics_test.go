package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"tripguardian/internal/scheduler"
)

// mockCloudWatchClient captures PutMetricData calls.
type mockCloudWatchClient struct {
	calls []*cloudwatch.PutMetricDataInput
	err   error
}

func (m *mockCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestRecordCycle_EmitsOneBatch(t *testing.T) {
	mock := &mockCloudWatchClient{}
	metrics := NewCloudWatchMetrics(mock, "TripGuardian/Monitor", quietLogger())

	metrics.RecordCycle(context.Background(), scheduler.CycleResult{
		Processed:   7,
		Failed:      1,
		Completed:   2,
		AlertsFound: 3,
		Duration:    1500 * time.Millisecond,
	})

	if len(mock.calls) != 1 {
		t.Fatalf("PutMetricData called %d times, want 1", len(mock.calls))
	}
	input := mock.calls[0]
	if got := *input.Namespace; got != "TripGuardian/Monitor" {
		t.Errorf("namespace = %s, want TripGuardian/Monitor", got)
	}
	if len(input.MetricData) != 5 {
		t.Fatalf("batch has %d datums, want 5", len(input.MetricData))
	}

	values := make(map[string]float64, len(input.MetricData))
	for _, datum := range input.MetricData {
		values[*datum.MetricName] = *datum.Value
	}
	if values[MetricCycleDuration] != 1500 {
		t.Errorf("%s = %v, want 1500", MetricCycleDuration, values[MetricCycleDuration])
	}
	if values[MetricTripsProcessed] != 7 {
		t.Errorf("%s = %v, want 7", MetricTripsProcessed, values[MetricTripsProcessed])
	}
	if values[MetricTripsFailed] != 1 {
		t.Errorf("%s = %v, want 1", MetricTripsFailed, values[MetricTripsFailed])
	}
	if values[MetricTripsCompleted] != 2 {
		t.Errorf("%s = %v, want 2", MetricTripsCompleted, values[MetricTripsCompleted])
	}
	if values[MetricAlertsDetected] != 3 {
		t.Errorf("%s = %v, want 3", MetricAlertsDetected, values[MetricAlertsDetected])
	}
}

func TestRecordCycleSkipped(t *testing.T) {
	mock := &mockCloudWatchClient{}
	metrics := NewCloudWatchMetrics(mock, "TripGuardian/Monitor", quietLogger())

	metrics.RecordCycleSkipped(context.Background())

	if len(mock.calls) != 1 {
		t.Fatalf("PutMetricData called %d times, want 1", len(mock.calls))
	}
	data := mock.calls[0].MetricData
	if len(data) != 1 || *data[0].MetricName != MetricCyclesSkipped {
		t.Fatalf("unexpected batch: %+v", data)
	}
	if *data[0].Value != 1 {
		t.Errorf("skip counter = %v, want 1", *data[0].Value)
	}
}

func TestRecordCycle_FailureDoesNotPanic(t *testing.T) {
	mock := &mockCloudWatchClient{err: errors.New("access denied")}
	metrics := NewCloudWatchMetrics(mock, "TripGuardian/Monitor", quietLogger())

	// Emission is best-effort: failures must be swallowed.
	metrics.RecordCycle(context.Background(), scheduler.CycleResult{Processed: 1})
	metrics.RecordCycleSkipped(context.Background())

	if len(mock.calls) != 2 {
		t.Errorf("PutMetricData called %d times, want 2", len(mock.calls))
	}
}
