// Package telemetry emits guardian worker metrics to CloudWatch.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"tripguardian/internal/scheduler"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metric names emitted by the worker.
const (
	MetricCycleDuration  = "MonitoringCycleDuration"
	MetricTripsProcessed = "TripsProcessed"
	MetricTripsFailed    = "TripsFailed"
	MetricTripsCompleted = "TripsCompleted"
	MetricAlertsDetected = "AlertsDetected"
	MetricCyclesSkipped  = "MonitoringCyclesSkipped"
)

// Compile-time assertion that CloudWatchMetrics satisfies the worker's
// metrics contract.
var _ scheduler.Metrics = (*CloudWatchMetrics)(nil)

// CloudWatchMetrics publishes per-cycle monitoring metrics to CloudWatch.
// Emission is best-effort; failures are logged and never propagate into the
// monitoring cycle.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a metrics publisher for the given namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordCycle emits the cycle summary as one PutMetricData batch.
func (m *CloudWatchMetrics) RecordCycle(ctx context.Context, result scheduler.CycleResult) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricCycleDuration),
				Value:      aws.Float64(float64(result.Duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
			},
			{
				MetricName: aws.String(MetricTripsProcessed),
				Value:      aws.Float64(float64(result.Processed)),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String(MetricTripsFailed),
				Value:      aws.Float64(float64(result.Failed)),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String(MetricTripsCompleted),
				Value:      aws.Float64(float64(result.Completed)),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String(MetricAlertsDetected),
				Value:      aws.Float64(float64(result.AlertsFound)),
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to record cycle metrics",
			"error", err,
		)
	}
}

// RecordCycleSkipped emits a counter for wake-ups skipped because the
// previous cycle was still in flight. A sustained nonzero rate means the
// cycle duration exceeds the wake interval.
func (m *CloudWatchMetrics) RecordCycleSkipped(ctx context.Context) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricCyclesSkipped),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to record cycle skip metric",
			"error", err,
		)
	}
}
