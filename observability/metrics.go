// Package observability records pipeline execution metrics using the
// global OpenTelemetry MeterProvider. If no MeterProvider is configured,
// noop instruments are used and recording becomes a pass-through.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for pipeline metrics.
const meterName = "github.com/iam-hyo/2601-VPI-V3--shorts-pipline"

// Metrics bundles the pipeline instruments. A nil *Metrics is valid and
// records nothing.
//
// Instruments:
//   - pipeline.stage.duration (Float64Histogram): stage execution time in
//     seconds, with attributes: region, stage, status
//   - pipeline.stage.executions (Int64Counter): total stage executions
//   - pipeline.retry.attempts (Int64Counter): retried attempts per label
type Metrics struct {
	stageDuration   metric.Float64Histogram
	stageExecutions metric.Int64Counter
	retryAttempts   metric.Int64Counter
}

// New creates Metrics on the global meter.
func New() *Metrics {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter creates Metrics using the provided meter. This variant
// allows injecting a specific MeterProvider for testing.
func NewWithMeter(meter metric.Meter) *Metrics {
	duration, dErr := meter.Float64Histogram(
		"pipeline.stage.duration",
		metric.WithDescription("Duration of stage execution in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	executions, eErr := meter.Int64Counter(
		"pipeline.stage.executions",
		metric.WithDescription("Total number of stage executions"),
		metric.WithUnit("{execution}"),
	)
	_ = eErr // noop fallback guaranteed by OTel API contract

	retries, rErr := meter.Int64Counter(
		"pipeline.retry.attempts",
		metric.WithDescription("Total number of retried attempts"),
		metric.WithUnit("{attempt}"),
	)
	_ = rErr // noop fallback guaranteed by OTel API contract

	return &Metrics{
		stageDuration:   duration,
		stageExecutions: executions,
		retryAttempts:   retries,
	}
}

// RecordStage records one stage execution.
func (m *Metrics) RecordStage(ctx context.Context, region, stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("region", region),
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
	m.stageDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.stageExecutions.Add(ctx, 1, attrs)
}

// RecordRetry records one retried attempt for label.
func (m *Metrics) RecordRetry(ctx context.Context, label string) {
	if m == nil {
		return
	}
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("label", label)))
}
