package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records run metrics for health checks.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRun records a check run with duration and error status.
	RecordRun(ctx context.Context, meta CheckMeta, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	runCount     metric.Int64Counter
	failureCount metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the check instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	runCount, err := meter.Int64Counter(
		"healthcheck.check.runs",
		metric.WithDescription("Total number of health check runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	failureCount, err := meter.Int64Counter(
		"healthcheck.check.failures",
		metric.WithDescription("Total number of failed health check runs"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"healthcheck.check.duration_ms",
		metric.WithDescription("Health check run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		runCount:     runCount,
		failureCount: failureCount,
		durationHist: durationHist,
	}, nil
}

// RecordRun records metrics for a check run.
func (m *metricsImpl) RecordRun(ctx context.Context, meta CheckMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("check.name", meta.Name),
		attribute.Bool("check.critical", meta.Critical),
	)

	m.runCount.Add(ctx, 1, opt)
	if err != nil {
		m.failureCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordRun(context.Context, CheckMeta, time.Duration, error) {}
