package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RunCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), CheckMeta{Name: "a"}, 10*time.Millisecond, nil)
	m.RecordRun(context.Background(), CheckMeta{Name: "a"}, 10*time.Millisecond, nil)

	found := findMetric(collect(t, reader), "healthcheck.check.runs")
	if found == nil {
		t.Fatal("healthcheck.check.runs metric not found")
	}
	if got := sumValue(t, found); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestMetrics_FailureCounter(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), CheckMeta{Name: "ok"}, time.Millisecond, nil)
	m.RecordRun(context.Background(), CheckMeta{Name: "bad"}, time.Millisecond, errors.New("boom"))

	found := findMetric(collect(t, reader), "healthcheck.check.failures")
	if found == nil {
		t.Fatal("healthcheck.check.failures metric not found")
	}
	if got := sumValue(t, found); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
}

func TestMetrics_DurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRun(context.Background(), CheckMeta{Name: "slow"}, 250*time.Millisecond, nil)

	found := findMetric(collect(t, reader), "healthcheck.check.duration_ms")
	if found == nil {
		t.Fatal("healthcheck.check.duration_ms metric not found")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
	}
	if hist.DataPoints[0].Sum != 250 {
		t.Errorf("sum = %v, want 250", hist.DataPoints[0].Sum)
	}
}
