package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
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

func TestRecordCaptureAttempt(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCaptureAttempt(ctx, OutcomeDenied)
	m.RecordCaptureAttempt(ctx, OutcomeGranted)
	m.RecordCaptureAttempt(ctx, OutcomeGranted)

	met := findMetric(collect(t, reader), "micmeter.capture.attempts")
	if met == nil {
		t.Fatal("metric micmeter.capture.attempts not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", met.Data)
	}

	got := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		got[v.AsString()] = dp.Value
	}
	if got[OutcomeGranted] != 2 || got[OutcomeDenied] != 1 {
		t.Errorf("attempts = %v", got)
	}
}

func TestRecordFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, 0)
	m.RecordFrame(ctx, 100)

	rm := collect(t, reader)

	frames := findMetric(rm, "micmeter.meter.frames")
	if frames == nil {
		t.Fatal("metric micmeter.meter.frames not found")
	}
	if sum := frames.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 2 {
		t.Errorf("frames = %d, want 2", sum.DataPoints[0].Value)
	}

	level := findMetric(rm, "micmeter.meter.level")
	if level == nil {
		t.Fatal("metric micmeter.meter.level not found")
	}
	hist, ok := level.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", level.Data)
	}
	dp := hist.DataPoints[0]
	if dp.Count != 2 || dp.Sum != 100 {
		t.Errorf("level count=%d sum=%v, want 2 and 100", dp.Count, dp.Sum)
	}
}

func TestCaptureActive(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.CaptureActive.Add(ctx, 1)
	m.CaptureActive.Add(ctx, -1)
	m.CaptureActive.Add(ctx, 1)

	met := findMetric(collect(t, reader), "micmeter.capture.active")
	if met == nil {
		t.Fatal("metric micmeter.capture.active not found")
	}
	if sum := met.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 1 {
		t.Errorf("active = %d, want 1", sum.DataPoints[0].Value)
	}
}

func TestDiscard(t *testing.T) {
	m := Discard()
	m.RecordCaptureAttempt(context.Background(), OutcomeError)
	m.RecordFrame(context.Background(), 50)
}

func TestProviderHandler(t *testing.T) {
	ctx := context.Background()
	p, err := InitProvider(ctx, ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	m, err := NewMetrics(p.MeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordCaptureAttempt(ctx, OutcomeGranted)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "micmeter_capture_attempts") {
		t.Errorf("exposition missing capture attempts:\n%s", body)
	}
}
