// Package observe provides the meter's OpenTelemetry metrics.
//
// Instruments are created through the OpenTelemetry Metrics API; [InitProvider]
// wires them to a Prometheus exporter for the /metrics endpoint. Tests should
// use [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all meter metrics.
const meterName = "github.com/oszuidwest/zwfm-micmeter"

// Capture attempt outcomes.
const (
	OutcomeGranted     = "granted"
	OutcomeDenied      = "denied"
	OutcomeError       = "error"
	OutcomeUnsupported = "unsupported"
)

// Metrics holds all metric instruments. The OTel types are safe for
// concurrent use.
type Metrics struct {
	// CaptureAttempts counts capture requests by outcome. Use with attribute:
	//   attribute.String("outcome", ...)
	CaptureAttempts metric.Int64Counter

	// CaptureActive is 1 while a capture session is live.
	CaptureActive metric.Int64UpDownCounter

	// MeterFrames counts rendered meter frames.
	MeterFrames metric.Int64Counter

	// MeterLevel records the rendered bar fill in percent.
	MeterLevel metric.Float64Histogram
}

// levelBuckets are bar fill boundaries in percent.
var levelBuckets = []float64{
	1, 5, 10, 25, 50, 75, 90, 99, 100,
}

// NewMetrics creates all instruments using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CaptureAttempts, err = m.Int64Counter("micmeter.capture.attempts",
		metric.WithDescription("Microphone capture requests by outcome."),
	); err != nil {
		return nil, err
	}
	if met.CaptureActive, err = m.Int64UpDownCounter("micmeter.capture.active",
		metric.WithDescription("Live capture sessions."),
	); err != nil {
		return nil, err
	}
	if met.MeterFrames, err = m.Int64Counter("micmeter.meter.frames",
		metric.WithDescription("Meter frames rendered."),
	); err != nil {
		return nil, err
	}
	if met.MeterLevel, err = m.Float64Histogram("micmeter.meter.level",
		metric.WithDescription("Rendered meter bar fill."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(levelBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Discard returns instruments that record nothing.
func Discard() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// RecordCaptureAttempt increments the attempt counter for outcome.
func (m *Metrics) RecordCaptureAttempt(ctx context.Context, outcome string) {
	m.CaptureAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordFrame records one rendered meter frame at pct percent.
func (m *Metrics) RecordFrame(ctx context.Context, pct float64) {
	m.MeterFrames.Add(ctx, 1)
	m.MeterLevel.Record(ctx, pct)
}
