package beeq

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// telemetry holds the OpenTelemetry instruments for a queue. Instruments are
// created once at queue construction and reused for every job. A nil
// *telemetry is valid and turns every method into a no-op, so the hot paths
// never branch on configuration.
type telemetry struct {
	tracer trace.Tracer

	// completedCounter increments once per terminal transition,
	// attributed by queue name and final status.
	completedCounter metric.Int64Counter

	// durationHistogram records handler execution time in milliseconds.
	durationHistogram metric.Float64Histogram
}

// newTelemetry builds instruments from the configured tracer and meter.
// Returns nil when neither is configured.
func newTelemetry(tracer trace.Tracer, meter metric.Meter) (*telemetry, error) {
	if tracer == nil && meter == nil {
		return nil, nil
	}

	t := &telemetry{tracer: tracer}
	if meter == nil {
		return t, nil
	}

	var err error
	t.completedCounter, err = meter.Int64Counter(
		"queue.jobs.completed",
		metric.WithDescription("Number of jobs that reached a terminal state"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create completed counter: %w", err)
	}

	t.durationHistogram, err = meter.Float64Histogram(
		"queue.job.duration",
		metric.WithDescription("Handler execution time in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return t, nil
}

// startSpan begins a span when tracing is configured. The returned span is
// nil otherwise; endSpan tolerates that.
func (t *telemetry) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan closes a span, recording err as the span status when set.
func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// recordCompletion captures the metrics for one terminal transition.
func (t *telemetry) recordCompletion(ctx context.Context, queueName string, status Status, d time.Duration) {
	if t == nil {
		return
	}

	opts := metric.WithAttributes(
		attribute.String("queue.name", queueName),
		attribute.String("job.status", string(status)),
	)
	if t.completedCounter != nil {
		t.completedCounter.Add(ctx, 1, opts)
	}
	if t.durationHistogram != nil {
		t.durationHistogram.Record(ctx, float64(d.Milliseconds()), opts)
	}
}
