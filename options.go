package beeq

import (
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Default values applied by Options when fields are left at their zero value.
const (
	// DefaultPrefix namespaces every Redis key the queue touches.
	DefaultPrefix = "bq"

	// DefaultPollInterval bounds each blocking dequeue attempt so the
	// dispatch loop can notice context cancellation between attempts.
	DefaultPollInterval = 1 * time.Second
)

// Options configures a Queue.
type Options struct {
	// Prefix is the leading segment of every Redis key for this queue.
	// Default: "bq".
	Prefix string

	// PollInterval is the timeout for each blocking BRPOPLPUSH attempt.
	// A dequeue attempt that times out simply re-checks the context and
	// blocks again, so the value trades shutdown latency against Redis
	// round trips. Default: 1s.
	PollInterval time.Duration

	// RemoveOnSuccess purges a job's record when it succeeds instead of
	// retaining it in the jobs hash and the succeeded set.
	// Default: false (retain).
	RemoveOnSuccess bool

	// RemoveOnFailure purges a job's record when it fails instead of
	// retaining it in the jobs hash and the failed set.
	// Default: false (retain).
	RemoveOnFailure bool

	// Logger is the structured logger for dispatch-loop diagnostics.
	// If nil, a JSON handler writing to stdout is used.
	Logger *slog.Logger

	// Tracer enables span creation around admission and job dispatch.
	// If nil, tracing is disabled.
	Tracer trace.Tracer

	// Meter enables the completion counter and duration histogram.
	// If nil, metrics are disabled.
	Meter metric.Meter
}

// withDefaults returns a copy of o with zero-value fields replaced by
// defaults.
func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return o
}
