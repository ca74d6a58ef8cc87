// Package observability provides the metrics recorders and tracers used to
// instrument registration steps.
package observability

import (
	"context"
	"time"
)

// Recorder receives step timings and outcome counts.
type Recorder interface {
	// Observe records one execution of operation.
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	// Count increments the named result of operation, e.g. "created" or "reused".
	Count(ctx context.Context, operation, result string)
}

// Span is an in-flight traced operation.
type Span interface {
	End(err error)
}

// Tracer starts spans around operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, Span)
}

// NopRecorder discards everything.
type NopRecorder struct{}

// Observe implements Recorder.
func (NopRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Count implements Recorder.
func (NopRecorder) Count(context.Context, string, string) {}

// NopTracer starts spans that record nothing.
type NopTracer struct{}

// Start implements Tracer.
func (NopTracer) Start(ctx context.Context, _ string) (context.Context, Span) { return ctx, nopSpan{} }

type nopSpan struct{}

func (nopSpan) End(error) {}

// Multi fans out to several recorders.
type Multi []Recorder

// Observe implements Recorder.
func (m Multi) Observe(ctx context.Context, operation string, success bool, d time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, d)
	}
}

// Count implements Recorder.
func (m Multi) Count(ctx context.Context, operation, result string) {
	for _, r := range m {
		r.Count(ctx, operation, result)
	}
}
