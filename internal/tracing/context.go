package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	runIDKey
	originKey
)

// Run identifies one unit of work against the graph: a CLI command or a
// scheduled maintenance job.
type Run struct {
	TraceID string
	RunID   string
	Origin  string
}

// NewRunContext starts a run with a fresh run ID. An existing trace ID is kept.
func NewRunContext(ctx context.Context, origin string) context.Context {
	if TraceID(ctx) == "" {
		ctx = WithTraceID(ctx, uuid.NewString())
	}
	ctx = context.WithValue(ctx, runIDKey, uuid.NewString())
	if origin != "" {
		ctx = context.WithValue(ctx, originKey, origin)
	}
	return ctx
}

// WithTraceID overrides the trace ID carried by ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceID(ctx context.Context) string {
	return stringValue(ctx, traceIDKey)
}

func RunFromContext(ctx context.Context) Run {
	return Run{
		TraceID: stringValue(ctx, traceIDKey),
		RunID:   stringValue(ctx, runIDKey),
		Origin:  stringValue(ctx, originKey),
	}
}

// LoggerFromContext returns base annotated with the run carried by ctx.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	run := RunFromContext(ctx)
	if run == (Run{}) {
		return base
	}
	c := base.With()
	if run.TraceID != "" {
		c = c.Str("trace_id", run.TraceID)
	}
	if run.RunID != "" {
		c = c.Str("run_id", run.RunID)
	}
	if run.Origin != "" {
		c = c.Str("origin", run.Origin)
	}
	return c.Logger()
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
