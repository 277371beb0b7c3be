package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunContext(t *testing.T) {
	ctx := NewRunContext(context.Background(), "cli/query")
	run := RunFromContext(ctx)

	assert.NotEmpty(t, run.TraceID)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, "cli/query", run.Origin)

	next := RunFromContext(NewRunContext(ctx, "scheduler/prune"))
	assert.Equal(t, run.TraceID, next.TraceID, "trace id is inherited")
	assert.NotEqual(t, run.RunID, next.RunID)
	assert.Equal(t, "scheduler/prune", next.Origin)
}

func TestRunFromEmptyContext(t *testing.T) {
	assert.Equal(t, Run{}, RunFromContext(context.Background()))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := NewRunContext(WithTraceID(context.Background(), "t-1"), "cli/learn")
	func() { zl := LoggerFromContext(ctx, base); zl.Info().Msg("hello") }()

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"t-1"`)
	assert.Contains(t, out, `"run_id":"`)
	assert.Contains(t, out, `"origin":"cli/learn"`)

	buf.Reset()
	func() { zl := LoggerFromContext(context.Background(), base); zl.Info().Msg("bare") }()
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestSetupValidation(t *testing.T) {
	_, err := Setup(Options{})
	assert.Error(t, err)

	_, err = Setup(Options{ServiceName: "recall-test", SampleRatio: 1.5})
	assert.Error(t, err)
}

func TestStartSpanSetsTraceID(t *testing.T) {
	shutdown, err := Setup(Options{ServiceName: "recall-test", ServiceVersion: "test", SampleRatio: 1})
	require.NoError(t, err)
	defer shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "test", "op")
	defer span.End()

	require.True(t, span.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(ctx))

	Fail(span, nil)
	Fail(span, errors.New("boom"))
}
