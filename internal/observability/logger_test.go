package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sumatoshi-tech/gffstream/internal/observability"
)

func jsonLogger(buf *bytes.Buffer, cfg observability.Config) *slog.Logger {
	cfg.LogJSON = true
	cfg.LogOutput = buf

	return observability.NewLogger(cfg)
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "window")
	defer span.End()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeStream
	cfg.Environment = "dev"
	cfg.ServiceVersion = "1.2.3"

	jsonLogger(&buf, cfg).InfoContext(ctx, "window applied", "fresh", 3)

	record := decodeRecord(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["span_id"])
	assert.Equal(t, "gffstream", record["service"])
	assert.Equal(t, "stream", record["mode"])
	assert.Equal(t, "dev", record["env"])
	assert.Equal(t, "1.2.3", record["version"])
	assert.InDelta(t, 3, record["fresh"], 0)
}

func TestTracingHandler_NoSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	jsonLogger(&buf, observability.DefaultConfig()).Info("no span")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "env")
}

func TestTracingHandler_GroupKeepsServiceAtTop(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	jsonLogger(&buf, observability.DefaultConfig()).WithGroup("session").Info("reset", "region", "chr1")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "gffstream", record["service"])
	assert.Equal(t, map[string]any{"region": "chr1"}, record["session"])
}

func TestTracingHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	jsonLogger(&buf, cfg).Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := observability.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = observability.ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = observability.ParseLevel("loud")
	require.Error(t, err)
}
