package config_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/gffstream/internal/config"
	"github.com/Sumatoshi-tech/gffstream/internal/observability"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

func TestPumpConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Stream.PaceInterval = time.Second
	cfg.Stream.PaceBurst = 3
	cfg.Stream.MaxWindows = 9

	assert.Equal(t, stream.PumpConfig{Interval: time.Second, Burst: 3, MaxWindows: 9}, cfg.PumpConfig())
}

func TestDriverOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Stream.MaxEmptyWindows = 1

	calls := 0
	q := stream.RangeQuerierFunc(func(_ context.Context, _ stream.RangeRequest) (string, error) {
		calls++

		return "", nil
	})

	d, err := stream.NewDriver(q, stream.Params{Region: "chr1"}, cfg.DriverOptions()...)
	assert.NoError(t, err)
	assert.NoError(t, d.FetchNextWindow(context.Background()))
	assert.True(t, d.Snapshot().Exhausted)
	assert.Equal(t, 1, calls)
}

func TestObservabilityConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Observability.LogLevel = "debug"
	cfg.Observability.OTLPHeaders = "x-team=genomics"
	cfg.Observability.DiagnosticsAddr = ":9464"
	cfg.Observability.Environment = "staging"

	base := observability.DefaultConfig()
	base.ServiceVersion = "1.0.0"

	got := cfg.ObservabilityConfig(base)

	assert.Equal(t, slog.LevelDebug, got.LogLevel)
	assert.Equal(t, map[string]string{"x-team": "genomics"}, got.OTLPHeaders)
	assert.True(t, got.Prometheus)
	assert.Equal(t, "staging", got.Environment)
	assert.Equal(t, "1.0.0", got.ServiceVersion)
	assert.Equal(t, config.DefaultShutdownTimeout, got.ShutdownTimeoutSec)
}
