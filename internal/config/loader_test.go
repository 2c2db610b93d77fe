package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gffstream/internal/config"
)

const sampleYAML = `
stream:
  window_size: 50000
  max_features: 100
  pace_interval: 250ms
cache:
  enabled: false
observability:
  log_level: debug
  diagnostics_addr: 127.0.0.1:9464
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gffstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(50_000), cfg.Stream.WindowSize)
	assert.Equal(t, 100, cfg.Stream.MaxFeatures)
	assert.Equal(t, 250*time.Millisecond, cfg.Stream.PaceInterval)
	assert.Equal(t, config.DefaultMaxEmptyWindows, cfg.Stream.MaxEmptyWindows)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, config.DefaultCacheMaxSize, cfg.Cache.MaxSize)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "127.0.0.1:9464", cfg.Observability.DiagnosticsAddr)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "stream:\n  window_size: -5\n"))
	require.ErrorIs(t, err, config.ErrInvalidWindowSize)

	_, err = config.LoadConfig(writeConfig(t, "stream: [unbalanced\n"))
	require.Error(t, err)
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GFFSTREAM_STREAM_MAX_WINDOWS", "7")
	t.Setenv("GFFSTREAM_CACHE_MAX_SIZE", "1MiB")
	t.Setenv("GFFSTREAM_OBSERVABILITY_LOG_JSON", "true")

	cfg, err := config.LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Stream.MaxWindows)
	assert.Equal(t, "1MiB", cfg.Cache.MaxSize)
	assert.True(t, cfg.Observability.LogJSON)
}
