// Package config loads gffstream settings from a YAML file, GFFSTREAM_*
// environment variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

// Defaults.
const (
	DefaultWindowSize      = stream.DefaultWindowSize
	DefaultMaxFeatures     = stream.DefaultMaxFeatures
	DefaultMaxEmptyWindows = stream.DefaultMaxEmptyWindows
	DefaultPaceInterval    = time.Duration(0)
	DefaultPaceBurst       = 1
	DefaultMaxWindows      = 0

	DefaultCacheEnabled = true
	DefaultCacheMaxSize = "64MB"

	DefaultLogLevel        = "info"
	DefaultLogJSON         = false
	DefaultOTLPEndpoint    = ""
	DefaultOTLPHeaders     = ""
	DefaultOTLPInsecure    = false
	DefaultSampleRatio     = 0.0
	DefaultDiagnostics     = ""
	DefaultEnvironment     = ""
	DefaultShutdownTimeout = 5
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Stream        StreamConfig        `mapstructure:"stream"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// StreamConfig holds session and pacing knobs.
type StreamConfig struct {
	WindowSize      int64         `mapstructure:"window_size"`
	MaxFeatures     int           `mapstructure:"max_features"`
	MaxEmptyWindows int           `mapstructure:"max_empty_windows"`
	PaceInterval    time.Duration `mapstructure:"pace_interval"`
	PaceBurst       int           `mapstructure:"pace_burst"`
	MaxWindows      int           `mapstructure:"max_windows"`
}

// CacheConfig holds range cache settings. MaxSize is a humanized byte size
// such as "64MB" or "512KiB".
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	MaxSize string `mapstructure:"max_size"`
}

// ObservabilityConfig holds logging and telemetry settings.
type ObservabilityConfig struct {
	LogLevel           string  `mapstructure:"log_level"`
	LogJSON            bool    `mapstructure:"log_json"`
	OTLPEndpoint       string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders        string  `mapstructure:"otlp_headers"`
	OTLPInsecure       bool    `mapstructure:"otlp_insecure"`
	SampleRatio        float64 `mapstructure:"sample_ratio"`
	DiagnosticsAddr    string  `mapstructure:"diagnostics_addr"`
	Environment        string  `mapstructure:"environment"`
	ShutdownTimeoutSec int     `mapstructure:"shutdown_timeout_sec"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWindowSize indicates a non-positive window size.
	ErrInvalidWindowSize = errors.New("stream.window_size must be positive")
	// ErrInvalidMaxFeatures indicates a non-positive buffer cap.
	ErrInvalidMaxFeatures = errors.New("stream.max_features must be positive")
	// ErrInvalidMaxEmptyWindows indicates a non-positive empty-window limit.
	ErrInvalidMaxEmptyWindows = errors.New("stream.max_empty_windows must be positive")
	// ErrInvalidPaceInterval indicates a negative pacing interval.
	ErrInvalidPaceInterval = errors.New("stream.pace_interval must be non-negative")
	// ErrInvalidPaceBurst indicates a non-positive burst.
	ErrInvalidPaceBurst = errors.New("stream.pace_burst must be positive")
	// ErrInvalidMaxWindows indicates a negative window limit.
	ErrInvalidMaxWindows = errors.New("stream.max_windows must be non-negative")
	// ErrInvalidCacheSize indicates an unparseable or zero cache size.
	ErrInvalidCacheSize = errors.New("cache.max_size must be a positive byte size")
	// ErrInvalidSampleRatio indicates a ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("observability.log_level must be debug, info, warn or error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	streamErr := c.validateStream()
	if streamErr != nil {
		return streamErr
	}

	if c.Cache.Enabled {
		_, err := c.CacheBytes()
		if err != nil {
			return err
		}
	}

	return c.validateObservability()
}

func (c *Config) validateStream() error {
	if c.Stream.WindowSize <= 0 {
		return ErrInvalidWindowSize
	}

	if c.Stream.MaxFeatures <= 0 {
		return ErrInvalidMaxFeatures
	}

	if c.Stream.MaxEmptyWindows <= 0 {
		return ErrInvalidMaxEmptyWindows
	}

	if c.Stream.PaceInterval < 0 {
		return ErrInvalidPaceInterval
	}

	if c.Stream.PaceBurst <= 0 {
		return ErrInvalidPaceBurst
	}

	if c.Stream.MaxWindows < 0 {
		return ErrInvalidMaxWindows
	}

	return nil
}

func (c *Config) validateObservability() error {
	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	switch c.Observability.LogLevel {
	case "debug", "info", "warn", "error", "DEBUG", "INFO", "WARN", "ERROR":
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Observability.LogLevel)
	}
}

// CacheBytes parses Cache.MaxSize.
func (c *Config) CacheBytes() (int64, error) {
	size, err := humanize.ParseBytes(c.Cache.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCacheSize, err)
	}

	if size == 0 || size > 1<<62 {
		return 0, fmt.Errorf("%w: got %q", ErrInvalidCacheSize, c.Cache.MaxSize)
	}

	return int64(size), nil
}
