package config

import (
	"github.com/Sumatoshi-tech/gffstream/internal/observability"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

// DriverOptions returns the stream.Driver options the stream section implies.
func (c *Config) DriverOptions() []stream.Option {
	return []stream.Option{
		stream.WithMaxFeatures(c.Stream.MaxFeatures),
		stream.WithMaxEmptyWindows(c.Stream.MaxEmptyWindows),
	}
}

// PumpConfig returns the pacing the stream section implies.
func (c *Config) PumpConfig() stream.PumpConfig {
	return stream.PumpConfig{
		Interval:   c.Stream.PaceInterval,
		Burst:      c.Stream.PaceBurst,
		MaxWindows: c.Stream.MaxWindows,
	}
}

// ObservabilityConfig merges the observability section into base, which
// carries the fields only the caller knows (service version, mode). The
// Prometheus reader is enabled when a diagnostics address is set.
func (c *Config) ObservabilityConfig(base observability.Config) observability.Config {
	obs := c.Observability

	level, err := observability.ParseLevel(obs.LogLevel)
	if err == nil {
		base.LogLevel = level
	}

	base.LogJSON = obs.LogJSON
	base.OTLPEndpoint = obs.OTLPEndpoint
	base.OTLPHeaders = observability.ParseOTLPHeaders(obs.OTLPHeaders)
	base.OTLPInsecure = obs.OTLPInsecure
	base.SampleRatio = obs.SampleRatio
	base.Prometheus = obs.DiagnosticsAddr != ""

	if obs.Environment != "" {
		base.Environment = obs.Environment
	}

	if obs.ShutdownTimeoutSec > 0 {
		base.ShutdownTimeoutSec = obs.ShutdownTimeoutSec
	}

	return base
}
