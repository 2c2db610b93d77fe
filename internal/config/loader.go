package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".gffstream"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix.
const envPrefix = "GFFSTREAM"

// envKeySeparator replaces the nested key separator in environment variable
// names, so stream.window_size becomes GFFSTREAM_STREAM_WINDOW_SIZE.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, environment, and defaults. An
// explicit configPath must exist; otherwise .gffstream.yaml is looked up in
// the working directory and $HOME, and a missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			WindowSize:      DefaultWindowSize,
			MaxFeatures:     DefaultMaxFeatures,
			MaxEmptyWindows: DefaultMaxEmptyWindows,
			PaceInterval:    DefaultPaceInterval,
			PaceBurst:       DefaultPaceBurst,
			MaxWindows:      DefaultMaxWindows,
		},
		Cache: CacheConfig{
			Enabled: DefaultCacheEnabled,
			MaxSize: DefaultCacheMaxSize,
		},
		Observability: ObservabilityConfig{
			LogLevel:           DefaultLogLevel,
			LogJSON:            DefaultLogJSON,
			OTLPEndpoint:       DefaultOTLPEndpoint,
			OTLPHeaders:        DefaultOTLPHeaders,
			OTLPInsecure:       DefaultOTLPInsecure,
			SampleRatio:        DefaultSampleRatio,
			DiagnosticsAddr:    DefaultDiagnostics,
			Environment:        DefaultEnvironment,
			ShutdownTimeoutSec: DefaultShutdownTimeout,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("stream.window_size", DefaultWindowSize)
	viperCfg.SetDefault("stream.max_features", DefaultMaxFeatures)
	viperCfg.SetDefault("stream.max_empty_windows", DefaultMaxEmptyWindows)
	viperCfg.SetDefault("stream.pace_interval", DefaultPaceInterval)
	viperCfg.SetDefault("stream.pace_burst", DefaultPaceBurst)
	viperCfg.SetDefault("stream.max_windows", DefaultMaxWindows)

	viperCfg.SetDefault("cache.enabled", DefaultCacheEnabled)
	viperCfg.SetDefault("cache.max_size", DefaultCacheMaxSize)

	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.log_json", DefaultLogJSON)
	viperCfg.SetDefault("observability.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("observability.otlp_headers", DefaultOTLPHeaders)
	viperCfg.SetDefault("observability.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("observability.diagnostics_addr", DefaultDiagnostics)
	viperCfg.SetDefault("observability.environment", DefaultEnvironment)
	viperCfg.SetDefault("observability.shutdown_timeout_sec", DefaultShutdownTimeout)
}
