package config

import (
	"strings"
	"time"

	"github.com/marmos91/oceancache/internal/bytesize"
	"github.com/marmos91/oceancache/pkg/axis"
)

const (
	defaultAPIPort            = 8180
	defaultMetricsPort        = 9090
	defaultMaxConcurrency     = 2
	defaultMaxCachingDistance = 20
	defaultMaxLayerSize       = 64 * bytesize.MiB
	defaultBaseURL            = "http://localhost:8000/Data/downloads/data/"
)

// ApplyDefaults fills zero-valued fields with defaults. Explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyDatasetDefaults(&cfg.Dataset)
	applySourceDefaults(&cfg.Source)
	applyLoaderDefaults(&cfg.Loader)
	applySchedulerDefaults(&cfg.Scheduler, cfg.Dataset)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets the port only when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = defaultMetricsPort
	}
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultAPIPort
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// layer downloads and SSE streams need more than a JSON reply
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// applyDatasetDefaults fills the published dataset axes.
func applyDatasetDefaults(cfg *DatasetConfig) {
	if len(cfg.Attributes) == 0 {
		for _, a := range axis.DefaultAttributes {
			cfg.Attributes = append(cfg.Attributes, string(a))
		}
	}
	if len(cfg.Levels) == 0 {
		for _, l := range axis.DefaultLevels {
			cfg.Levels = append(cfg.Levels, float64(l))
		}
	}
	if len(cfg.Timestamps) == 0 {
		cfg.Timestamps = append([]string(nil), axis.DefaultTimestamps...)
	}
}

func applySourceDefaults(cfg *SourceConfig) {
	if cfg.Type == "" {
		cfg.Type = SourceHTTP
	}
	cfg.Type = strings.ToLower(cfg.Type)

	if cfg.Type == SourceHTTP && cfg.HTTP.BaseURL == "" {
		cfg.HTTP.BaseURL = defaultBaseURL
	}
	if cfg.HTTP.MaxIdleConns == 0 {
		cfg.HTTP.MaxIdleConns = 16
	}
}

func applyLoaderDefaults(cfg *LoaderConfig) {
	if cfg.MaxLayerSize == 0 {
		cfg.MaxLayerSize = defaultMaxLayerSize
	}
}

func applySchedulerDefaults(cfg *SchedulerConfig, ds DatasetConfig) {
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.Initial.Mode == "" {
		cfg.Initial.Mode = string(axis.ModeSpace)
	}
	if cfg.Initial.Attribute == "" && len(ds.Attributes) > 0 {
		cfg.Initial.Attribute = ds.Attributes[0]
	}
}

// GetDefaultConfig returns a Config with all defaults applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
