package config

import (
	"testing"
	"time"

	"github.com/marmos91/oceancache/pkg/axis"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_NormalizesLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if !cfg.API.IsEnabled() {
		t.Error("Expected API to be enabled by default")
	}
	if cfg.API.Port != 8180 {
		t.Errorf("Expected default API port 8180, got %d", cfg.API.Port)
	}
	if cfg.API.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.API.ReadTimeout)
	}
	if cfg.API.WriteTimeout != 60*time.Second {
		t.Errorf("Expected default write timeout 60s, got %v", cfg.API.WriteTimeout)
	}
	if cfg.API.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.API.IdleTimeout)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port while disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Enabled {
		t.Error("Expected telemetry to be disabled by default")
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default endpoint 'localhost:4317', got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) == 0 {
		t.Error("Expected default profile types")
	}
}

func TestApplyDefaults_Dataset(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if len(cfg.Dataset.Attributes) != len(axis.DefaultAttributes) {
		t.Errorf("Expected %d attributes, got %d", len(axis.DefaultAttributes), len(cfg.Dataset.Attributes))
	}
	if len(cfg.Dataset.Levels) != 90 {
		t.Errorf("Expected 90 levels, got %d", len(cfg.Dataset.Levels))
	}
	if len(cfg.Dataset.Timestamps) != len(axis.DefaultTimestamps) {
		t.Errorf("Expected %d timestamps, got %d", len(axis.DefaultTimestamps), len(cfg.Dataset.Timestamps))
	}
}

func TestApplyDefaults_Source(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Source.Type != SourceHTTP {
		t.Errorf("Expected default source 'http', got %q", cfg.Source.Type)
	}
	if cfg.Source.HTTP.BaseURL != defaultBaseURL {
		t.Errorf("Expected default base URL %q, got %q", defaultBaseURL, cfg.Source.HTTP.BaseURL)
	}

	cfg = &Config{Source: SourceConfig{Type: "S3"}}
	ApplyDefaults(cfg)
	if cfg.Source.Type != SourceS3 {
		t.Errorf("Expected source type normalized to 's3', got %q", cfg.Source.Type)
	}
	if cfg.Source.HTTP.BaseURL != "" {
		t.Errorf("Expected no base URL for an s3 source, got %q", cfg.Source.HTTP.BaseURL)
	}
}

func TestApplyDefaults_LoaderAndScheduler(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if !cfg.Loader.CoalesceEnabled() {
		t.Error("Expected coalescing on by default")
	}
	if cfg.Loader.MaxLayerSize != defaultMaxLayerSize {
		t.Errorf("Expected max layer size %v, got %v", defaultMaxLayerSize, cfg.Loader.MaxLayerSize)
	}
	if cfg.Scheduler.MaxConcurrency != 2 {
		t.Errorf("Expected max concurrency 2, got %d", cfg.Scheduler.MaxConcurrency)
	}
	if cfg.Scheduler.Distance() != 20 {
		t.Errorf("Expected caching distance 20, got %d", cfg.Scheduler.Distance())
	}
	if !cfg.Scheduler.AutoCacheEnabled() {
		t.Error("Expected auto cache on by default")
	}
	if cfg.Scheduler.Initial.Mode != "space" {
		t.Errorf("Expected initial mode 'space', got %q", cfg.Scheduler.Initial.Mode)
	}
	if cfg.Scheduler.Initial.Attribute != "theta" {
		t.Errorf("Expected initial attribute 'theta', got %q", cfg.Scheduler.Initial.Attribute)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	autoCache := false
	cfg := &Config{
		Logging:   LoggingConfig{Level: "WARN", Format: "json", Output: "stderr"},
		API:       APIConfig{Port: 9000},
		Dataset:   DatasetConfig{Attributes: []string{"salt"}},
		Scheduler: SchedulerConfig{MaxConcurrency: 8, AutoCache: &autoCache},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Expected explicit logging preserved, got %+v", cfg.Logging)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.API.Port)
	}
	if cfg.Scheduler.MaxConcurrency != 8 {
		t.Errorf("Expected max concurrency 8, got %d", cfg.Scheduler.MaxConcurrency)
	}
	if cfg.Scheduler.AutoCacheEnabled() {
		t.Error("Expected explicit auto_cache=false preserved")
	}
	if cfg.Scheduler.Initial.Attribute != "salt" {
		t.Errorf("Expected initial attribute from dataset 'salt', got %q", cfg.Scheduler.Initial.Attribute)
	}
}
