// Package config loads the oceancache server configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (OCEANCACHE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/oceancache/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the static configuration of an oceancache server.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for running rounds to stop
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains control API server configuration
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Dataset describes the coordinate axes of the data
	Dataset DatasetConfig `mapstructure:"dataset" yaml:"dataset"`

	// Source selects where layer files are fetched from
	Source SourceConfig `mapstructure:"source" yaml:"source"`

	// Loader tunes layer fetching
	Loader LoaderConfig `mapstructure:"loader" yaml:"loader"`

	// Scheduler tunes the caching rounds
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes lists the profiles to collect (cpu, alloc_objects,
	// alloc_space, inuse_objects, inuse_space, goroutines, mutex_count,
	// mutex_duration, block_count, block_duration)
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// APIConfig configures the control API HTTP server.
type APIConfig struct {
	// Enabled controls whether the control API is served
	// Default: true
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port of the control API
	// Default: 8180
	Port int `mapstructure:"port" validate:"min=1,max=65535" yaml:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IsEnabled reports whether the control API is served.
func (c APIConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// DatasetConfig describes the fixed axes of the dataset.
type DatasetConfig struct {
	// Attributes are the data variables, e.g. theta, salt
	Attributes []string `mapstructure:"attributes" validate:"required,min=1,dive,required" yaml:"attributes"`

	// Levels are the depth levels in meters, ascending
	Levels []float64 `mapstructure:"levels" validate:"required,min=1" yaml:"levels"`

	// Timestamps are "YYYY-MM-DD-H" instants, chronological
	Timestamps []string `mapstructure:"timestamps" validate:"required,min=1" yaml:"timestamps"`

	// MetadataPath points at metadata.json. Its timestamps replace
	// Timestamps when set.
	MetadataPath string `mapstructure:"metadata_path" yaml:"metadata_path,omitempty"`
}

// Source types.
const (
	SourceHTTP       = "http"
	SourceFilesystem = "filesystem"
	SourceS3         = "s3"
	SourceBadger     = "badger"
)

// SourceConfig selects and configures the layer source.
type SourceConfig struct {
	// Type is one of http, filesystem, s3, badger
	Type string `mapstructure:"type" validate:"required,oneof=http filesystem s3 badger" yaml:"type"`

	HTTP       HTTPSourceConfig       `mapstructure:"http" yaml:"http"`
	Filesystem FilesystemSourceConfig `mapstructure:"filesystem" yaml:"filesystem"`
	S3         S3SourceConfig         `mapstructure:"s3" yaml:"s3"`
	Badger     BadgerSourceConfig     `mapstructure:"badger" yaml:"badger"`
}

// HTTPSourceConfig configures the HTTP source.
type HTTPSourceConfig struct {
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxIdleConns int           `mapstructure:"max_idle_conns" validate:"omitempty,min=1" yaml:"max_idle_conns"`
}

// FilesystemSourceConfig configures the filesystem source. The modes apply
// to directories and files written by `oceancache import`; zero means 0755
// and 0644.
type FilesystemSourceConfig struct {
	BasePath  string `mapstructure:"base_path" yaml:"base_path"`
	CreateDir bool   `mapstructure:"create_dir" yaml:"create_dir"`
	DirMode   uint32 `mapstructure:"dir_mode" validate:"omitempty,max=511" yaml:"dir_mode,omitempty"`
	FileMode  uint32 `mapstructure:"file_mode" validate:"omitempty,max=511" yaml:"file_mode,omitempty"`
}

// S3SourceConfig configures the S3 source. Credentials come from the SDK
// default chain unless both keys are set.
type S3SourceConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	KeyPrefix       string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// BadgerSourceConfig configures the Badger mirror source.
type BadgerSourceConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoaderConfig tunes the layer loader.
type LoaderConfig struct {
	// Coalesce shares one fetch between concurrent loads of a layer
	// Default: true
	Coalesce *bool `mapstructure:"coalesce" yaml:"coalesce"`

	// MaxLayerSize rejects larger files ("64Mi", "1GB")
	// Default: 64Mi
	MaxLayerSize bytesize.ByteSize `mapstructure:"max_layer_size" yaml:"max_layer_size"`

	// Timeout bounds one fetch. 0 disables it.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CoalesceEnabled reports whether fetch coalescing is on.
func (c LoaderConfig) CoalesceEnabled() bool { return c.Coalesce == nil || *c.Coalesce }

// SchedulerConfig tunes the caching rounds.
type SchedulerConfig struct {
	// MaxConcurrency bounds the slice jobs running at once
	// Default: 2
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"min=1" yaml:"max_concurrency"`

	// MaxCachingDistance bounds the pre-warmed neighborhood, in blocks
	// Default: 20
	MaxCachingDistance *int `mapstructure:"max_caching_distance" validate:"omitempty,min=0" yaml:"max_caching_distance"`

	// AutoCache starts rounds on every selection change
	// Default: true
	AutoCache *bool `mapstructure:"auto_cache" yaml:"auto_cache"`

	// Initial is the selection at startup
	Initial InitialSelectionConfig `mapstructure:"initial" yaml:"initial"`
}

// Distance returns MaxCachingDistance or its default.
func (c SchedulerConfig) Distance() int {
	if c.MaxCachingDistance == nil {
		return defaultMaxCachingDistance
	}
	return *c.MaxCachingDistance
}

// AutoCacheEnabled reports whether auto caching starts on.
func (c SchedulerConfig) AutoCacheEnabled() bool { return c.AutoCache == nil || *c.AutoCache }

// InitialSelectionConfig is the selection the scheduler starts with.
type InitialSelectionConfig struct {
	// Mode is space or time
	Mode string `mapstructure:"mode" validate:"omitempty,oneof=space time" yaml:"mode"`

	// Attribute defaults to the first dataset attribute
	Attribute string `mapstructure:"attribute" yaml:"attribute,omitempty"`

	// Timestamp and Level are axis indices
	Timestamp int `mapstructure:"timestamp" validate:"min=0" yaml:"timestamp"`
	Level     int `mapstructure:"level" validate:"min=0" yaml:"level"`
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath uses the default location; a missing file yields the
// defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, failing with instructions when no file
// exists.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  oceancache init\n\n"+
				"Or specify a custom config file:\n"+
				"  oceancache <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  oceancache init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold S3 credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures environment variables and the config file location.
func setupViper(v *viper.Viper, configPath string) {
	// OCEANCACHE_LOGGING_LEVEL=DEBUG overrides logging.level
	v.SetEnvPrefix("OCEANCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reports whether a config file was found and read.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks combines the decode hooks of all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		bytesize.DecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook converts "30s", "5m" or raw nanoseconds to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/oceancache, ~/.config/oceancache,
// or "." when no home directory is known.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "oceancache")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "oceancache")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
