package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/internal/telemetry"
	"github.com/marmos91/oceancache/pkg/api"
	"github.com/marmos91/oceancache/pkg/config"
	"github.com/marmos91/oceancache/pkg/layer/store"
	"github.com/marmos91/oceancache/pkg/loader"
	"github.com/marmos91/oceancache/pkg/metrics"
	"github.com/marmos91/oceancache/pkg/prefetch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/oceancache/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the oceancache server",
	Long: `Start the oceancache server in the foreground.

The server builds the dataset axes, connects to the layer source, warms the
cache around the initial selection and serves the control API until it
receives SIGINT or SIGTERM.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/oceancache/config.yaml.

Examples:
  # Start with the default config file
  oceancache start

  # Start with custom config file
  oceancache start --config /etc/oceancache/config.yaml

  # Start with environment variable overrides
  OCEANCACHE_LOGGING_LEVEL=DEBUG oceancache start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "oceancache",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "oceancache",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}

	// Metrics must be initialized before the components that report to it
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	axes, md, err := config.BuildDataset(cfg.Dataset)
	if err != nil {
		return fmt.Errorf("failed to build dataset: %w", err)
	}
	logger.Info("Dataset configured",
		"attributes", len(axes.Attributes()),
		"timestamps", axes.NumTimestamps(),
		"levels", axes.NumLevels(),
		"metadata", md != nil)

	src, err := config.CreateSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Error("Source close error", logger.KeyError, err)
		}
	}()
	if err := src.HealthCheck(ctx); err != nil {
		// the source may come up later; readiness reports it meanwhile
		logger.Warn("Layer source is not reachable", "type", cfg.Source.Type, logger.KeyError, err)
	}
	logger.Info("Layer source configured", "type", cfg.Source.Type)

	st := store.New()
	defer st.ReportTo(metrics.NewStoreMetrics())()

	ld := loader.New(axes, st, src, cfg.Loader.ToLoader(cfg.Source.Type),
		loader.WithMetrics(metrics.NewLoaderMetrics()))

	initial, err := config.BuildInitialSelection(cfg.Scheduler.Initial, axes)
	if err != nil {
		return err
	}
	sched, err := prefetch.New(axes, st, ld, initial, cfg.Scheduler.ToScheduler(),
		prefetch.WithMetrics(metrics.NewSchedulerMetrics()))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	logger.Info("Scheduler configured",
		"mode", initial.Mode,
		"attribute", initial.Attribute,
		"max_concurrency", cfg.Scheduler.MaxConcurrency,
		"max_caching_distance", cfg.Scheduler.Distance(),
		"auto_cache", cfg.Scheduler.AutoCacheEnabled())

	g, gctx := errgroup.WithContext(ctx)
	if metricsServer != nil {
		g.Go(func() error { return metricsServer.Start(gctx) })
	}
	if cfg.API.IsEnabled() {
		apiServer := api.NewServer(api.Config{
			Port:         cfg.API.Port,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
			IdleTimeout:  cfg.API.IdleTimeout,
		}, sched, src, md)
		g.Go(func() error { return apiServer.Start(gctx) })
	} else {
		logger.Info("API server disabled")
	}

	sched.CacheCurrent()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	serverDone := make(chan error, 1)
	go func() { serverDone <- g.Wait() }()

	var serveErr error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		serveErr = <-serverDone
	case serveErr = <-serverDone:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := sched.Close(shutdownCtx); err != nil {
		logger.Error("Scheduler shutdown error", logger.KeyError, err)
		if serveErr == nil {
			serveErr = err
		}
	}

	if serveErr != nil {
		logger.Error("Server error", logger.KeyError, serveErr)
		return serveErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}
