package main

import (
	"context"
	"fmt"
	"os"

	"github.com/VyvaHart/system-load-demonstrator/internal/config"
	"github.com/VyvaHart/system-load-demonstrator/internal/load"
	"github.com/VyvaHart/system-load-demonstrator/internal/metrics"
	"github.com/VyvaHart/system-load-demonstrator/internal/server"
	"github.com/VyvaHart/system-load-demonstrator/internal/tracing"
	"github.com/VyvaHart/system-load-demonstrator/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var configPath = "internal/config/configurations.json"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "system-load",
		Short:        "HTTP service that generates CPU, memory and disk I/O load on request",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			app := fx.New(appOptions(path, cmd.Flags()))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	cmd.Flags().String("config", configPath, "path to a JSON or YAML configuration file")
	cmd.Flags().String("port", "", "listen port, overrides server.port (e.g. 8080 or :8080)")
	return cmd
}

// appOptions assembles the fx application.
func appOptions(path string, flags *pflag.FlagSet) fx.Option {
	return fx.Options(
		// Provide dependencies
		fx.Provide(
			// Load configuration from file, LOADGEN_* env and flags to config.Config
			func() (*config.Config, error) {
				return config.Load(path, flags)
			},
			newLogger,
			newRegistry,
			newSink,
			newHTTPMetrics,
			newTracing,
			func(provider *tracing.Provider) trace.Tracer { return provider.Tracer() },
			newEngine,
			fx.Annotate(utils.NewSystemCommandExecutor, fx.As(new(utils.CommandExecutor))),
			server.New,
			server.NewServerLifecycle,
		),

		// Invoke startup functions
		fx.Invoke(
			func(lifecycle fx.Lifecycle, serverLifecycle *server.ServerLifecycle) {
				lifecycle.Append(fx.Hook{
					OnStart: serverLifecycle.Start,
					OnStop:  serverLifecycle.Stop,
				})
			},
		),

		// Configure logging
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.App.Name)), nil
}

func newRegistry(cfg *config.Config) (*prometheus.Registry, error) {
	reg := metrics.NewRegistry(metrics.RegistryOptions{
		GoCollector:      cfg.Metrics.EnableGoCollector,
		ProcessCollector: cfg.Metrics.EnableProcessCollector,
	})
	if err := metrics.RegisterAppInfo(reg, cfg.App.Version); err != nil {
		return nil, err
	}
	return reg, nil
}

func newSink(cfg *config.Config, reg *prometheus.Registry) (metrics.Sink, error) {
	return metrics.NewPrometheusSink(cfg.Metrics.Namespace, reg)
}

func newHTTPMetrics(cfg *config.Config, reg *prometheus.Registry) (*metrics.HTTPMetrics, error) {
	return metrics.NewHTTPMetrics(cfg.Metrics.Namespace, reg)
}

// newTracing flushes pending spans when the application stops.
func newTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*tracing.Provider, error) {
	provider, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, err
	}
	if cfg.Tracing.Enabled() {
		logger.Info("Tracing enabled",
			zap.String("endpoint", cfg.Tracing.Endpoint),
			zap.String("protocol", cfg.Tracing.Protocol),
			zap.Float64("sample_rate", cfg.Tracing.SampleRate),
		)
	}
	lc.Append(fx.Hook{OnStop: provider.Shutdown})
	return provider, nil
}

func newEngine(cfg *config.Config, sink metrics.Sink, logger *zap.Logger, tracer trace.Tracer) *load.Engine {
	return load.NewEngine(load.Options{
		Sink:        sink,
		Logger:      logger,
		Tracer:      tracer,
		TempDir:     cfg.Load.TempDir,
		TouchMemory: cfg.Load.TouchMemory,
		Limits: load.Limits{
			MaxIterations:   cfg.Load.MaxIterations,
			MaxDataSizeMB:   cfg.Load.MaxDataSizeMB,
			MaxCPUTaskScale: cfg.Load.MaxCPUTaskScale,
			MaxCPUWork:      cfg.Load.MaxCPUWork,
		},
	})
}
