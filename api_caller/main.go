package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/VyvaHart/system-load-demonstrator/internal/caller"
	"github.com/VyvaHart/system-load-demonstrator/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := caller.DefaultConfig()
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:          "api_caller",
		Short:        "Send bursts of randomized /load requests to a system-load server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := utils.NewLogger(logLevel, logFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			c, err := caller.New(cfg, logger, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := c.Run(ctx); err != nil {
				logger.Error("Load caller failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.BaseURL, "target", cfg.BaseURL, "base URL of the system-load server")
	flags.IntVar(&cfg.MinBurst, "min-burst", cfg.MinBurst, "minimum calls per burst")
	flags.IntVar(&cfg.MaxBurst, "max-burst", cfg.MaxBurst, "maximum calls per burst")
	flags.DurationVar(&cfg.CallInterval, "interval", cfg.CallInterval, "delay between calls within a burst")
	flags.DurationVar(&cfg.BurstPause, "pause", cfg.BurstPause, "pause between bursts")
	flags.IntVar(&cfg.Bursts, "bursts", cfg.Bursts, "stop after this many bursts (0 runs until interrupted)")
	flags.IntVar(&cfg.MaxDataSizeMB, "max-data-size-mb", cfg.MaxDataSizeMB, "upper bound for random data_size_mb")
	flags.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "upper bound for random iterations")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-call HTTP timeout")
	flags.StringVar(&logLevel, "log-level", "info", "log level")
	flags.StringVar(&logFormat, "log-format", "console", "log format (console or json)")

	return cmd
}

