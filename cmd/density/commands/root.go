package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/enzo-prism/density/internal/app"
	"github.com/enzo-prism/density/internal/config"
	"github.com/enzo-prism/density/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version is set at build time via ldflags.
	Version = "dev"

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "density",
	Short:         "Upload density analyzer for YouTube channels",
	Long:          `Counts a channel's uploads per local calendar day, computes posting streaks, view performance and a density rank.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

// bootstrap loads configuration, builds the logger and assembles the
// service container shared by every subcommand.
func bootstrap() (*app.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Density starting...",
		zap.String("version", Version),
		zap.String("log_level", cfg.Logging.Level),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer buildCancel()

	container, err := app.Build(buildCtx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to assemble application services: %w", err)
	}
	return container, nil
}
