package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paradisestayz/staywatch/internal/app"
	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/version"
)

var (
	serveConfigPath string
	serveLogLevel   string
	serveTestMode   bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the staywatch daemon (main command)",
	Long: `Start the staywatch daemon. This restores the portal session, starts the
daily and weekly schedules, the session heartbeat, and the operator
console on stdin, and runs until interrupted.

With --test the daily job fires every few minutes instead of every
morning, for verifying a new deployment end to end.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	cfg, log := setup(serveConfigPath, serveLogLevel)

	log.Info(version.FormatStartupMessage(),
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "portal", Value: cfg.Portal.BaseURL},
		logger.Field{Key: "daily_time", Value: cfg.Schedule.DailyTime},
		logger.Field{Key: "timezone", Value: cfg.Schedule.Timezone},
		logger.Field{Key: "test_mode", Value: serveTestMode})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, log, app.Options{
		TestMode: serveTestMode,
		Console:  true,
	})

	if err := a.Run(ctx); err != nil {
		log.Error("daemon exited with error", err)
		os.Exit(1)
	}

	log.Info("staywatch stopped gracefully")
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveTestMode, "test", false, "Run the daily job on a short interval for verification")
}
