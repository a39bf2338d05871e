package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paradisestayz/staywatch/internal/app"
	"github.com/paradisestayz/staywatch/internal/scheduler"
)

var (
	runConfigPath string
	runThenServe  bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run {daily|weekly}",
	Short: "Run one report job immediately",
	Long: `Fetch, parse and deliver one report immediately, without waiting for the
schedule. With --then-serve the daemon keeps running afterwards, exactly
as if started with serve.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"daily", "weekly"},
	Run:       runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	var kind scheduler.JobKind
	switch args[0] {
	case "daily":
		kind = scheduler.JobDaily
	case "weekly":
		kind = scheduler.JobWeekly
	default:
		fmt.Printf("❌ Unknown job %q (expected daily or weekly)\n", args[0])
		os.Exit(1)
	}

	cfg, log := setup(runConfigPath, "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runThenServe {
		a := app.New(cfg, log, app.Options{
			Console:    true,
			RunOnStart: kind,
		})
		if err := a.Run(ctx); err != nil {
			log.Error("daemon exited with error", err)
			os.Exit(1)
		}
		return
	}

	a := app.New(cfg, log, app.Options{})
	if err := a.RunOnce(ctx, kind); err != nil {
		log.Error("report run failed", err)
		os.Exit(1)
	}
	log.Info("report run completed")
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	runCmd.Flags().BoolVar(&runThenServe, "then-serve", false, "Keep the daemon running after the immediate run")
}
