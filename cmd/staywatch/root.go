package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paradisestayz/staywatch/internal/config"
	"github.com/paradisestayz/staywatch/internal/logger"
)

const defaultConfigPath = "./config.toml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "staywatch",
	Short: "Staywatch - occupancy report automation for Paradise Stayz",
	Long: `Staywatch pulls the daily and weekly arrival/departure reports from the
property management portal and delivers them to cleaning staff over
email, SMS and Telegram. It keeps the portal session alive across
restarts and escalates to the on-call contact when a run fails.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(loginCmd)
}

// setup loads the configuration and builds the logger shared by the
// subcommands. Validation failures are fatal.
func setup(configPath, logLevel string) (*config.Config, *logger.Logger) {
	if err := config.LoadEnvOptional("./.env"); err != nil {
		fmt.Printf("❌ Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	return cfg, log
}
