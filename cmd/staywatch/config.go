package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paradisestayz/staywatch/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Check and manage staywatch configuration.`,
}

// configCheckCmd represents the config check command
var configCheckCmd = &cobra.Command{
	Use:   "check [config-file]",
	Short: "Check the configuration file",
	Long:  `Load the configuration file and report every validation problem found.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath := defaultConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("❌ Failed to load config: %v\n", err)
			os.Exit(1)
		}

		if errors := cfg.Validate(); len(errors) > 0 {
			fmt.Printf("❌ Configuration has %d problem(s):\n", len(errors))
			for _, e := range errors {
				fmt.Printf("  - %v\n", e)
			}
			os.Exit(1)
		}

		fmt.Println("✅ Configuration is valid")
	},
}

func init() {
	configCmd.AddCommand(configCheckCmd)
}
