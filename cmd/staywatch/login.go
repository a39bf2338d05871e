package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paradisestayz/staywatch/internal/app"
)

var loginConfigPath string

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the portal and save the session",
	Long: `Prompt for portal credentials, log in, and persist the session state so
the daemon can pick it up. Use this when the session has expired and no
credentials are stored in the configuration.`,
	Run: loginHandler,
}

func loginHandler(cmd *cobra.Command, args []string) {
	cfg, log := setup(loginConfigPath, "")

	a := app.New(cfg, log, app.Options{})
	sessions, err := a.Sessions(context.Background())
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	in := bufio.NewScanner(os.Stdin)
	username := prompt(in, "username: ")
	password := prompt(in, "password: ")
	if username == "" || password == "" {
		fmt.Println("❌ Username and password are required")
		os.Exit(1)
	}

	if err := sessions.LoginWith(context.Background(), username, password); err != nil {
		fmt.Printf("❌ Login failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Logged in, session saved to %s\n", cfg.Session.StatePath)
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func init() {
	loginCmd.Flags().StringVarP(&loginConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
