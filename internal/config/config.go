package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses the TOML configuration file, applies defaults,
// and expands environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

func applyDefaults(c *Config) {
	if c.Portal.TimeoutSeconds == 0 {
		c.Portal.TimeoutSeconds = 30
	}

	if c.Session.StatePath == "" {
		c.Session.StatePath = "~/.staywatch/session.json"
	}
	if c.Session.HeartbeatMinutes == 0 {
		c.Session.HeartbeatMinutes = 10
	}

	if c.Schedule.DailyTime == "" {
		c.Schedule.DailyTime = "08:00"
	}
	if c.Schedule.WeeklyDay == "" {
		c.Schedule.WeeklyDay = "monday"
	}
	if c.Schedule.WeeklyTime == "" {
		c.Schedule.WeeklyTime = "08:00"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Australia/Brisbane"
	}
	if c.Schedule.TestIntervalMinutes == 0 {
		c.Schedule.TestIntervalMinutes = 5
	}

	if c.Downloads.Dir == "" {
		c.Downloads.Dir = "~/.staywatch/downloads"
	}
	if c.Downloads.MaxAttempts == 0 {
		c.Downloads.MaxAttempts = 3
	}
	if c.Downloads.BackoffSeconds == 0 {
		c.Downloads.BackoffSeconds = 1
	}
	if c.Downloads.MaxBackoffSeconds == 0 {
		c.Downloads.MaxBackoffSeconds = 10
	}

	if c.RunLog.Path == "" {
		c.RunLog.Path = "~/.staywatch/runs.log"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Notify.Primary == "" {
		c.Notify.Primary = "email"
	}
	if c.Notify.Email.SMTPPort == 0 {
		c.Notify.Email.SMTPPort = 587
	}
	if c.Notify.SMS.TimeoutSeconds == 0 {
		c.Notify.SMS.TimeoutSeconds = 30
	}
	if c.Notify.Telegram.SendTimeoutSeconds == 0 {
		c.Notify.Telegram.SendTimeoutSeconds = 30
	}
}

func expandEnvVars(c *Config) {
	c.Portal.BaseURL = expandEnv(c.Portal.BaseURL)
	c.Portal.CustomerID = expandEnv(c.Portal.CustomerID)
	c.Credentials.Username = expandEnv(c.Credentials.Username)
	c.Credentials.Password = expandEnv(c.Credentials.Password)
	c.Notify.Email.Password = expandEnv(c.Notify.Email.Password)
	c.Notify.SMS.APIKey = expandEnv(c.Notify.SMS.APIKey)
	c.Notify.Telegram.Token = expandEnv(c.Notify.Telegram.Token)

	c.Session.StatePath = expandHome(c.Session.StatePath)
	c.Downloads.Dir = expandHome(c.Downloads.Dir)
	c.RunLog.Path = expandHome(c.RunLog.Path)
}

// expandEnv resolves a ${VAR} or ${VAR:default} reference. Plain values
// pass through untouched.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		if val := os.Getenv(parts[0]); val != "" {
			return val
		}
		return parts[1]
	}

	return os.Getenv(content)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
