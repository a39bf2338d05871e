// Package config provides configuration loading and validation for staywatch.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [portal]: Property-management portal endpoint and customer account
//   - [credentials]: Portal login credentials
//   - [session]: Session state file and heartbeat cadence
//   - [schedule]: Daily/weekly run times and timezone
//   - [downloads]: Report download directory and retry policy
//   - [runlog]: Run outcome log location
//   - [logging]: Logging level, format, and output
//   - [notify]: Delivery channels (email, SMS, Telegram) and primary channel
//   - [escalation]: On-call SMS contacts for failure escalation
//
// Environment variables:
// Values can reference environment variables using ${VAR} or ${VAR:default}
// syntax. For example: password = "${PORTAL_PASSWORD}"
package config

// Config represents the main application configuration.
type Config struct {
	Portal      PortalConfig      `toml:"portal"`
	Credentials CredentialsConfig `toml:"credentials"`
	Session     SessionConfig     `toml:"session"`
	Schedule    ScheduleConfig    `toml:"schedule"`
	Downloads   DownloadsConfig   `toml:"downloads"`
	RunLog      RunLogConfig      `toml:"runlog"`
	Logging     LoggingConfig     `toml:"logging"`
	Notify      NotifyConfig      `toml:"notify"`
	Escalation  EscalationConfig  `toml:"escalation"`
}

// PortalConfig identifies the portal instance reports are pulled from.
type PortalConfig struct {
	BaseURL        string `toml:"base_url"`
	CustomerID     string `toml:"customer_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CredentialsConfig holds the portal login. Both fields may be left empty,
// in which case automatic re-login is disabled and the operator must use
// the login command when the session expires.
type CredentialsConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// SessionConfig controls session persistence and liveness checking.
type SessionConfig struct {
	StatePath        string `toml:"state_path"`
	HeartbeatMinutes int    `toml:"heartbeat_minutes"`
}

// ScheduleConfig sets when the jobs fire.
type ScheduleConfig struct {
	DailyTime           string `toml:"daily_time"`  // "15:04" wall clock
	WeeklyDay           string `toml:"weekly_day"`  // weekday name
	WeeklyTime          string `toml:"weekly_time"` // "15:04" wall clock
	Timezone            string `toml:"timezone"`
	TestIntervalMinutes int    `toml:"test_interval_minutes"`
}

// DownloadsConfig controls where report payloads are kept and how
// downloads are retried.
type DownloadsConfig struct {
	Dir               string `toml:"dir"`
	MaxAttempts       int    `toml:"max_attempts"`
	BackoffSeconds    int    `toml:"backoff_seconds"`
	MaxBackoffSeconds int    `toml:"max_backoff_seconds"`
}

// RunLogConfig locates the append-only run outcome log.
type RunLogConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// NotifyConfig groups the delivery channels. Primary names the channel
// whose failure triggers escalation.
type NotifyConfig struct {
	Primary  string         `toml:"primary"`
	Email    EmailConfig    `toml:"email"`
	SMS      SMSConfig      `toml:"sms"`
	Telegram TelegramConfig `toml:"telegram"`
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Enabled  bool     `toml:"enabled"`
	SMTPHost string   `toml:"smtp_host"`
	SMTPPort int      `toml:"smtp_port"`
	From     string   `toml:"from"`
	Password string   `toml:"password"`
	To       []string `toml:"to"`
	CC       []string `toml:"cc"`
}

// SMSConfig configures the Comms Centre SMS API.
type SMSConfig struct {
	Enabled        bool     `toml:"enabled"`
	APIURL         string   `toml:"api_url"`
	APIKey         string   `toml:"api_key"`
	Recipients     []string `toml:"recipients"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// TelegramConfig configures bot delivery.
type TelegramConfig struct {
	Enabled            bool    `toml:"enabled"`
	Token              string  `toml:"token"`
	ChatIDs            []int64 `toml:"chat_ids"`
	SendTimeoutSeconds int     `toml:"send_timeout_seconds"`
}

// EscalationConfig lists the on-call contacts paged over SMS when the
// primary channel fails or the session expires without stored credentials.
// Escalation reuses [notify.sms] API settings.
type EscalationConfig struct {
	Recipients []string `toml:"recipients"`
}
