package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

var validWeekdays = map[string]bool{
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

// Validate checks the configuration and returns every problem found.
// A non-empty result is fatal at startup.
func (c *Config) Validate() []error {
	var errors []error

	if c.Portal.BaseURL == "" {
		errors = append(errors, fmt.Errorf("portal.base_url is required"))
	} else if u, err := url.Parse(c.Portal.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Errorf("portal.base_url is not a valid URL: %s", c.Portal.BaseURL))
	}
	if c.Portal.CustomerID == "" {
		errors = append(errors, fmt.Errorf("portal.customer_id is required"))
	}

	// Credentials may be omitted entirely, but not half-given.
	if (c.Credentials.Username == "") != (c.Credentials.Password == "") {
		errors = append(errors, fmt.Errorf("credentials.username and credentials.password must be set together"))
	}

	if err := validateClock(c.Schedule.DailyTime, "schedule.daily_time"); err != nil {
		errors = append(errors, err)
	}
	if err := validateClock(c.Schedule.WeeklyTime, "schedule.weekly_time"); err != nil {
		errors = append(errors, err)
	}
	if !validWeekdays[strings.ToLower(c.Schedule.WeeklyDay)] {
		errors = append(errors, fmt.Errorf("invalid schedule.weekly_day: %s (expected a weekday name)", c.Schedule.WeeklyDay))
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("invalid schedule.timezone: %s", c.Schedule.Timezone))
	}
	if c.Schedule.TestIntervalMinutes < 1 {
		errors = append(errors, fmt.Errorf("schedule.test_interval_minutes must be >= 1"))
	}

	if c.Downloads.MaxAttempts < 1 {
		errors = append(errors, fmt.Errorf("downloads.max_attempts must be >= 1"))
	}

	errors = append(errors, validateLogging(&c.Logging)...)
	errors = append(errors, validateNotify(&c.Notify)...)

	// Escalation pages through the SMS API even when the sms channel
	// itself is disabled. Without recipients every page would vanish
	// silently, so the list is mandatory.
	if len(c.Escalation.Recipients) == 0 {
		errors = append(errors, fmt.Errorf("escalation.recipients is required"))
	} else {
		if c.Notify.SMS.APIURL == "" {
			errors = append(errors, fmt.Errorf("notify.sms.api_url is required when escalation.recipients is set"))
		}
		if c.Notify.SMS.APIKey == "" {
			errors = append(errors, fmt.Errorf("notify.sms.api_key is required when escalation.recipients is set"))
		}
	}

	return errors
}

func validateClock(value, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("invalid %s: %s (expected HH:MM)", fieldName, value)
	}
	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errors []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(l.Level)] {
		errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", l.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(l.Format)] {
		errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", l.Format))
	}

	if l.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	return errors
}

func validateNotify(n *NotifyConfig) []error {
	var errors []error

	enabled := map[string]bool{
		"email":    n.Email.Enabled,
		"sms":      n.SMS.Enabled,
		"telegram": n.Telegram.Enabled,
	}

	any := false
	for _, on := range enabled {
		any = any || on
	}
	if !any {
		errors = append(errors, fmt.Errorf("at least one notify channel must be enabled"))
	}

	if on, known := enabled[n.PrimaryChannel()]; !known {
		errors = append(errors, fmt.Errorf("invalid notify.primary: %s (expected: email, sms, telegram)", n.Primary))
	} else if !on {
		errors = append(errors, fmt.Errorf("notify.primary channel %q is not enabled", n.Primary))
	}

	if n.Email.Enabled {
		if n.Email.SMTPHost == "" {
			errors = append(errors, fmt.Errorf("notify.email.smtp_host is required when email is enabled"))
		}
		if n.Email.From == "" {
			errors = append(errors, fmt.Errorf("notify.email.from is required when email is enabled"))
		}
		if len(n.Email.To) == 0 {
			errors = append(errors, fmt.Errorf("notify.email.to cannot be empty when email is enabled"))
		}
	}

	if n.SMS.Enabled {
		if n.SMS.APIURL == "" {
			errors = append(errors, fmt.Errorf("notify.sms.api_url is required when sms is enabled"))
		}
		if n.SMS.APIKey == "" {
			errors = append(errors, fmt.Errorf("notify.sms.api_key is required when sms is enabled"))
		}
		if len(n.SMS.Recipients) == 0 {
			errors = append(errors, fmt.Errorf("notify.sms.recipients cannot be empty when sms is enabled"))
		}
	}

	if n.Telegram.Enabled {
		if n.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("notify.telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(n.Telegram.Token); err != nil {
			errors = append(errors, err)
		}
		if len(n.Telegram.ChatIDs) == 0 {
			errors = append(errors, fmt.Errorf("notify.telegram.chat_ids cannot be empty when telegram is enabled"))
		}
	}

	return errors
}

// PrimaryChannel returns the primary channel name, lowercased.
func (n *NotifyConfig) PrimaryChannel() string {
	return strings.ToLower(n.Primary)
}

func validateTelegramToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("notify.telegram.token has invalid format (expected <bot_id>:<token>, got: %s)", maskSecret(token))
	}

	for _, r := range parts[0] {
		if r < '0' || r > '9' {
			return fmt.Errorf("notify.telegram.token has invalid bot ID (expected digits only)")
		}
	}

	if len(parts[1]) < 10 {
		return fmt.Errorf("notify.telegram.token is too short")
	}

	return nil
}
