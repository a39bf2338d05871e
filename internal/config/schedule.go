package config

import (
	"fmt"
	"strings"
	"time"
)

var weekdayNumbers = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
	"thursday": 4, "friday": 5, "saturday": 6,
}

// Location resolves the configured timezone. Call after Validate.
func (s *ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// DailyCronSpec renders the daily run time as a standard cron expression.
func (s *ScheduleConfig) DailyCronSpec() (string, error) {
	hour, minute, err := parseClock(s.DailyTime)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// WeeklyCronSpec renders the weekly run time as a standard cron expression.
func (s *ScheduleConfig) WeeklyCronSpec() (string, error) {
	hour, minute, err := parseClock(s.WeeklyTime)
	if err != nil {
		return "", err
	}
	day, ok := weekdayNumbers[strings.ToLower(s.WeeklyDay)]
	if !ok {
		return "", fmt.Errorf("invalid weekday: %s", s.WeeklyDay)
	}
	return fmt.Sprintf("%d %d * * %d", minute, hour, day), nil
}

// TestCronSpec renders the accelerated test-mode interval.
func (s *ScheduleConfig) TestCronSpec() string {
	return fmt.Sprintf("@every %dm", s.TestIntervalMinutes)
}

func parseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}
