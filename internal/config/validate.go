package config

import (
	"fmt"
	"strings"

	"schedrun/internal/schedule"
)

// Validate enforces the configuration contract. Any violation is fatal
// before the loop starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Target.Path) == "" {
		return fmt.Errorf("target.path is required")
	}
	for i, p := range c.Target.Params {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("target.params[%d]: name is required", i)
		}
	}

	if err := c.Schedule.validate(); err != nil {
		return err
	}

	switch strings.ToUpper(strings.TrimSpace(c.Logging.Level)) {
	case "ERROR", "WARN", "INFO", "DEBUG":
	default:
		return fmt.Errorf("logging.level: must be one of ERROR, WARN, INFO, DEBUG, got %q", c.Logging.Level)
	}
	if c.Logging.MaxFiles < 1 || c.Logging.MaxFiles > 365 {
		return fmt.Errorf("logging.max_files: must be in 1..365, got %d", c.Logging.MaxFiles)
	}
	return nil
}

func (s ScheduleConfig) validate() error {
	switch {
	case s.Interval != nil && s.Calendar != nil:
		return fmt.Errorf("schedule: interval and calendar are mutually exclusive")
	case s.Interval != nil:
		iv := s.Interval
		if iv.Hours < 0 {
			return fmt.Errorf("schedule.interval.hours: must be >= 0, got %d", iv.Hours)
		}
		if iv.Minutes < 0 || iv.Minutes > 59 {
			return fmt.Errorf("schedule.interval.minutes: must be in 0..59, got %d", iv.Minutes)
		}
		if iv.Duration() <= 0 {
			return fmt.Errorf("schedule.interval: hours and minutes are both zero")
		}
		return nil
	case s.Calendar != nil:
		cal := s.Calendar
		if len(cal.Days) == 0 {
			return fmt.Errorf("schedule.calendar.days: at least one weekday is required")
		}
		for _, d := range cal.Days {
			if _, err := schedule.ParseWeekday(d); err != nil {
				return fmt.Errorf("schedule.calendar.days: %w", err)
			}
		}
		if len(cal.Times) == 0 {
			return fmt.Errorf("schedule.calendar.times: at least one time is required")
		}
		for _, t := range cal.Times {
			if _, _, err := schedule.ParseHHMM(t); err != nil {
				return fmt.Errorf("schedule.calendar.times: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("schedule: either interval or calendar is required")
	}
}
