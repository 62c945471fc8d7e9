// Package config holds the runner's startup configuration: the wrapped
// target, exactly one schedule group, run policies and the logging and
// metrics settings. The schedule is validated once and never mutated;
// only the log level may change at runtime (see Watcher).
package config

import (
	"fmt"
	"time"

	"schedrun/internal/schedule"
	"schedrun/internal/target"
)

type Config struct {
	Target      TargetConfig   `json:"target"`
	Schedule    ScheduleConfig `json:"schedule"`
	RunOnce     bool           `json:"run_once,omitempty"`
	StopOnError bool           `json:"stop_on_error,omitempty"`
	Logging     LoggingConfig  `json:"logging,omitempty"`
	Metrics     MetricsConfig  `json:"metrics,omitempty"`
}

type TargetConfig struct {
	Path   string        `json:"path"`
	Args   []string      `json:"args,omitempty"`
	Params []ParamConfig `json:"params,omitempty"`
}

type ParamConfig struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// ScheduleConfig carries exactly one of the two groups; both or
// neither is a configuration error.
type ScheduleConfig struct {
	Interval *IntervalConfig `json:"interval,omitempty"`
	Calendar *CalendarConfig `json:"calendar,omitempty"`
}

type IntervalConfig struct {
	Hours   int `json:"hours,omitempty"`
	Minutes int `json:"minutes,omitempty"`
}

func (i IntervalConfig) Duration() time.Duration {
	return time.Duration(i.Hours)*time.Hour + time.Duration(i.Minutes)*time.Minute
}

type CalendarConfig struct {
	Days  []string `json:"days"`
	Times []string `json:"times"`
}

type LoggingConfig struct {
	Level    string `json:"level,omitempty"`
	Dir      string `json:"dir,omitempty"`
	File     string `json:"file,omitempty"` // overrides the derived Dir-based name
	MaxFiles int    `json:"max_files,omitempty"`
}

type MetricsConfig struct {
	Enabled          bool   `json:"enabled,omitempty"`
	Addr             string `json:"addr,omitempty"`
	AllowNonLoopback bool   `json:"allow_non_loopback,omitempty"`
}

func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:    "INFO",
			Dir:      "logs",
			MaxFiles: 30,
		},
	}
}

// TargetParams converts the config form into the wrapper's ordered set.
func (t TargetConfig) TargetParams() []target.Param {
	ps := make([]target.Param, 0, len(t.Params))
	for _, p := range t.Params {
		ps = append(ps, target.Param{Name: p.Name, Value: p.Value})
	}
	return ps
}

// Plan builds the schedule from a validated config.
func (c *Config) Plan() (*schedule.Plan, error) {
	switch {
	case c.Schedule.Interval != nil:
		return schedule.NewInterval(c.Schedule.Interval.Duration())
	case c.Schedule.Calendar != nil:
		days := make([]time.Weekday, 0, len(c.Schedule.Calendar.Days))
		for _, raw := range c.Schedule.Calendar.Days {
			d, err := schedule.ParseWeekday(raw)
			if err != nil {
				return nil, err
			}
			days = append(days, d)
		}
		return schedule.NewCalendar(days, c.Schedule.Calendar.Times)
	default:
		return nil, fmt.Errorf("no schedule configured")
	}
}
