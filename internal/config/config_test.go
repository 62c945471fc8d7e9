package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"schedrun/internal/schedule"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "job.yaml", `
target:
  path: /usr/local/bin/backup.sh
  args: ["--full"]
  params:
    - name: Mode
      value: nightly
schedule:
  interval:
    hours: 1
    minutes: 30
stop_on_error: true
logging:
  level: DEBUG
  max_files: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Target.Path != "/usr/local/bin/backup.sh" {
		t.Fatalf("target path = %q", cfg.Target.Path)
	}
	if len(cfg.Target.Params) != 1 || cfg.Target.Params[0].Name != "Mode" {
		t.Fatalf("params = %+v", cfg.Target.Params)
	}
	if cfg.Schedule.Interval == nil || cfg.Schedule.Interval.Duration() != 90*time.Minute {
		t.Fatalf("interval = %+v", cfg.Schedule.Interval)
	}
	if !cfg.StopOnError {
		t.Fatal("stop_on_error not set")
	}
	if cfg.Logging.Level != "DEBUG" || cfg.Logging.MaxFiles != 10 {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	// Defaults survive for absent fields.
	if cfg.Logging.Dir != "logs" {
		t.Fatalf("logging.dir = %q, want default", cfg.Logging.Dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "job.json", `{
  "target": {"path": "/bin/true"},
  "schedule": {"calendar": {"days": ["monday", "friday"], "times": ["09:00", "18:30"]}}
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	plan, err := cfg.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Mode() != schedule.ModeCalendar {
		t.Fatalf("mode = %v", plan.Mode())
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "job.yaml", `
target:
  path: /bin/true
schedule:
  interval: {minutes: 5}
surprise: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "job.json", `{"target":{"path":"/bin/true"},"schedule":{"interval":{"minutes":5}}}{}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func validConfig() Config {
	cfg := Default()
	cfg.Target.Path = "/bin/true"
	cfg.Schedule.Interval = &IntervalConfig{Minutes: 30}
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid interval", mutate: func(c *Config) {}},
		{
			name: "valid calendar",
			mutate: func(c *Config) {
				c.Schedule.Interval = nil
				c.Schedule.Calendar = &CalendarConfig{Days: []string{"monday"}, Times: []string{"09:00"}}
			},
		},
		{
			name:    "missing target",
			mutate:  func(c *Config) { c.Target.Path = " " },
			wantErr: "target.path",
		},
		{
			name: "both groups",
			mutate: func(c *Config) {
				c.Schedule.Calendar = &CalendarConfig{Days: []string{"monday"}, Times: []string{"09:00"}}
			},
			wantErr: "mutually exclusive",
		},
		{
			name:    "no group",
			mutate:  func(c *Config) { c.Schedule.Interval = nil },
			wantErr: "either interval or calendar",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Schedule.Interval = &IntervalConfig{} },
			wantErr: "both zero",
		},
		{
			name:    "minutes out of range",
			mutate:  func(c *Config) { c.Schedule.Interval = &IntervalConfig{Minutes: 60} },
			wantErr: "minutes",
		},
		{
			name:    "negative hours",
			mutate:  func(c *Config) { c.Schedule.Interval = &IntervalConfig{Hours: -1, Minutes: 5} },
			wantErr: "hours",
		},
		{
			name: "bad weekday",
			mutate: func(c *Config) {
				c.Schedule.Interval = nil
				c.Schedule.Calendar = &CalendarConfig{Days: []string{"Funday"}, Times: []string{"09:00"}}
			},
			wantErr: "weekday",
		},
		{
			name: "bad time",
			mutate: func(c *Config) {
				c.Schedule.Interval = nil
				c.Schedule.Calendar = &CalendarConfig{Days: []string{"monday"}, Times: []string{"9am"}}
			},
			wantErr: "calendar.times",
		},
		{
			name:    "bad level",
			mutate:  func(c *Config) { c.Logging.Level = "VERBOSE" },
			wantErr: "logging.level",
		},
		{
			name:    "max files too small",
			mutate:  func(c *Config) { c.Logging.MaxFiles = 0 },
			wantErr: "max_files",
		},
		{
			name:    "max files too large",
			mutate:  func(c *Config) { c.Logging.MaxFiles = 366 },
			wantErr: "max_files",
		},
		{
			name:    "param without name",
			mutate:  func(c *Config) { c.Target.Params = []ParamConfig{{Value: "x"}} },
			wantErr: "params[0]",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
