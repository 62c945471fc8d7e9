package main

import (
	"schedrun/internal/config"
)

func validTestConfig() config.Config {
	cfg := config.Default()
	cfg.Target.Path = "/usr/local/bin/backup.sh"
	cfg.Schedule.Interval = &config.IntervalConfig{Minutes: 30}
	return cfg
}
