package main

import (
	"github.com/spf13/cobra"
)

var (
	flagConfig      string
	flagWatch       bool
	flagTarget      string
	flagParams      []string
	flagHours       int
	flagMinutes     int
	flagDays        []string
	flagTimes       []string
	flagRunOnce     bool
	flagStopOnError bool
	flagLogLevel    string
	flagLogDir      string
	flagLogFile     string
	flagMaxLogFiles int
	flagMetricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "schedrun [flags] [-- target args...]",
	Short: "Run a command on an interval or calendar schedule",
	Long: `schedrun wraps one external command and invokes it repeatedly,
either every fixed interval or at configured weekday/time-of-day
combinations, with logging, log rotation, stop-on-error and run-once
policies, and graceful shutdown on SIGINT/SIGTERM.

Arguments after -- are forwarded to the target verbatim; --param
NAME=VALUE pairs are appended after them as "-NAME VALUE".`,
	Version: Version,
	Args:    cobra.ArbitraryArgs,
	Run:     runHandler,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagConfig, "config", "c", "", "path to YAML or JSON config file")
	f.BoolVar(&flagWatch, "watch", false, "re-read the config file on change (log level only)")
	f.StringVar(&flagTarget, "target", "", "path to the target command")
	f.StringArrayVar(&flagParams, "param", nil, "pass-through parameter NAME=VALUE (repeatable, ordered)")
	f.IntVar(&flagHours, "hours", 0, "interval schedule: hours component")
	f.IntVar(&flagMinutes, "minutes", 0, "interval schedule: minutes component (0-59)")
	f.StringArrayVar(&flagDays, "day", nil, "calendar schedule: weekday name (repeatable)")
	f.StringArrayVar(&flagTimes, "time", nil, "calendar schedule: time of day HH:mm (repeatable)")
	f.BoolVar(&flagRunOnce, "run-once", false, "execute exactly one cycle, then exit")
	f.BoolVar(&flagStopOnError, "stop-on-error", false, "stop the loop when a cycle fails")
	f.StringVar(&flagLogLevel, "log-level", "", "minimum log level: ERROR, WARN, INFO or DEBUG")
	f.StringVar(&flagLogDir, "log-dir", "", "directory for generated log files")
	f.StringVar(&flagLogFile, "log-file", "", "explicit log file path (disables the derived name)")
	f.IntVar(&flagMaxLogFiles, "max-log-files", 0, "rotated log files to retain (1-365)")
	f.StringVar(&flagMetricsAddr, "metrics-addr", "", "Prometheus listen address (enables metrics)")

	rootCmd.AddCommand(versionCmd)
}
