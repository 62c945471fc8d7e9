package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"schedrun/internal/config"
	"schedrun/internal/logging"
	"schedrun/internal/metrics"
	"schedrun/internal/runner"
	"schedrun/internal/target"
)

func runHandler(cmd *cobra.Command, args []string) {
	os.Exit(runMain(cmd, args))
}

func runMain(cmd *cobra.Command, args []string) int {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return exitRunnerError
	}

	tgt := target.Target{
		Path:   cfg.Target.Path,
		Args:   cfg.Target.Args,
		Params: cfg.Target.TargetParams(),
	}
	if err := tgt.Resolve(); err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return exitRunnerError
	}

	plan, err := cfg.Plan()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return exitRunnerError
	}

	logPath, err := resolveLogFile(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log setup error:", err)
		return exitRunnerError
	}
	logSvc := logging.New(logging.Config{Level: cfg.Logging.Level, File: logPath})
	defer logSvc.Close()
	log := logSvc.Logger()

	// Rotation only applies to derived file names; an explicit
	// --log-file is the caller's to manage.
	if cfg.Logging.File == "" {
		base := filepath.Base(cfg.Target.Path)
		if n, err := logging.Prune(cfg.Logging.Dir, base, cfg.Logging.MaxFiles); err != nil {
			log.Warn("log rotation failed", logging.Err(err))
		} else if n > 0 {
			log.Info("pruned old log files", logging.Int("removed", n))
		}
	}

	log.Info("schedrun starting",
		logging.String("version", Version),
		logging.String("target", cfg.Target.Path),
		logging.String("mode", plan.Mode().String()),
		logging.Bool("run_once", cfg.RunOnce),
		logging.Bool("stop_on_error", cfg.StopOnError),
	)
	log.Debug("target argv", logging.Any("argv", tgt.Argv()))
	log.Debug("environment",
		logging.String("build_time", BuildTime),
		logging.String("git_commit", GitCommit),
		logging.String("log_file", logPath),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mon := metrics.New(metrics.Config{
		Enabled:          cfg.Metrics.Enabled,
		Addr:             cfg.Metrics.Addr,
		AllowNonLoopback: cfg.Metrics.AllowNonLoopback,
	}, log)
	if cfg.Metrics.Enabled {
		if err := mon.Start(); err != nil {
			log.Error("metrics start failed", logging.Err(err))
			return exitRunnerError
		}
		defer mon.Stop(context.Background())
	}

	if flagWatch && flagConfig != "" {
		onLevel := logSvc.SetLevel
		if cmd.Flags().Changed("log-level") {
			// An explicit flag pins the level for the process lifetime.
			onLevel = func(level string) {
				log.Warn("log level pinned by --log-level, ignoring file change",
					logging.String("file_level", level))
			}
		}
		w := config.NewWatcher(flagConfig, log, onLevel)
		go func() {
			if err := w.Watch(ctx); err != nil {
				log.Warn("config watcher failed, hot-reload disabled", logging.Err(err))
			}
		}()
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	defer func() { _, _ = daemon.SdNotify(false, daemon.SdNotifyStopping) }()

	r := runner.New(plan, tgt, runner.Config{RunOnce: cfg.RunOnce, StopOnError: cfg.StopOnError}, log, mon)
	switch err := r.Run(ctx); {
	case errors.Is(err, runner.ErrStopOnError):
		return exitStopOnError
	case err != nil:
		log.Error("runner failed", logging.Err(err))
		return exitRunnerError
	}
	return exitOK
}

// buildConfig merges the optional config file with explicit flags;
// flags win. Positional args (after --) replace the file's target args.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	if flagConfig != "" {
		c, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		c := config.Default()
		cfg = &c
	}

	fl := cmd.Flags()
	if fl.Changed("target") {
		cfg.Target.Path = flagTarget
	}
	if len(args) > 0 {
		cfg.Target.Args = args
	}
	if fl.Changed("param") {
		cfg.Target.Params = nil
		for _, raw := range flagParams {
			p, err := target.ParseParam(raw)
			if err != nil {
				return nil, err
			}
			cfg.Target.Params = append(cfg.Target.Params, config.ParamConfig{Name: p.Name, Value: p.Value})
		}
	}
	if fl.Changed("hours") || fl.Changed("minutes") {
		cfg.Schedule.Interval = &config.IntervalConfig{Hours: flagHours, Minutes: flagMinutes}
	}
	if fl.Changed("day") || fl.Changed("time") {
		cfg.Schedule.Calendar = &config.CalendarConfig{Days: flagDays, Times: flagTimes}
	}
	if fl.Changed("run-once") {
		cfg.RunOnce = flagRunOnce
	}
	if fl.Changed("stop-on-error") {
		cfg.StopOnError = flagStopOnError
	}
	if fl.Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if fl.Changed("log-dir") {
		cfg.Logging.Dir = flagLogDir
	}
	if fl.Changed("log-file") {
		cfg.Logging.File = flagLogFile
	}
	if fl.Changed("max-log-files") {
		cfg.Logging.MaxFiles = flagMaxLogFiles
	}
	if fl.Changed("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = flagMetricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveLogFile(cfg *config.Config) (string, error) {
	if cfg.Logging.File != "" {
		if dir := filepath.Dir(cfg.Logging.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", err
			}
		}
		return cfg.Logging.File, nil
	}
	if err := os.MkdirAll(cfg.Logging.Dir, 0o755); err != nil {
		return "", err
	}
	base := filepath.Base(cfg.Target.Path)
	return filepath.Join(cfg.Logging.Dir, logging.FileName(base, time.Now())), nil
}
