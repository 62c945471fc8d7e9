package main

import (
	"os"
)

// Injected via -ldflags at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Process exit codes. Stop-on-error gets its own code so supervisors
// can tell a failing target apart from a broken runner.
const (
	exitOK          = 0
	exitRunnerError = 1
	exitStopOnError = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitRunnerError)
	}
}
