// Package target invokes the wrapped command once per cycle and
// classifies the outcome.
package target

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Param is one pass-through parameter. The set is ordered and is
// rendered verbatim after the fixed arguments; the runner never
// validates or interprets it.
type Param struct {
	Name  string
	Value string
}

// ParseParam parses the "NAME=VALUE" flag form. A missing '=' yields a
// value-less parameter.
func ParseParam(s string) (Param, error) {
	name, value, _ := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return Param{}, fmt.Errorf("invalid parameter %q, expected NAME=VALUE", s)
	}
	return Param{Name: name, Value: value}, nil
}

type Target struct {
	Path   string
	Args   []string
	Params []Param

	// Stdout/Stderr default to the process's own streams. Tests and
	// embedding callers may redirect them.
	Stdout io.Writer
	Stderr io.Writer
}

// Resolve checks the command can be found before the loop starts.
func (t Target) Resolve() error {
	if strings.TrimSpace(t.Path) == "" {
		return errors.New("target command is required")
	}
	if _, err := exec.LookPath(t.Path); err != nil {
		return fmt.Errorf("target command: %w", err)
	}
	return nil
}

// Argv renders the full argument vector: fixed args first, then each
// parameter as "-Name value" ("-Name" alone when the value is empty).
func (t Target) Argv() []string {
	argv := append([]string(nil), t.Args...)
	for _, p := range t.Params {
		argv = append(argv, "-"+p.Name)
		if p.Value != "" {
			argv = append(argv, p.Value)
		}
	}
	return argv
}

// Result is one cycle's outcome. It is consumed immediately by the
// logger and the stop-on-error decision and never retained.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
	Err        error // start failure, or wraps a non-zero exit
}

func (r Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run executes the command and blocks until it finishes. Deliberately
// no context and no timeout: cancellation is cooperative and an
// in-flight cycle always runs to completion.
func (t Target) Run() Result {
	res := Result{StartedAt: time.Now()}

	cmd := exec.Command(t.Path, t.Argv()...)
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	res.FinishedAt = time.Now()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.Err = fmt.Errorf("exit status %d", res.ExitCode)
	default:
		res.Err = err
	}
	return res
}
