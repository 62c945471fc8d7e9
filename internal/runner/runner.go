// Package runner drives the scheduling loop: run a cycle, decide
// whether to keep going, wait for the next instant, repeat.
//
// The loop is single-threaded by construction; the target blocks it,
// so two cycles of one runner can never overlap. Cancellation arrives
// through the context and is honored only between cycles or during the
// wait phase, never by killing an in-flight command.
package runner

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"schedrun/internal/logging"
	"schedrun/internal/schedule"
	"schedrun/internal/target"
)

// ErrStopOnError reports that a cycle failed while stop-on-error was
// set. The CLI maps it to its own distinct exit code.
var ErrStopOnError = errors.New("cycle failed and stop-on-error is set")

// Job runs one cycle. Implemented by target.Target; tests substitute
// stubs.
type Job interface {
	Run() target.Result
}

// Monitor receives loop events. All methods are called from the loop
// goroutine. A nil Monitor is allowed.
type Monitor interface {
	CycleStarted(at time.Time)
	CycleFinished(res target.Result, tolerated bool)
	NextRun(at time.Time)
}

type Config struct {
	RunOnce     bool
	StopOnError bool
}

const (
	intervalPoll     = time.Minute
	calendarFarPoll  = 5 * time.Minute
	calendarNearPoll = 5 * time.Second
	calendarGrace    = time.Minute

	heartbeatEvery = 30 * time.Second
)

type Runner struct {
	plan *schedule.Plan
	job  Job
	cfg  Config
	log  logging.Logger
	mon  Monitor

	// Injected in tests.
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
	pollFar  time.Duration
	pollNear time.Duration
	grace    time.Duration

	heartbeat *rate.Limiter
}

func New(plan *schedule.Plan, job Job, cfg Config, log logging.Logger, mon Monitor) *Runner {
	r := &Runner{
		plan:      plan,
		job:       job,
		cfg:       cfg,
		log:       log,
		mon:       mon,
		now:       time.Now,
		after:     time.After,
		heartbeat: rate.NewLimiter(rate.Every(heartbeatEvery), 1),
	}
	if plan.Mode() == schedule.ModeCalendar {
		r.pollFar = calendarFarPoll
		r.pollNear = calendarNearPoll
		r.grace = calendarGrace
	} else {
		r.pollFar = intervalPoll
		r.pollNear = intervalPoll
	}
	return r
}

// Run executes the loop until a terminal transition: run-once
// completion and cooperative cancellation return nil, a cycle failure
// under stop-on-error returns ErrStopOnError.
//
// Interval mode runs the first cycle immediately; calendar mode waits
// for the first due instant.
func (r *Runner) Run(ctx context.Context) error {
	var due time.Time
	if r.plan.Mode() == schedule.ModeCalendar {
		due = r.plan.Next(time.Time{}, r.now())
		r.announce(due)
		if !r.wait(ctx, due) {
			return r.cancelled()
		}
	}

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			return r.cancelled()
		}

		started := r.now()
		r.log.Info("cycle started", logging.Int("cycle", cycle))
		if r.mon != nil {
			r.mon.CycleStarted(started)
		}

		res := r.job.Run()
		tolerated := res.Failed() && !r.cfg.StopOnError
		switch {
		case !res.Failed():
			r.log.Info("cycle completed",
				logging.Int("cycle", cycle), logging.Duration("dur", res.Duration()))
		case tolerated:
			r.log.Warn("cycle failed, continuing",
				logging.Int("cycle", cycle), logging.Int("exit", res.ExitCode), logging.Err(res.Err))
		default:
			r.log.Error("cycle failed, stopping",
				logging.Int("cycle", cycle), logging.Int("exit", res.ExitCode), logging.Err(res.Err))
		}
		if r.mon != nil {
			r.mon.CycleFinished(res, tolerated)
		}

		if res.Failed() && r.cfg.StopOnError {
			return ErrStopOnError
		}
		if r.cfg.RunOnce {
			r.log.Info("run-once cycle finished, stopping")
			return nil
		}

		// The grace window may start a cycle slightly before its due
		// instant. Advancing the reference time to that instant keeps
		// the slot from coming up due again: one cycle per due instant.
		ref := r.now()
		if due.After(ref) {
			ref = due
		}
		next := r.plan.Next(started, ref)
		due = next
		r.announce(next)
		if !r.wait(ctx, next) {
			return r.cancelled()
		}
	}
}

func (r *Runner) announce(next time.Time) {
	r.log.Info("next run scheduled", logging.Time("at", next))
	if r.mon != nil {
		r.mon.NextRun(next)
	}
}

func (r *Runner) cancelled() error {
	r.log.Info("cancellation requested, stopping")
	return nil
}

// wait blocks until next is due or the context is cancelled; it
// reports false on cancellation. "Due" means within the grace window
// of next. The remaining time is recomputed from the clock on every
// wake-up so wall-clock adjustments are picked up within one poll.
func (r *Runner) wait(ctx context.Context, next time.Time) bool {
	for {
		remaining := next.Sub(r.now())
		if remaining <= r.grace {
			return true
		}

		poll := r.pollFar
		if remaining <= r.grace+r.pollFar {
			poll = r.pollNear
		}
		chunk := remaining - r.grace
		if chunk > poll {
			chunk = poll
		}

		if r.heartbeat.Allow() {
			r.log.Debug("waiting for next run",
				logging.Time("at", next), logging.Duration("remaining", remaining))
		}

		select {
		case <-ctx.Done():
			return false
		case <-r.after(chunk):
		}
	}
}
