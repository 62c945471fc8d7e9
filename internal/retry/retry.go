// Package retry is a per-item retry executor with backoff. It is
// independent from the run loop's stop-on-error policy: the loop never
// retries a failed cycle, while batch operations inside a cycle may
// retry individual items through Do.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 5 * time.Second
	defaultMaxDelay  = 5 * time.Minute
)

type Policy struct {
	Attempts  int           // total attempts, default 3
	BaseDelay time.Duration // delay unit, default 5s
	// Multiplier > 1 grows the delay geometrically per attempt;
	// anything else keeps the linear shape BaseDelay * attempt.
	Multiplier float64
	MaxDelay   time.Duration // cap, default 5m
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = defaultAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	return p
}

// Delay returns the wait before the given retry (attempt is 1-based:
// the delay applied after attempt n has failed).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := p.BaseDelay
	if p.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
			if d >= p.MaxDelay {
				break
			}
		}
	} else {
		d = p.BaseDelay * time.Duration(attempt)
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds or attempts are exhausted. The context
// is checked between attempts and honored during backoff waits; a
// cancelled context returns ctx.Err, not the last fn error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}

		tmr := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return ctx.Err()
		case <-tmr.C:
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", p.Attempts, lastErr)
}
