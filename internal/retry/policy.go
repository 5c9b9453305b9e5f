// Package retry runs operations under a bounded or unbounded attempt policy
// with fixed or growing delays. Sleeping goes through a Sleeper so callers can
// substitute a fake clock in tests.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	// Attempts caps the number of calls; zero retries until success.
	Attempts int
	// Delay is the pause after the first failure.
	Delay time.Duration
	// Multiplier grows the delay after each failure; values <= 1 keep it fixed.
	Multiplier float64
	// MaxDelay caps the grown delay when positive.
	MaxDelay time.Duration
	// Sleep defaults to the real Sleep.
	Sleep Sleeper
	// OnFailure observes every failed attempt before the pause.
	OnFailure func(attempt int, err error)
	// Permanent marks errors that end the loop at once. They are returned
	// as is and do not count as failed attempts.
	Permanent func(err error) bool
}

// Do calls fn until it succeeds, the attempt budget is spent or ctx is done.
// The error of the last attempt is returned when the budget is spent.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if p.Permanent != nil && p.Permanent(err) {
			return err
		}

		if p.OnFailure != nil {
			p.OnFailure(attempt, err)
		}

		if p.Attempts > 0 && attempt >= p.Attempts {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		if err := sleep(ctx, p.Backoff(attempt)); err != nil {
			return err
		}
	}
}

// Backoff is the pause following the given failed attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := p.Delay
	if p.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * p.Multiplier)
			if p.MaxDelay > 0 && delay >= p.MaxDelay {
				return p.MaxDelay
			}
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
