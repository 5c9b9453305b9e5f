package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"JobsScanner/internal/metrics"
	"JobsScanner/internal/ports"
	"JobsScanner/internal/retry"
)

// Cycle is one crawl attempt.
type Cycle interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// RunnerOptions configure the outer retry loop.
type RunnerOptions struct {
	Cooldown    time.Duration
	Multiplier  float64
	MaxCooldown time.Duration
	// AlertAfter sends an operator alert every AlertAfter consecutive failures; zero disables it.
	AlertAfter int
	Recipient  string
	Sleep      retry.Sleeper
}

// Runner repeats failed cycles until one succeeds.
type Runner struct {
	cycle    Cycle
	notifier ports.Notifier
	opts     RunnerOptions
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// NewRunner wraps cycle with the cooldown policy.
func NewRunner(cycle Cycle, notifier ports.Notifier, opts RunnerOptions, rec *metrics.Recorder, logger *slog.Logger) *Runner {
	if opts.Cooldown <= 0 {
		opts.Cooldown = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cycle:    cycle,
		notifier: notifier,
		opts:     opts,
		metrics:  rec,
		logger:   logger,
	}
}

// RunUntilSuccess returns the report of the first successful cycle. Only
// context cancellation ends the loop early. When another cycle is already in
// flight it returns ErrCycleRunning at once without retrying or alerting.
func (r *Runner) RunUntilSuccess(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	policy := retry.Policy{
		Delay:      r.opts.Cooldown,
		Multiplier: r.opts.Multiplier,
		MaxDelay:   r.opts.MaxCooldown,
		Sleep:      r.opts.Sleep,
		Permanent: func(err error) bool {
			return errors.Is(err, ErrCycleRunning)
		},
		OnFailure: func(attempt int, err error) {
			r.metrics.SetConsecutiveFailures(attempt)
			r.logger.Error("cycle failed, retrying",
				"attempt", attempt,
				"cooldown", r.cooldown(attempt),
				"error", err,
			)
			r.alert(ctx, attempt, err)
		},
	}

	err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		rep, err := r.cycle.RunCycle(ctx)
		if err != nil {
			return err
		}
		report = rep
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCycleRunning) {
			r.logger.Info("cycle already running, skipped")
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.logger.Info("retry loop stopped", "reason", err)
		}
		return CycleReport{}, err
	}

	r.metrics.SetConsecutiveFailures(0)
	return report, nil
}

func (r *Runner) cooldown(attempt int) time.Duration {
	return retry.Policy{
		Delay:      r.opts.Cooldown,
		Multiplier: r.opts.Multiplier,
		MaxDelay:   r.opts.MaxCooldown,
	}.Backoff(attempt)
}

func (r *Runner) alert(ctx context.Context, failures int, err error) {
	if r.notifier == nil || r.opts.AlertAfter <= 0 || failures%r.opts.AlertAfter != 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if dErr := r.notifier.Deliver(ctx, FailureAlert(r.opts.Recipient, failures, err)); dErr != nil {
		r.metrics.NotificationFailed()
		r.logger.Error("failed to send operator alert", "failures", failures, "error", dErr)
	}
}
