package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"JobsScanner/internal/ports"
)

// Scheduler wires the cron driver with the retry runner.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring crawls.
func NewScheduler(driver ports.Scheduler, runner *Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers the runner with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.runner.RunUntilSuccess(ctx)
		if errors.Is(err, ErrCycleRunning) {
			s.logger.Info("scheduled crawl skipped, previous crawl still running", "trigger", trigger)
			return
		}
		if err != nil {
			s.logger.Info("scheduled crawl aborted", "trigger", trigger, "error", err)
			return
		}
		s.logger.Info("scheduled crawl done",
			"trigger", trigger,
			"cycle", report.ID,
			"inserted", report.Inserted,
			"took", report.Took,
		)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
