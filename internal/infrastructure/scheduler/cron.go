package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"JobsScanner/internal/ports"
)

// CronScheduler triggers the job on a five-field cron expression. A tick that
// arrives while the previous run is still busy is skipped.
type CronScheduler struct {
	spec       string
	location   *time.Location
	runOnStart bool
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
	wg   sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// Option tweaks a CronScheduler.
type Option func(*CronScheduler)

// WithLocation evaluates the expression in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *CronScheduler) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithRunOnStart also runs the job right after Start.
func WithRunOnStart(enabled bool) Option {
	return func(c *CronScheduler) { c.runOnStart = enabled }
}

// WithLogger routes cron's own logs to slog.
func WithLogger(log *slog.Logger) Option {
	return func(c *CronScheduler) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, opts ...Option) *CronScheduler {
	c := &CronScheduler{
		spec:     spec,
		location: time.UTC,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start registers the job and starts ticking. It stops by itself once ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	adapter := slogAdapter{logger: c.logger}
	engine := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(adapter),
	)

	// Scheduled ticks and the start-up run share one wrapper, so a tick that
	// fires during the start-up run is skipped too.
	wrapped := cron.NewChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)).
		Then(cron.FuncJob(func() { job(time.Now().In(c.location)) }))
	if _, err := engine.AddJob(c.spec, wrapped); err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}

	engine.Start()
	c.cron = engine
	c.logger.Info("scheduler started", "spec", c.spec, "timezone", c.location.String())

	if c.runOnStart {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			wrapped.Run()
		}()
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the scheduler and waits for running jobs or ctx, whichever is first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	engine := c.cron
	c.cron = nil
	c.mu.Unlock()

	if engine == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		<-engine.Stop().Done()
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slogAdapter implements cron.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug("cron: "+msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
