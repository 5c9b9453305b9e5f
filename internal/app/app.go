package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"JobsScanner/internal/config"
	"JobsScanner/internal/filter"
	"JobsScanner/internal/infrastructure/browser"
	"JobsScanner/internal/infrastructure/httpclient"
	"JobsScanner/internal/infrastructure/mail"
	"JobsScanner/internal/infrastructure/notify"
	"JobsScanner/internal/infrastructure/parser"
	"JobsScanner/internal/infrastructure/scheduler"
	"JobsScanner/internal/infrastructure/storage"
	"JobsScanner/internal/infrastructure/telegram"
	"JobsScanner/internal/logging"
	"JobsScanner/internal/metrics"
	"JobsScanner/internal/ports"
	"JobsScanner/internal/scanner"
	"JobsScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.JobStore
	registry  *prometheus.Registry
	pipeline  *usecase.Pipeline
	runner    *usecase.Runner
	scheduler *usecase.Scheduler
}

// New opens the store and builds every component once.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	scopes := scanner.BuildScopes(cfg.Organizations, cfg.DutyStations)
	if len(scopes) == 0 {
		return nil, errors.New("no organizations or duty stations configured")
	}

	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	strategies := scanner.NewDefaultRegistry()
	client := NewFetcher(cfg.Site)
	source := parser.NewJobSource(
		strategies,
		parser.NewPaginator(client, cfg.Site.BaseURL, baseLogger.With("component", "paginator")),
		baseLogger.With("component", "source"),
	)

	var detail ports.DetailFetcher
	if cfg.Detail.Enabled {
		detail = browser.NewEnricher(browser.NewRodLauncher(cfg.Detail.BrowserBin), browser.Options{
			Attempts:      cfg.Detail.Attempts,
			Pause:         cfg.Detail.Pause,
			PollInterval:  cfg.Detail.PollInterval,
			ReadyTimeout:  cfg.Detail.ReadyTimeout,
			ReadySelector: cfg.Detail.ReadySelector,
		}, baseLogger.With("component", "detail"))
	}

	notifier := buildNotifier(cfg.Notifications, baseLogger)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      source,
		Store:       store,
		Detail:      detail,
		Notifier:    notifier,
		Filter:      filter.New(cfg.Keywords),
		Registry:    strategies,
		Scopes:      scopes,
		Recipient:   cfg.Notifications.Recipient,
		Concurrency: cfg.Crawl.Concurrency,
		Metrics:     recorder,
		Logger:      baseLogger.With("component", "pipeline"),
	})

	runner := usecase.NewRunner(pipeline, notifier, usecase.RunnerOptions{
		Cooldown:    cfg.Crawl.Cooldown,
		Multiplier:  cfg.Crawl.CooldownMultiplier,
		MaxCooldown: cfg.Crawl.MaxCooldown,
		AlertAfter:  cfg.Crawl.AlertAfterFailures,
		Recipient:   cfg.Notifications.Recipient,
	}, recorder, baseLogger.With("component", "runner"))

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression,
		scheduler.WithLocation(cfg.Scheduler.Location()),
		scheduler.WithRunOnStart(cfg.Scheduler.RunOnStart),
		scheduler.WithLogger(baseLogger.With("component", "scheduler")),
	)

	baseLogger.Info("application configured",
		"scopes", len(scopes),
		"keywords", len(cfg.Keywords),
		"detail", detail != nil,
		"storage", cfg.Storage.Driver,
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		registry:  reg,
		pipeline:  pipeline,
		runner:    runner,
		scheduler: usecase.NewScheduler(driver, runner, baseLogger.With("component", "schedule")),
	}, nil
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, a.cfg.Metrics.Listen, a.registry, a.logger); err != nil {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down", "reason", ctx.Err())
	return a.scheduler.Stop(context.Background())
}

// RunOnce retries a single cycle until it succeeds or ctx is cancelled.
func (a *Application) RunOnce(ctx context.Context) (usecase.CycleReport, error) {
	return a.runner.RunUntilSuccess(ctx)
}

// Close releases the store.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// OpenStore creates the parent directory of file-backed sqlite databases
// before opening the configured store.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (ports.JobStore, error) {
	if cfg.Driver == storage.DriverSQLite && cfg.DSN != "" &&
		!strings.HasPrefix(cfg.DSN, "file:") && !strings.HasPrefix(cfg.DSN, ":memory:") {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	store, err := storage.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return store, nil
}

// NewFetcher builds the throttled page client for the job board.
func NewFetcher(site config.SiteConfig) *httpclient.Client {
	return httpclient.New(httpclient.Options{
		BaseURL:           site.BaseURL,
		UserAgent:         site.UserAgent,
		Timeout:           site.RequestTimeout,
		RequestsPerSecond: site.RequestsPerSecond,
	})
}

// buildNotifier fans out to every configured channel and falls back to logging.
func buildNotifier(cfg config.NotificationConfig, log *slog.Logger) ports.Notifier {
	var channels []notify.Named
	if cfg.Telegram.Enabled() {
		channels = append(channels, notify.Named{
			Name:     "telegram",
			Notifier: telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID),
		})
	}
	if cfg.SMTP.Enabled() {
		channels = append(channels, notify.Named{
			Name:     "mail",
			Notifier: mail.NewNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From),
		})
	}

	fanout := notify.NewFanout(channels...)
	if fanout.Len() == 0 {
		log.Warn("no notification channel configured, notifications are only logged")
		return notify.NewLog(log.With("component", "notify"))
	}
	return fanout
}
