package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
	"JobsScanner/internal/retry"
)

const (
	defaultAttempts     = 3
	defaultPause        = time.Second
	defaultPollInterval = time.Second
	defaultReadyTimeout = 30 * time.Second
	defaultReadySelect  = "#job_details, .job-details, article"
)

var errEmptyDetail = errors.New("empty detail page")

// Session is one automated browsing session.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Ready reports whether the selector is present in the rendered page.
	Ready(selector string) (bool, error)
	HTML() (string, error)
	Close() error
}

// Launcher opens fresh sessions.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
}

// Options tunes the enricher; zero values take the defaults.
type Options struct {
	Attempts      int
	Pause         time.Duration
	PollInterval  time.Duration
	ReadyTimeout  time.Duration
	ReadySelector string
	Sleep         retry.Sleeper
}

// Enricher fetches rendered job detail pages with a fixed attempt budget.
type Enricher struct {
	launcher Launcher
	opts     Options
	logger   *slog.Logger
}

var _ ports.DetailFetcher = (*Enricher)(nil)

// NewEnricher applies option defaults.
func NewEnricher(launcher Launcher, opts Options, log *slog.Logger) *Enricher {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Pause <= 0 {
		opts.Pause = defaultPause
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	if opts.ReadySelector == "" {
		opts.ReadySelector = defaultReadySelect
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{launcher: launcher, opts: opts, logger: log}
}

// FetchDetail returns the visible text of the job detail page. Every attempt
// uses a new session and is followed by the fixed pause, successful or not.
// Failures are logged; after the last attempt ok is false.
func (e *Enricher) FetchDetail(ctx context.Context, job domain.JobRecord) (string, bool) {
	if e.launcher == nil || job.URL == "" {
		return "", false
	}

	var text string
	policy := retry.Policy{
		Attempts: e.opts.Attempts,
		Delay:    e.opts.Pause,
		Sleep:    e.opts.Sleep,
		OnFailure: func(attempt int, err error) {
			e.logger.Warn("detail attempt failed", "job_id", job.ID, "attempt", attempt, "error", err)
		},
	}

	err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		got, err := e.attempt(ctx, job.URL)
		if err != nil {
			return err
		}
		text = got
		return nil
	})

	// Pace the next detail request whatever the outcome.
	_ = e.opts.Sleep(ctx, e.opts.Pause)

	if err != nil {
		e.logger.Warn("detail unavailable", "job_id", job.ID, "error", err)
		return "", false
	}
	return text, true
}

func (e *Enricher) attempt(ctx context.Context, url string) (text string, err error) {
	session, err := e.launcher.NewSession(ctx)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			e.logger.Debug("close session", "error", closeErr)
		}
	}()

	if err := session.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}

	e.waitReady(ctx, session)

	html, err := session.HTML()
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	text, err = visibleText(html)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errEmptyDetail
	}
	return text, nil
}

// waitReady polls for the ready marker until the ceiling; whatever is
// rendered afterwards is used as is.
func (e *Enricher) waitReady(ctx context.Context, session Session) {
	for waited := time.Duration(0); waited < e.opts.ReadyTimeout; waited += e.opts.PollInterval {
		ready, err := session.Ready(e.opts.ReadySelector)
		if err == nil && ready {
			return
		}
		if err := e.opts.Sleep(ctx, e.opts.PollInterval); err != nil {
			return
		}
	}
	e.logger.Debug("detail page not ready, using partial content", "timeout", e.opts.ReadyTimeout)
}

func visibleText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse detail: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
}
