package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/filter"
	"JobsScanner/internal/metrics"
	"JobsScanner/internal/ports"
	"JobsScanner/internal/scanner"
)

// ErrCycleRunning is returned when a cycle is requested while one is in flight.
var ErrCycleRunning = errors.New("crawl cycle already running")

// CycleState is the orchestrator state.
type CycleState string

const (
	StateIdle      CycleState = "idle"
	StateRunning   CycleState = "running"
	StateSucceeded CycleState = "succeeded"
	StateFailed    CycleState = "failed"
)

// CycleReport summarizes one cycle.
type CycleReport struct {
	ID           string
	StartedAt    time.Time
	Took         time.Duration
	Scopes       int
	Pages        int
	Matched      int
	Inserted     int
	Known        int
	InsertErrors int
	NotifyErrors int
}

// PipelineDeps wires all driven adapters into the crawl cycle.
type PipelineDeps struct {
	Source    ports.JobSource
	Store     ports.JobStore
	Detail    ports.DetailFetcher
	Notifier  ports.Notifier
	Filter    *filter.KeywordFilter
	Registry  *scanner.Registry
	Scopes    []domain.Scope
	Recipient string
	// Concurrency caps parallel scopes; zero runs every scope at once.
	Concurrency int
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
}

// Pipeline implements one crawl cycle: gather every scope, then commit.
type Pipeline struct {
	source      ports.JobSource
	store       ports.JobStore
	detail      ports.DetailFetcher
	notifier    ports.Notifier
	filter      *filter.KeywordFilter
	registry    *scanner.Registry
	scopes      []domain.Scope
	recipient   string
	concurrency int
	metrics     *metrics.Recorder
	logger      *slog.Logger

	mu       sync.Mutex
	state    CycleState
	lastDone CycleState
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:      deps.Source,
		store:       deps.Store,
		detail:      deps.Detail,
		notifier:    deps.Notifier,
		filter:      deps.Filter,
		registry:    deps.Registry,
		scopes:      deps.Scopes,
		recipient:   deps.Recipient,
		concurrency: deps.Concurrency,
		metrics:     deps.Metrics,
		logger:      logger,
		state:       StateIdle,
		lastDone:    StateIdle,
	}
}

// State is StateRunning during a cycle and StateIdle otherwise.
func (p *Pipeline) State() CycleState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastOutcome is StateSucceeded or StateFailed for the last finished cycle.
func (p *Pipeline) LastOutcome() CycleState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastDone
}

// RunCycle crawls every scope. Nothing is stored unless all scopes were
// fetched; then each matching job is inserted and new ones are notified.
func (p *Pipeline) RunCycle(ctx context.Context) (report CycleReport, err error) {
	if p.source == nil || p.store == nil {
		return CycleReport{}, fmt.Errorf("pipeline is not configured")
	}
	if err := p.begin(); err != nil {
		return CycleReport{}, err
	}

	report = CycleReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Scopes:    len(p.scopes),
	}
	logger := p.logger.With("cycle", report.ID)

	defer func() {
		report.Took = time.Since(report.StartedAt)
		p.metrics.CycleFinished(err, report.Took)
		p.finish(err)
	}()

	if count, cErr := p.store.Count(ctx); cErr == nil {
		logger.Info("cycle started", "scopes", len(p.scopes), "stored_jobs", count)
	} else {
		logger.Warn("count stored jobs", "error", cErr)
	}

	jobs, err := p.gather(ctx, logger, &report)
	if err != nil {
		logger.Error("cycle failed", "error", err)
		return report, err
	}

	p.commit(ctx, logger, jobs, &report)

	logger.Info("cycle finished",
		"pages", report.Pages,
		"matched", report.Matched,
		"inserted", report.Inserted,
		"known", report.Known,
		"insert_errors", report.InsertErrors,
		"notify_errors", report.NotifyErrors,
	)
	return report, nil
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateRunning {
		return ErrCycleRunning
	}
	p.state = StateRunning
	return nil
}

func (p *Pipeline) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateIdle
	if err != nil {
		p.lastDone = StateFailed
	} else {
		p.lastDone = StateSucceeded
	}
}

// gather walks the scopes concurrently. The first failing scope cancels the
// others and fails the cycle.
func (p *Pipeline) gather(ctx context.Context, logger *slog.Logger, report *CycleReport) ([]domain.JobRecord, error) {
	g, gctx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}

	var pages atomic.Int64
	perScope := make([][]domain.JobRecord, len(p.scopes))

	for i, scope := range p.scopes {
		i, scope := i, scope
		g.Go(func() error {
			jobs, err := p.collectScope(gctx, scope, &pages)
			if err != nil {
				logger.Warn("scope failed", "scope", scope.String(), "error", err)
				return err
			}
			perScope[i] = jobs
			return nil
		})
	}

	err := g.Wait()
	report.Pages = int(pages.Load())
	if err != nil {
		return nil, err
	}

	var jobs []domain.JobRecord
	for _, scoped := range perScope {
		jobs = append(jobs, scoped...)
	}
	report.Matched = len(jobs)
	return jobs, nil
}

// collectScope processes each page before the next one is requested.
func (p *Pipeline) collectScope(ctx context.Context, scope domain.Scope, pages *atomic.Int64) ([]domain.JobRecord, error) {
	enrich := p.shouldEnrich(scope)

	var kept []domain.JobRecord
	err := p.source.Walk(ctx, scope, func(_ int, jobs []domain.JobRecord) error {
		pages.Add(1)
		p.metrics.PageFetched()

		for _, job := range jobs {
			if p.matches(ctx, job, enrich) {
				p.metrics.JobMatched()
				kept = append(kept, job)
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return kept, nil
}

// matches consults the detail page only when title and snippet do not match.
func (p *Pipeline) matches(ctx context.Context, job domain.JobRecord, enrich bool) bool {
	if p.filter.Match(job, "") {
		return true
	}
	if !enrich {
		return false
	}

	detail, ok := p.detail.FetchDetail(ctx, job)
	if !ok {
		return false
	}
	return p.filter.Match(job, detail)
}

func (p *Pipeline) shouldEnrich(scope domain.Scope) bool {
	if p.detail == nil || p.registry == nil || !p.filter.Active() {
		return false
	}
	strategy, err := p.registry.Resolve(scope.Kind)
	return err == nil && strategy.Enrich
}

// commit inserts jobs one by one; a failing record does not stop its siblings
// and a failing notification never undoes the insert.
func (p *Pipeline) commit(ctx context.Context, logger *slog.Logger, jobs []domain.JobRecord, report *CycleReport) {
	for _, job := range jobs {
		inserted, err := p.store.InsertIfAbsent(ctx, job)
		if err != nil {
			report.InsertErrors++
			p.metrics.InsertFailed()
			logger.Error("failed to insert job", "job_id", job.ID, "error", err)
			continue
		}
		if !inserted {
			report.Known++
			continue
		}

		report.Inserted++
		p.metrics.JobInserted()
		logger.Info("new job added", "job_id", job.ID, "title", job.Title, "organization", job.Organization)

		if p.notifier == nil {
			continue
		}
		if err := p.notifier.Deliver(ctx, NewJobMessage(p.recipient, job)); err != nil {
			report.NotifyErrors++
			p.metrics.NotificationFailed()
			logger.Error("failed to notify", "job_id", job.ID, "error", err)
		}
	}
}
