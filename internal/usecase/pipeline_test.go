package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/filter"
	"JobsScanner/internal/infrastructure/httpclient"
	"JobsScanner/internal/infrastructure/parser"
	"JobsScanner/internal/infrastructure/storage"
	"JobsScanner/internal/scanner"
)

type recordingNotifier struct {
	mu   sync.Mutex
	err  error
	msgs []domain.Message
}

func (n *recordingNotifier) Deliver(_ context.Context, msg domain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) sent() []domain.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Message(nil), n.msgs...)
}

type stubDetail struct {
	mu    sync.Mutex
	text  string
	ok    bool
	calls []string
}

func (d *stubDetail) FetchDetail(_ context.Context, job domain.JobRecord) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, job.ID)
	return d.text, d.ok
}

// staticSource serves canned pages per scope; failures are consumed one per Walk.
type staticSource struct {
	mu       sync.Mutex
	pages    map[domain.ScopeKind][][]domain.JobRecord
	failures int
}

func (s *staticSource) Walk(_ context.Context, scope domain.Scope, visit func(int, []domain.JobRecord) error) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("listing fetch: connection reset")
	}
	pages := s.pages[scope.Kind]
	s.mu.Unlock()

	for i, page := range pages {
		if err := visit(i+1, page); err != nil {
			return err
		}
	}
	return nil
}

func openStore(t *testing.T) *storage.SQLRepository {
	t.Helper()

	store, err := storage.OpenSQL(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "jobs.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Init(context.Background()))
	return store
}

const listingWith42 = `
<div class="job" id="42">
  <a href="/vacancies/42"><div class="jtitle">Legal Officer</div></a>
  <div class="jobsnippet"><span class="fp-snippet">Provide legal advice</span></div>
  <time datetime="2024-05-01T10:00:00Z"></time>
</div>`

func listingServer(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/organizations/undp":    listingWith42,
		"/organizations/undp/2":  `<p>no more jobs</p>`,
		"/organizations/unhcr":   listingWith42,
		"/organizations/unhcr/2": `<p>no more jobs</p>`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPipelineNotifiesOnceAndSkipsKnownJobs(t *testing.T) {
	t.Parallel()

	server := listingServer(t)
	registry := scanner.NewDefaultRegistry()
	client := httpclient.New(httpclient.Options{BaseURL: server.URL})
	source := parser.NewJobSource(registry, parser.NewPaginator(client, server.URL, nil), nil)
	store := openStore(t)
	notifier := &recordingNotifier{}

	pipeline := NewPipeline(PipelineDeps{
		Source:   source,
		Store:    store,
		Notifier: notifier,
		Registry: registry,
		Filter:   filter.New(nil),
		Scopes: scanner.BuildScopes([]domain.Organization{
			{Name: "UNDP", Code: "undp"},
			{Name: "UNHCR", Code: "unhcr"},
		}, nil),
		Recipient: "ops@example.org",
	})

	ctx := context.Background()
	report, err := pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scopes)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Known)
	assert.NotEmpty(t, report.ID)

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ops@example.org", sent[0].Recipient)
	assert.Contains(t, sent[0].Subject, "New job added - Legal Officer")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	report, err = pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Inserted)
	assert.Equal(t, 2, report.Known)
	assert.Len(t, notifier.sent(), 1, "a known job must not be notified again")

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, StateSucceeded, pipeline.LastOutcome())
	assert.Equal(t, StateIdle, pipeline.State())
}

func TestPipelineFailedScopeCommitsNothing(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	notifier := &recordingNotifier{}
	source := &staticSource{
		failures: 1,
		pages: map[domain.ScopeKind][][]domain.JobRecord{
			domain.ScopeOrganization: {{{ID: "42", Title: "Legal Officer", Organization: "UNDP"}}},
		},
	}

	pipeline := NewPipeline(PipelineDeps{
		Source:      source,
		Store:       store,
		Notifier:    notifier,
		Registry:    scanner.NewDefaultRegistry(),
		Concurrency: 1,
		Scopes: []domain.Scope{
			domain.OrganizationScope(domain.Organization{Name: "UNDP", Code: "undp"}),
			domain.OrganizationScope(domain.Organization{Name: "UNICEF", Code: "unicef"}),
		},
	})

	_, err := pipeline.RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, pipeline.LastOutcome())

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, notifier.sent())
}

func TestPipelineEnrichesOnlyUnmatchedDutyStationJobs(t *testing.T) {
	t.Parallel()

	detail := &stubDetail{text: "Fluency in Arabic required", ok: true}
	store := openStore(t)
	source := &staticSource{pages: map[domain.ScopeKind][][]domain.JobRecord{
		domain.ScopeDutyStation: {{
			{ID: "1", Title: "Arabic Translator"},
			{ID: "2", Title: "Legal Officer"},
		}},
		domain.ScopeOrganization: {{
			{ID: "3", Title: "Finance Officer"},
		}},
	}}

	pipeline := NewPipeline(PipelineDeps{
		Source:   source,
		Store:    store,
		Detail:   detail,
		Registry: scanner.NewDefaultRegistry(),
		Filter:   filter.New([]string{"arabic"}),
		Scopes: []domain.Scope{
			domain.DutyStationScope(domain.DutyStation{Name: "Beirut", Code: "beirut"}),
			domain.OrganizationScope(domain.Organization{Name: "UNDP", Code: "undp"}),
		},
	})

	report, err := pipeline.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, []string{"2"}, detail.calls, "detail pages are only opened for unmatched duty station jobs")
}

func TestPipelineDetailFailureFallsThroughToFilter(t *testing.T) {
	t.Parallel()

	detail := &stubDetail{ok: false}
	source := &staticSource{pages: map[domain.ScopeKind][][]domain.JobRecord{
		domain.ScopeDutyStation: {{{ID: "2", Title: "Legal Officer"}}},
	}}

	pipeline := NewPipeline(PipelineDeps{
		Source:   source,
		Store:    openStore(t),
		Detail:   detail,
		Registry: scanner.NewDefaultRegistry(),
		Filter:   filter.New([]string{"arabic"}),
		Scopes:   []domain.Scope{domain.DutyStationScope(domain.DutyStation{Name: "Beirut", Code: "beirut"})},
	})

	report, err := pipeline.RunCycle(context.Background())
	require.NoError(t, err, "an unavailable detail page is not a cycle failure")
	assert.Zero(t, report.Matched)
	assert.Len(t, detail.calls, 1)
}

func TestPipelineNotificationFailureKeepsInsert(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	source := &staticSource{pages: map[domain.ScopeKind][][]domain.JobRecord{
		domain.ScopeOrganization: {{
			{ID: "1", Title: "A"},
			{ID: "2", Title: "B"},
		}},
	}}

	pipeline := NewPipeline(PipelineDeps{
		Source:   source,
		Store:    store,
		Notifier: notifier,
		Scopes:   []domain.Scope{domain.OrganizationScope(domain.Organization{Name: "UNDP", Code: "undp"})},
	})

	report, err := pipeline.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 2, report.NotifyErrors)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) Walk(ctx context.Context, _ domain.Scope, _ func(int, []domain.JobRecord) error) error {
	close(s.started)
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return errors.New("not released")
	}
}

func TestPipelineRejectsOverlappingCycles(t *testing.T) {
	t.Parallel()

	source := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	pipeline := NewPipeline(PipelineDeps{
		Source: source,
		Store:  openStore(t),
		Scopes: []domain.Scope{domain.OrganizationScope(domain.Organization{Name: "UNDP", Code: "undp"})},
	})

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.RunCycle(context.Background())
		done <- err
	}()

	<-source.started
	assert.Equal(t, StateRunning, pipeline.State())

	_, err := pipeline.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleRunning)

	close(source.release)
	require.NoError(t, <-done)
}
