package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/infrastructure/httpclient"
	"JobsScanner/internal/scanner"
)

type pageServer struct {
	mu    sync.Mutex
	paths []string
	pages map[string]string
}

func (s *pageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	s.mu.Unlock()

	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(body))
}

func (s *pageServer) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func TestPaginatorFetchAll(t *testing.T) {
	t.Parallel()

	pages := &pageServer{pages: map[string]string{
		"/organizations/undp": `
			<div class="job" id="1"><a href="/v/1"><div class="jtitle">One</div></a></div>
			<div class="job"><div class="jtitle">Header row</div></div>`,
		"/organizations/undp/2": `
			<div class="job"><div class="jtitle">Only malformed rows</div></div>`,
		"/organizations/undp/3": `
			<div class="job" id="3"><a href="/v/3"><div class="jtitle">Three</div></a></div>`,
		"/organizations/undp/4": `<p>nothing here</p>`,
	}}
	server := httptest.NewServer(pages)
	defer server.Close()

	client := httpclient.New(httpclient.Options{BaseURL: server.URL})
	paginator := NewPaginator(client, server.URL, nil)
	scope := domain.OrganizationScope(domain.Organization{Name: "UNDP", Code: "undp"})

	jobs, err := paginator.FetchAll(context.Background(), scope, mustStrategy(t, domain.ScopeOrganization))
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}

	if len(jobs) != 2 || jobs[0].ID != "1" || jobs[1].ID != "3" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}

	want := []string{"/organizations/undp", "/organizations/undp/2", "/organizations/undp/3", "/organizations/undp/4"}
	got := pages.requested()
	if len(got) != len(want) {
		t.Fatalf("expected requests %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("request %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestPaginatorStopsOnFirstEmptyPage(t *testing.T) {
	t.Parallel()

	pages := &pageServer{pages: map[string]string{
		"/offices/undp_nairobi": `<html><body></body></html>`,
	}}
	server := httptest.NewServer(pages)
	defer server.Close()

	paginator := NewPaginator(httpclient.New(httpclient.Options{BaseURL: server.URL}), server.URL, nil)
	scope := domain.OfficeScope(domain.Organization{Name: "UNDP", Code: "undp"}, domain.DutyStation{Name: "Nairobi", Code: "nairobi"})

	visits := 0
	err := paginator.Walk(context.Background(), scope, mustStrategy(t, domain.ScopeOffice), func(int, Page) error {
		visits++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if visits != 0 {
		t.Fatalf("expected no visits, got %d", visits)
	}
	if got := pages.requested(); len(got) != 1 {
		t.Fatalf("expected a single request, got %v", got)
	}
}

func TestPaginatorPropagatesFetchError(t *testing.T) {
	t.Parallel()

	pages := &pageServer{pages: map[string]string{
		"/organizations/undp": `<div class="job" id="1"><a href="/v/1">One</a></div>`,
	}}
	server := httptest.NewServer(pages)
	defer server.Close()

	paginator := NewPaginator(httpclient.New(httpclient.Options{BaseURL: server.URL}), server.URL, nil)
	scope := domain.OrganizationScope(domain.Organization{Name: "UNDP", Code: "undp"})

	_, err := paginator.FetchAll(context.Background(), scope, mustStrategy(t, domain.ScopeOrganization))
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
}

func TestJobSourceWalk(t *testing.T) {
	t.Parallel()

	pages := &pageServer{pages: map[string]string{
		"/duty_stations/geneva": `
			<a href="/v/5"><div class="job" id="5"><div class="jtitle">Analyst</div><br>WHO<br></div></a>`,
		"/duty_stations/geneva/2": ``,
	}}
	server := httptest.NewServer(pages)
	defer server.Close()

	client := httpclient.New(httpclient.Options{BaseURL: server.URL})
	source := NewJobSource(scanner.NewDefaultRegistry(), NewPaginator(client, client.BaseURL(), nil), nil)

	var collected []domain.JobRecord
	err := source.Walk(context.Background(), domain.DutyStationScope(domain.DutyStation{Name: "Geneva", Code: "geneva"}), func(_ int, jobs []domain.JobRecord) error {
		collected = append(collected, jobs...)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk error: %v", err)
	}

	if len(collected) != 1 || collected[0].Organization != "WHO" || collected[0].URL != server.URL+"/v/5" {
		t.Fatalf("unexpected jobs: %+v", collected)
	}
}

func TestJobSourceUnknownKind(t *testing.T) {
	t.Parallel()

	source := NewJobSource(scanner.NewRegistry(), NewPaginator(nil, "", nil), nil)
	err := source.Walk(context.Background(), domain.Scope{Kind: "bogus"}, func(int, []domain.JobRecord) error { return nil })
	if err == nil {
		t.Fatal("expected error for unregistered scope kind")
	}
}
