package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestBuildPath(t *testing.T) {
	t.Parallel()

	path, err := BuildPath("/offices/:param/:page", map[string]string{"param": "undp_new york", "page": "2"})
	if err != nil {
		t.Fatalf("BuildPath returned error: %v", err)
	}
	if path != "/offices/undp_new%20york/2" {
		t.Fatalf("unexpected path: %s", path)
	}

	if _, err := BuildPath("/organizations/:param", nil); err == nil {
		t.Fatal("expected error for missing param")
	}
}

func TestClientGet(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL + "/", UserAgent: "test-agent", RequestsPerSecond: 100})
	body, err := client.Get(context.Background(), "/organizations/:param", map[string]string{"param": "undp"}, url.Values{"lang": {"en"}})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if body != "<html>ok</html>" {
		t.Fatalf("unexpected body: %s", body)
	}
	if gotPath != "/organizations/undp" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotQuery != "lang=en" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if gotAgent != "test-agent" {
		t.Fatalf("unexpected user agent: %s", gotAgent)
	}
}

func TestClientGetStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL})
	_, err := client.Get(context.Background(), "/organizations/:param", map[string]string{"param": "undp"}, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable || statusErr.Body != "maintenance" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}
