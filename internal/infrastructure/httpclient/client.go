package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"JobsScanner/internal/ports"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "JobsScanner/1.0"
	errorBodyLimit   = 1024
)

var placeholderExpr = regexp.MustCompile(`:([a-zA-Z]+)`)

// StatusError is returned for non-2xx responses and carries the response body.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client fetches templated paths below a base URL.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

var _ ports.PageFetcher = (*Client)(nil)

// New builds a client; a zero RequestsPerSecond disables throttling.
func New(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		userAgent: userAgent,
		http:      client,
		limiter:   limiter,
	}
}

// BaseURL returns the site root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get substitutes ":name" placeholders from pathParams, appends the encoded
// query and returns the response body as text.
func (c *Client) Get(ctx context.Context, pathTemplate string, pathParams map[string]string, query url.Values) (string, error) {
	path, err := BuildPath(pathTemplate, pathParams)
	if err != nil {
		return "", err
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body %s: %w", path, err)
	}

	return string(body), nil
}

// BuildPath replaces ":name" placeholders with path-escaped values.
func BuildPath(pathTemplate string, pathParams map[string]string) (string, error) {
	var missing []string
	path := placeholderExpr.ReplaceAllStringFunc(pathTemplate, func(token string) string {
		key := token[1:]
		value, ok := pathParams[key]
		if !ok {
			missing = append(missing, key)
			return token
		}
		return url.PathEscape(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("path %s: missing params %s", pathTemplate, strings.Join(missing, ", "))
	}
	return path, nil
}
