package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// every tick hits the same API host up to five times, and ticks may overlap
const (
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// HTTPError is returned by [Client.Get] when the API answers with a
// non-2xx status.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Client fetches JSON datasets from the optimisation API.
//
// Every request carries the configured headers and is bounded by the
// configured timeout on top of the caller's context. Response bodies are
// limited to 1MB.
type Client struct {
	base       string
	headers    map[string]string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a [Client] for the API rooted at base.
//
// Datasets are requested from {base}/api/{endpoint}; a trailing slash on base
// is ignored. The client has no global timeout: timeout is applied per
// request via the context.
//
// Connection pooling configuration:
//   - MaxIdleConnsPerHost: 10 idle connections
//   - MaxConnsPerHost: 10 concurrent connections
//   - IdleConnTimeout: 60 seconds before closing idle connections
func NewClient(base string, headers map[string]string, timeout time.Duration) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		headers: headers,
		timeout: timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// URL returns the address of an API endpoint.
func (c *Client) URL(endpoint string) string {
	return c.base + "/api/" + endpoint
}

// Get fetches an API endpoint and decodes its JSON body into v.
//
// Transport failures, non-2xx statuses (as [*HTTPError]) and bodies that are
// not valid JSON for v are all returned as errors; v must then be ignored.
func (c *Client) Get(ctx context.Context, endpoint string, v any) error {
	url := c.URL(endpoint)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// read the whole (capped) body so the connection can be reused
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil client. After Close, the client
// remains usable but new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
