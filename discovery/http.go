package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// Option configures the HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// HTTPClient talks to the trend sidecar service.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

// NewHTTP creates a client for the trend service at baseURL.
func NewHTTP(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch queries the service's /trends endpoint. The window is rounded
// down to whole days, matching the upstream "now N-d" timeframe.
func (c *HTTPClient) Fetch(ctx context.Context, region string, window time.Duration) ([]string, error) {
	days := int(window.Hours() / 24)
	if days < 1 {
		days = 1
	}

	q := url.Values{}
	q.Set("region", region)
	q.Set("days", strconv.Itoa(days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/trends?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: build request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery: fetch %s: %w", region, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery: fetch %s: unexpected status %d", region, resp.StatusCode)
	}

	var out struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("discovery: decode response: %w", err)
	}
	if len(out.Keywords) == 0 {
		// The upstream returns an empty body when rate-limited or
		// blocked; treat it as a failure so the caller retries.
		return nil, fmt.Errorf("discovery: empty keyword list for %s", region)
	}

	c.logger.Debug("fetched trend keywords",
		slog.String("region", region),
		slog.Int("count", len(out.Keywords)),
	)
	return out.Keywords, nil
}
