package metadata

import (
	"bytes"
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

// HTTPClient talks to the metadata sidecar service.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

// NewHTTP creates a client for the metadata service at baseURL.
func NewHTTP(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search queries the service's /search endpoint.
func (c *HTTPClient) Search(ctx context.Context, query string, opts SearchOpts) ([]Item, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("region", opts.Region)
	if !opts.RecencyFloor.IsZero() {
		q.Set("published_after", opts.RecencyFloor.UTC().Format(time.RFC3339))
	}

	var out struct {
		Items []Item `json:"items"`
	}
	if err := c.get(ctx, "/search?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("metadata: search %q: %w", query, err)
	}
	return out.Items, nil
}

// BuildFeatures posts ids to the service's /features endpoint.
func (c *HTTPClient) BuildFeatures(ctx context.Context, ids []string, region string) ([]FeatureRecord, error) {
	in := struct {
		IDs    []string `json:"ids"`
		Region string   `json:"region"`
	}{IDs: ids, Region: region}

	var out struct {
		Features []FeatureRecord `json:"features"`
	}
	if err := c.post(ctx, "/features", in, &out); err != nil {
		return nil, fmt.Errorf("metadata: build features: %w", err)
	}
	return out.Features, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
