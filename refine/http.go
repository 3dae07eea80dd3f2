package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
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

// HTTPClient talks to the refinement sidecar service.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

// NewHTTP creates a client for the refinement service at baseURL.
func NewHTTP(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 2 * time.Minute},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Refine posts the raw keyword and signal to the service's /refine
// endpoint.
func (c *HTTPClient) Refine(ctx context.Context, rawKeyword string, signal Signal) (*Result, error) {
	in := struct {
		Keyword string `json:"keyword"`
		Signal  Signal `json:"signal"`
	}{Keyword: rawKeyword, Signal: signal}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("refine: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/refine", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("refine: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refine: %q: %w", rawKeyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refine: %q: unexpected status %d", rawKeyword, resp.StatusCode)
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("refine: decode response: %w", err)
	}
	c.logger.Debug("refined keyword",
		slog.String("keyword", rawKeyword),
		slog.Int("variants", len(out.Variants)),
	)
	return &out, nil
}
