package publish

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

// HTTPClient talks to the publish sidecar service.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

// NewHTTP creates a client for the publish service at baseURL. Uploads
// can be slow, so the default timeout is generous.
func NewHTTP(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 15 * time.Minute},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Publish posts the request to the service's /publish endpoint. A
// response with ok=false becomes an *Error.
func (c *HTTPClient) Publish(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("publish: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/publish", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("publish: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("publish: %q: %w", req.Title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("publish: %q: unexpected status %d", req.Title, resp.StatusCode)
	}

	var out struct {
		OK         bool   `json:"ok"`
		PlatformID string `json:"platform_id"`
		Error      string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("publish: decode response: %w", err)
	}
	if !out.OK {
		return nil, &Error{Reason: out.Error}
	}

	c.logger.Info("published artifact",
		slog.String("title", req.Title),
		slog.String("platform_id", out.PlatformID),
	)
	return &Response{PlatformID: out.PlatformID}, nil
}
