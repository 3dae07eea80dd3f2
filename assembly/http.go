package assembly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// Option configures the HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom http.Client. The client should carry no
// timeout of its own: the caller bounds each call through its context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// HTTPClient talks to the assembly sidecar service.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

// NewHTTP creates a client for the assembly service at baseURL.
func NewHTTP(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Assemble posts the request to the service's /assemble endpoint. A
// response with ok=false becomes an *Error.
func (c *HTTPClient) Assemble(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("assembly: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assemble", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("assembly: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("assembly: assemble %s: %w", req.SlotID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assembly: assemble %s: unexpected status %d", req.SlotID, resp.StatusCode)
	}

	var out struct {
		OK            bool      `json:"ok"`
		OutputFile    string    `json:"output_file"`
		OutputFileAbs string    `json:"output_file_abs"`
		Metadata      *Metadata `json:"metadata"`
		Error         string    `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("assembly: decode response: %w", err)
	}
	if !out.OK {
		return nil, &Error{Reason: out.Error}
	}

	abs := out.OutputFileAbs
	if abs == "" && out.OutputFile != "" {
		abs = filepath.Join(req.WorkDir, out.OutputFile)
	}
	c.logger.Info("assembled artifact",
		slog.String("slot_id", req.SlotID),
		slog.String("output", abs),
	)
	return &Response{
		OutputFile:    out.OutputFile,
		OutputFileAbs: abs,
		Metadata:      out.Metadata,
	}, nil
}
