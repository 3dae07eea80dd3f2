package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/metadata"
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

// HTTPClient talks to the predictor sidecar service.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

// NewHTTP creates a client for the predictor service at baseURL.
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

// Predict posts the feature batch to the service's /predict endpoint.
func (c *HTTPClient) Predict(ctx context.Context, records []metadata.FeatureRecord) ([]Prediction, error) {
	in := struct {
		Features []metadata.FeatureRecord `json:"features"`
	}{Features: records}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("predictor: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("predictor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictor: predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predictor: predict: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("predictor: decode response: %w", err)
	}
	c.logger.Debug("predicted batch", slog.Int("count", len(out.Predictions)))
	return out.Predictions, nil
}
