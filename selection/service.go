// Package selection implements the candidate scoring and acceptance
// algorithm: given one query string, decide whether it yields a
// qualifying candidate set and rank the candidates by delta (predicted
// metric minus observed metric).
//
// Selection is a single-pass greedy filter, not an optimizing search.
// Thresholds are static configuration. First-fit iteration over keywords
// and variants belongs to the orchestrator, not this package.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/metadata"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/predictor"
)

// Config holds the selection thresholds, fixed at construction.
type Config struct {
	// MinSearchResults rejects queries with fewer raw search hits.
	MinSearchResults int

	// MinQualifyingCount rejects queries with fewer items surviving the
	// format filter.
	MinQualifyingCount int

	// MinPredictedThreshold drops items whose predicted metric falls
	// below it.
	MinPredictedThreshold float64

	// MinQualifiedVideos rejects queries with fewer surviving candidates.
	MinQualifiedVideos int

	// TopK caps the returned candidate set.
	TopK int

	// SearchLimit caps the raw search result size.
	SearchLimit int

	// RecencyWindow bounds how old a search hit may be.
	RecencyWindow time.Duration

	// ShortFormOnly keeps only short-form items during the format filter.
	ShortFormOnly bool
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinSearchResults:      4,
		MinQualifyingCount:    3,
		MinPredictedThreshold: 10000,
		MinQualifiedVideos:    3,
		TopK:                  4,
		SearchLimit:           50,
		RecencyWindow:         7 * 24 * time.Hour,
		ShortFormOnly:         true,
	}
}

// ScoredCandidate is a transient scoring record for one item.
type ScoredCandidate struct {
	ID        string
	Title     string
	Channel   string
	Predicted float64
	Observed  float64
	// Delta is predicted minus observed: the ranking score.
	Delta float64
}

// RejectionError is a domain failure: the query did not yield a
// qualifying candidate set. It is never retried.
type RejectionError struct {
	Query  string
	Reason string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("selection: query %q rejected: %s", e.Query, e.Reason)
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service validates queries against the search/metadata and predictor
// collaborators.
type Service struct {
	cfg       Config
	search    metadata.Client
	predictor predictor.Client
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a selection service.
func New(search metadata.Client, pred predictor.Client, cfg Config, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		search:    search,
		predictor: pred,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the service's thresholds.
func (s *Service) Config() Config { return s.cfg }

// ValidateQuery decides whether query yields a qualifying candidate set
// for region, returning the top candidates ranked by delta descending.
// A *RejectionError means the query failed a threshold; any other error
// is transport-level.
func (s *Service) ValidateQuery(ctx context.Context, region, query string) ([]ScoredCandidate, error) {
	// 1. Search within the recency window.
	items, err := s.search.Search(ctx, query, metadata.SearchOpts{
		Limit:        s.cfg.SearchLimit,
		RecencyFloor: s.now().Add(-s.cfg.RecencyWindow),
		Region:       region,
	})
	if err != nil {
		return nil, err
	}
	if len(items) < s.cfg.MinSearchResults {
		return nil, &RejectionError{Query: query, Reason: fmt.Sprintf(
			"insufficient results: %d < %d", len(items), s.cfg.MinSearchResults)}
	}

	// 2. Build features and apply the format filter.
	ids := make([]string, len(items))
	itemByID := make(map[string]metadata.Item, len(items))
	for i, item := range items {
		ids[i] = item.ID
		itemByID[item.ID] = item
	}
	features, err := s.search.BuildFeatures(ctx, ids, region)
	if err != nil {
		return nil, err
	}

	qualifying := features[:0:0]
	for _, f := range features {
		if s.cfg.ShortFormOnly && !f.ShortForm {
			continue
		}
		qualifying = append(qualifying, f)
	}
	if len(qualifying) < s.cfg.MinQualifyingCount {
		return nil, &RejectionError{Query: query, Reason: fmt.Sprintf(
			"too few qualifying items: %d < %d", len(qualifying), s.cfg.MinQualifyingCount)}
	}

	// 3. Predict the target metric for the filtered set.
	predictions, err := s.predictor.Predict(ctx, qualifying)
	if err != nil {
		return nil, err
	}
	predicted := make(map[string]float64, len(predictions))
	for _, p := range predictions {
		predicted[p.ID] = p.Predicted
	}

	// 4. Score items above the predicted threshold, preserving search
	// order for the stable tie-break in step 6.
	var survivors []ScoredCandidate
	for _, f := range qualifying {
		p, ok := predicted[f.ID]
		if !ok || p < s.cfg.MinPredictedThreshold {
			continue
		}
		item := itemByID[f.ID]
		survivors = append(survivors, ScoredCandidate{
			ID:        f.ID,
			Title:     item.Title,
			Channel:   item.ChannelLabel,
			Predicted: p,
			Observed:  f.Views,
			Delta:     p - f.Views,
		})
	}

	// 5. Enough qualified candidates?
	if len(survivors) < s.cfg.MinQualifiedVideos {
		return nil, &RejectionError{Query: query, Reason: fmt.Sprintf(
			"too few qualified candidates: %d < %d", len(survivors), s.cfg.MinQualifiedVideos)}
	}

	// 6. Rank by delta descending; ties keep search order.
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Delta > survivors[j].Delta
	})
	if len(survivors) > s.cfg.TopK {
		survivors = survivors[:s.cfg.TopK]
	}

	s.logger.Debug("query accepted",
		slog.String("query", query),
		slog.String("region", region),
		slog.Int("candidates", len(survivors)),
	)
	return survivors, nil
}
