// Package metadata defines the search/metadata collaborator contract:
// querying recent items and building per-item feature records for the
// predictor.
package metadata

import (
	"context"
	"time"
)

// Item is one search hit.
type Item struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ChannelLabel string    `json:"channel_label"`
	PublishedAt  time.Time `json:"published_at"`
}

// SearchOpts bounds a search call.
type SearchOpts struct {
	// Limit caps the result size.
	Limit int

	// RecencyFloor excludes items published before it.
	RecencyFloor time.Time

	// Region scopes the search to a target market.
	Region string
}

// FeatureRecord is the per-item feature vector fed to the predictor.
type FeatureRecord struct {
	ID          string  `json:"id"`
	ShortForm   bool    `json:"short_form"`
	Views       float64 `json:"views"`
	Likes       int64   `json:"likes"`
	Comments    int64   `json:"comments"`
	Subscribers int64   `json:"subscribers"`
}

// Client is the search/metadata collaborator.
type Client interface {
	// Search returns items matching query, in relevance order. The
	// order is externally observable: selection tie-breaks preserve it.
	Search(ctx context.Context, query string, opts SearchOpts) ([]Item, error)

	// BuildFeatures returns one feature record per id, in input order.
	BuildFeatures(ctx context.Context, ids []string, region string) ([]FeatureRecord, error)
}
