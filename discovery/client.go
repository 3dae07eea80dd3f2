// Package discovery defines the keyword-discovery collaborator contract.
// The trend service is unofficial upstream and may return an empty body
// when blocked, so an empty or near-empty list is reported as failure
// rather than an empty success.
package discovery

import (
	"context"
	"time"
)

// Client is the keyword-discovery collaborator.
type Client interface {
	// Fetch returns ranked keywords for region within the lookback
	// window, most- to least-preferred. An empty result is an error.
	Fetch(ctx context.Context, region string, window time.Duration) ([]string, error)
}
