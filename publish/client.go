// Package publish defines the publish collaborator contract and the
// per-region enablement gate.
package publish

import "context"

// Request describes one publish invocation.
type Request struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	FilePath    string   `json:"file_path"`
}

// Response is a successful publish result.
type Response struct {
	// PlatformID is the identifier assigned by the target platform.
	PlatformID string `json:"platform_id"`
}

// Error is a domain failure reported by the publisher.
type Error struct {
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string { return "publish: " + e.Reason }

// Client is the publish collaborator.
type Client interface {
	// Publish uploads the artifact. A domain failure is returned as
	// *Error; other errors are transport-level.
	Publish(ctx context.Context, req Request) (*Response, error)
}

// Gate decides whether publishing is enabled for a region.
type Gate interface {
	IsEnabled(region string) bool
}

// RegionGate is a static Gate backed by configuration. Absent regions are
// disabled.
type RegionGate map[string]bool

// IsEnabled implements Gate.
func (g RegionGate) IsEnabled(region string) bool { return g[region] }
