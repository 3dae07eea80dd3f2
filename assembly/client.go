// Package assembly defines the asset-assembly collaborator contract. The
// assembler reads the hand-off brief from the slot working directory and
// produces the output artifact there.
package assembly

import (
	"context"
	"os"
)

// Request describes one assembly invocation.
type Request struct {
	// WorkDir is the slot working directory containing the hand-off
	// brief. The assembler writes its artifact there.
	WorkDir string `json:"work_dir"`

	// Topic is the chosen refined query.
	Topic string `json:"topic"`

	// SlotID identifies the production unit, e.g. "2026-08-29/KR/slot-1".
	SlotID string `json:"slot_id"`

	// Params are passthrough assembler settings.
	Params map[string]string `json:"params,omitempty"`
}

// Metadata is the assembler-suggested publish metadata.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Response is a successful assembly result.
type Response struct {
	// OutputFile is the artifact path relative to WorkDir.
	OutputFile string `json:"output_file"`

	// OutputFileAbs is the absolute artifact path.
	OutputFileAbs string `json:"output_file_abs"`

	// Metadata is optional; callers synthesize publish metadata when nil.
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Error is a domain failure reported by the assembler. It is terminal for
// the job: a partially-produced remote artifact makes blind retry unsafe.
type Error struct {
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string { return "assembly: " + e.Reason }

// Client is the asset-assembly collaborator.
type Client interface {
	// Assemble produces the artifact for req. A domain failure is
	// returned as *Error; other errors are transport-level.
	Assemble(ctx context.Context, req Request) (*Response, error)
}

// ArtifactExists reports whether a previously recorded artifact is still
// present. Assembly done-status alone does not prove the artifact
// survived external cleanup, so callers re-check on every run.
func ArtifactExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
