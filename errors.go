package pipeline

import "errors"

var (
	// Precondition errors. These fail fast: no external call is issued.
	ErrUnknownRegion = errors.New("pipeline: unknown region")
	ErrUnknownSlot   = errors.New("pipeline: unknown slot index")
	ErrNoKeywords    = errors.New("pipeline: keyword list empty")

	// Domain errors.
	ErrNoQualifyingQuery = errors.New("pipeline: no keyword variant met the quality thresholds")
)
