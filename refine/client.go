// Package refine defines the query-refinement collaborator contract:
// turning a raw discovery keyword plus auxiliary signal data into a
// ranked list of refined query variants.
package refine

import "context"

// Signal is the auxiliary context handed to the refiner alongside the
// raw keyword.
type Signal struct {
	Region       string   `json:"region"`
	Keyword      string   `json:"keyword"`
	SampleTitles []string `json:"sample_titles,omitempty"`
}

// Variant is one refined query alternative.
type Variant struct {
	ID    string `json:"id"`
	Theme string `json:"theme"`
	Query string `json:"query"`
}

// Result is the refiner's response: an analysis summary and up to M
// variants, in the refiner's preference order. The order is externally
// observable: validation tries variants exactly as returned.
type Result struct {
	Analysis string    `json:"analysis"`
	Variants []Variant `json:"variants"`
}

// Client is the query-refinement collaborator.
type Client interface {
	Refine(ctx context.Context, rawKeyword string, signal Signal) (*Result, error)
}
