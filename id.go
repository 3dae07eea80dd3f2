package pipeline

import "time"

// DefaultRunID returns the run identifier used when no manual label is
// given: the UTC date, one run per day.
func DefaultRunID(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
