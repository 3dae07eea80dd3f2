// Package predictor defines the scoring-predictor collaborator contract:
// batch prediction of the target metric from per-item feature records.
package predictor

import (
	"context"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/metadata"
)

// Prediction is the predicted metric for one item.
type Prediction struct {
	ID        string  `json:"id"`
	Predicted float64 `json:"predicted"`
}

// Client is the scoring-predictor collaborator.
type Client interface {
	// Predict returns one prediction per feature record.
	Predict(ctx context.Context, records []metadata.FeatureRecord) ([]Prediction, error)
}
