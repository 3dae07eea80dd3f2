package selection_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/metadata"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/predictor"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/selection"
)

// ──────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────

type fakeMetadata struct {
	items    []metadata.Item
	features []metadata.FeatureRecord
	err      error
}

func (f *fakeMetadata) Search(_ context.Context, _ string, _ metadata.SearchOpts) ([]metadata.Item, error) {
	return f.items, f.err
}

func (f *fakeMetadata) BuildFeatures(_ context.Context, _ []string, _ string) ([]metadata.FeatureRecord, error) {
	return f.features, f.err
}

type fakePredictor struct {
	predictions []predictor.Prediction
	err         error
}

func (f *fakePredictor) Predict(_ context.Context, _ []metadata.FeatureRecord) ([]predictor.Prediction, error) {
	return f.predictions, f.err
}

// nItems builds n short-form items with ids v0..v(n-1), observed views
// 100 each, and predictions of pred each.
func nItems(n int, pred float64) (*fakeMetadata, *fakePredictor) {
	md := &fakeMetadata{}
	pd := &fakePredictor{}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("v%d", i)
		md.items = append(md.items, metadata.Item{ID: id, Title: "t" + id, ChannelLabel: "c" + id, PublishedAt: time.Now()})
		md.features = append(md.features, metadata.FeatureRecord{ID: id, ShortForm: true, Views: 100})
		pd.predictions = append(pd.predictions, predictor.Prediction{ID: id, Predicted: pred})
	}
	return md, pd
}

func testConfig() selection.Config {
	return selection.Config{
		MinSearchResults:      4,
		MinQualifyingCount:    3,
		MinPredictedThreshold: 1000,
		MinQualifiedVideos:    3,
		TopK:                  4,
		SearchLimit:           50,
		RecencyWindow:         7 * 24 * time.Hour,
		ShortFormOnly:         true,
	}
}

func wantRejection(t *testing.T, err error) *selection.RejectionError {
	t.Helper()
	var rej *selection.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want *RejectionError", err)
	}
	return rej
}

// ──────────────────────────────────────────────────
// Threshold boundaries
// ──────────────────────────────────────────────────

func TestValidateQuery_RejectsBelowMinSearchResults(t *testing.T) {
	md, pd := nItems(3, 5000) // one below MinSearchResults=4
	svc := selection.New(md, pd, testConfig())

	_, err := svc.ValidateQuery(context.Background(), "KR", "q")
	rej := wantRejection(t, err)
	if rej.Query != "q" {
		t.Errorf("rejection query = %q, want %q", rej.Query, "q")
	}
}

func TestValidateQuery_PassesAtExactlyMinSearchResults(t *testing.T) {
	md, pd := nItems(4, 5000)
	svc := selection.New(md, pd, testConfig())

	got, err := svc.ValidateQuery(context.Background(), "KR", "q")
	if err != nil {
		t.Fatalf("ValidateQuery returned error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("candidates = %d, want 4", len(got))
	}
}

func TestValidateQuery_FormatFilterBoundary(t *testing.T) {
	tests := []struct {
		name      string
		shortForm int
		wantPass  bool
	}{
		{"one below qualifying count", 2, false},
		{"exactly qualifying count", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, pd := nItems(6, 5000)
			for i := range md.features {
				md.features[i].ShortForm = i < tt.shortForm
			}
			// MinQualifiedVideos must not mask the qualifying-count cut.
			cfg := testConfig()
			cfg.MinQualifiedVideos = 1
			svc := selection.New(md, pd, cfg)

			_, err := svc.ValidateQuery(context.Background(), "KR", "q")
			if tt.wantPass && err != nil {
				t.Fatalf("ValidateQuery returned error: %v", err)
			}
			if !tt.wantPass {
				wantRejection(t, err)
			}
		})
	}
}

func TestValidateQuery_PredictedThresholdDropsLowItems(t *testing.T) {
	md, pd := nItems(6, 5000)
	// Three items fall below the predicted threshold of 1000.
	pd.predictions[0].Predicted = 999
	pd.predictions[2].Predicted = 500
	pd.predictions[4].Predicted = 10

	svc := selection.New(md, pd, testConfig())
	got, err := svc.ValidateQuery(context.Background(), "KR", "q")
	if err != nil {
		t.Fatalf("ValidateQuery returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3", len(got))
	}
	for _, c := range got {
		if c.Predicted < 1000 {
			t.Errorf("candidate %s predicted %.0f below threshold", c.ID, c.Predicted)
		}
	}
}

func TestValidateQuery_QualifiedCountBoundary(t *testing.T) {
	tests := []struct {
		name      string
		qualified int
		wantPass  bool
	}{
		{"one below qualified minimum", 2, false},
		{"exactly qualified minimum", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, pd := nItems(6, 100) // all below threshold by default
			for i := 0; i < tt.qualified; i++ {
				pd.predictions[i].Predicted = 5000
			}
			svc := selection.New(md, pd, testConfig())

			_, err := svc.ValidateQuery(context.Background(), "KR", "q")
			if tt.wantPass && err != nil {
				t.Fatalf("ValidateQuery returned error: %v", err)
			}
			if !tt.wantPass {
				wantRejection(t, err)
			}
		})
	}
}

// ──────────────────────────────────────────────────
// Ranking
// ──────────────────────────────────────────────────

func TestValidateQuery_SortsByDeltaDescending(t *testing.T) {
	md, pd := nItems(4, 0)
	pd.predictions[0].Predicted = 2000 // delta 1900
	pd.predictions[1].Predicted = 9000 // delta 8900
	pd.predictions[2].Predicted = 4000 // delta 3900
	pd.predictions[3].Predicted = 3000 // delta 2900

	svc := selection.New(md, pd, testConfig())
	got, err := svc.ValidateQuery(context.Background(), "KR", "q")
	if err != nil {
		t.Fatalf("ValidateQuery returned error: %v", err)
	}

	wantOrder := []string{"v1", "v2", "v3", "v0"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("rank %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestValidateQuery_TiesPreserveSearchOrder(t *testing.T) {
	md, pd := nItems(5, 5000) // identical deltas across the board
	svc := selection.New(md, pd, testConfig())

	got, err := svc.ValidateQuery(context.Background(), "KR", "q")
	if err != nil {
		t.Fatalf("ValidateQuery returned error: %v", err)
	}
	wantOrder := []string{"v0", "v1", "v2", "v3"} // capped at TopK=4
	if len(got) != len(wantOrder) {
		t.Fatalf("candidates = %d, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("rank %d = %s, want %s (stable tie-break)", i, got[i].ID, want)
		}
	}
}

func TestValidateQuery_ComputesDelta(t *testing.T) {
	md, pd := nItems(4, 5000) // observed 100 each
	svc := selection.New(md, pd, testConfig())

	got, err := svc.ValidateQuery(context.Background(), "KR", "q")
	if err != nil {
		t.Fatalf("ValidateQuery returned error: %v", err)
	}
	for _, c := range got {
		if c.Delta != 4900 {
			t.Errorf("candidate %s delta = %.0f, want 4900", c.ID, c.Delta)
		}
	}
}

// ──────────────────────────────────────────────────
// Transport failures pass through
// ──────────────────────────────────────────────────

func TestValidateQuery_PropagatesSearchError(t *testing.T) {
	errBoom := errors.New("connection refused")
	md := &fakeMetadata{err: errBoom}
	svc := selection.New(md, &fakePredictor{}, testConfig())

	_, err := svc.ValidateQuery(context.Background(), "KR", "q")
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want wrapped %v", err, errBoom)
	}
	var rej *selection.RejectionError
	if errors.As(err, &rej) {
		t.Error("transport error must not be a RejectionError")
	}
}

func TestValidateQuery_PropagatesPredictorError(t *testing.T) {
	errBoom := errors.New("predictor down")
	md, _ := nItems(5, 0)
	svc := selection.New(md, &fakePredictor{err: errBoom}, testConfig())

	_, err := svc.ValidateQuery(context.Background(), "KR", "q")
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want %v", err, errBoom)
	}
}
