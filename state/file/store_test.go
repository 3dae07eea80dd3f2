package file_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state/file"
)

func TestStore_LoadOrCreateSynthesizesAndPersists(t *testing.T) {
	dir := t.TempDir()
	store, err := file.New(dir, []string{"KR", "US"}, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	run, err := store.LoadOrCreate(ctx, "2026-08-29")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if len(run.Regions) != 2 || len(run.Regions["KR"].Slots) != 3 {
		t.Fatalf("synthesized shape = %d regions / %d slots, want 2/3",
			len(run.Regions), len(run.Regions["KR"].Slots))
	}

	// The default document is committed immediately, not lazily on the
	// first Save.
	if _, err := os.Stat(filepath.Join(dir, "2026-08-29.json")); err != nil {
		t.Fatalf("run document not on disk: %v", err)
	}
}

func TestStore_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := file.New(dir, []string{"KR"}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	run, err := store.LoadOrCreate(ctx, "r1")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	job := run.Regions["KR"].Slots[0]
	job.Status = state.StatusDone
	job.Keyword = "보이그룹 직캠"
	job.Candidates = []state.Candidate{{ID: "a", Predicted: 12000, Observed: 300, Delta: 11700}}
	job.Publish = state.StageState{Status: state.StatusDone, PlatformID: "yt-1"}
	if err := store.Save(ctx, run); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.LoadOrCreate(ctx, "r1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	gotJob := got.Regions["KR"].Slots[0]
	if gotJob.Keyword != "보이그룹 직캠" {
		t.Errorf("keyword = %q, want original non-ASCII value", gotJob.Keyword)
	}
	if len(gotJob.Candidates) != 1 || gotJob.Candidates[0].Delta != 11700 {
		t.Errorf("candidates = %+v, want one with delta 11700", gotJob.Candidates)
	}
	if gotJob.Publish.PlatformID != "yt-1" {
		t.Errorf("platform id = %q, want yt-1", gotJob.Publish.PlatformID)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := file.New(dir, []string{"KR"}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	run, err := store.LoadOrCreate(ctx, "r1")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := store.Save(ctx, run); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("stale temp file %q left behind", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("dir entries = %d, want exactly the run document", len(entries))
	}
}

func TestStore_DistinctRunsDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := file.New(dir, []string{"KR"}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := store.LoadOrCreate(ctx, "2026-08-28"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadOrCreate(ctx, "2026-08-29"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"2026-08-28.json", "2026-08-29.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestStore_CorruptDocumentIsAnError(t *testing.T) {
	dir := t.TempDir()
	store, err := file.New(dir, []string{"KR"}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A corrupt document must surface as an error, never be silently
	// replaced by a fresh default.
	if _, err := store.LoadOrCreate(context.Background(), "bad"); err == nil {
		t.Fatal("LoadOrCreate returned nil error for corrupt document")
	}
}

func TestStore_Ping(t *testing.T) {
	dir := t.TempDir()
	store, err := file.New(dir, []string{"KR"}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := store.Ping(context.Background()); err == nil {
		t.Error("Ping returned nil after state dir removal")
	}
}
