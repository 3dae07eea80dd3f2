package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pipeline "github.com/iam-hyo/2601-VPI-V3--shorts-pipline"
)

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
regions: [KR, US]
slots_per_region: 2
assemble_timeout: 3m
publish_enabled:
  KR: true
state:
  backend: redis
  redis_addr: localhost:6379
selection:
  min_predicted_threshold: 5000
retry:
  max_attempts: 5
  base_delay: 250ms
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := pipeline.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.Regions) != 2 || cfg.Regions[0] != "KR" {
		t.Errorf("regions = %v, want [KR US]", cfg.Regions)
	}
	if cfg.SlotsPerRegion != 2 {
		t.Errorf("slots_per_region = %d, want 2", cfg.SlotsPerRegion)
	}
	if cfg.AssembleTimeout.Std() != 3*time.Minute {
		t.Errorf("assemble_timeout = %s, want 3m", cfg.AssembleTimeout.Std())
	}
	if !cfg.PublishEnabled["KR"] || cfg.PublishEnabled["US"] {
		t.Errorf("publish_enabled = %v, want KR only", cfg.PublishEnabled)
	}
	if cfg.State.Backend != "redis" || cfg.State.RedisAddr != "localhost:6379" {
		t.Errorf("state = %+v, want redis backend", cfg.State)
	}
	if cfg.Selection.MinPredictedThreshold != 5000 {
		t.Errorf("min_predicted_threshold = %v, want 5000", cfg.Selection.MinPredictedThreshold)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BaseDelay.Std() != 250*time.Millisecond {
		t.Errorf("retry = %+v, want 5 attempts at 250ms base", cfg.Retry)
	}

	// Untouched keys keep their defaults.
	if cfg.Selection.TopK != 4 {
		t.Errorf("top_k = %d, want default 4", cfg.Selection.TopK)
	}
	if cfg.Retry.MaxDelay.Std() != 8*time.Second {
		t.Errorf("max_delay = %s, want default 8s", cfg.Retry.MaxDelay.Std())
	}
	if cfg.WorkRoot != "work" {
		t.Errorf("work_root = %q, want default work", cfg.WorkRoot)
	}
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("assemble_timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := pipeline.LoadConfig(path); err == nil {
		t.Fatal("LoadConfig returned nil error for unparseable duration")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := pipeline.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadConfig returned nil error for missing file")
	}
}

func TestDefaultRunID(t *testing.T) {
	// The id is derived from UTC regardless of local zone: early morning
	// KST is still the previous day's run.
	loc := time.FixedZone("KST", 9*3600)
	ts := time.Date(2026, 8, 30, 1, 30, 0, 0, loc) // 2026-08-29T16:30:00Z
	if got := pipeline.DefaultRunID(ts); got != "2026-08-29" {
		t.Errorf("DefaultRunID = %q, want 2026-08-29", got)
	}
}
