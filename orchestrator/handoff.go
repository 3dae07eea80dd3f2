package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
)

// BriefFilename is the hand-off document name inside a slot working
// directory. It is the only channel through which the assembly
// collaborator learns what to produce, so it must stay consistent with
// the run state.
const BriefFilename = "brief.json"

// Brief is the hand-off document written at the end of the selection
// stage and read by the assembly collaborator.
type Brief struct {
	ID              string            `json:"id"`
	RunID           string            `json:"run_id"`
	Region          string            `json:"region"`
	Slot            int               `json:"slot"`
	Keyword         string            `json:"keyword"`
	OriginalKeyword string            `json:"original_keyword"`
	Theme           string            `json:"theme,omitempty"`
	Candidates      []state.Candidate `json:"candidates"`
	Params          map[string]string `json:"params,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// slotWorkDir returns the working directory for one production unit.
func (o *Orchestrator) slotWorkDir(runID, region string, slot int) string {
	return filepath.Join(o.cfg.WorkRoot, runID, region, fmt.Sprintf("slot-%d", slot))
}

// slotID returns the identifier handed to the assembly collaborator.
func slotID(runID, region string, slot int) string {
	return fmt.Sprintf("%s/%s/slot-%d", runID, region, slot)
}

// writeBrief persists the hand-off document atomically into dir,
// creating the directory if needed.
func (o *Orchestrator) writeBrief(dir string, job *state.SlotJob, runID, region string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("orchestrator: create work dir: %w", err)
	}

	brief := Brief{
		ID:              uuid.NewString(),
		RunID:           runID,
		Region:          region,
		Slot:            job.Slot,
		Keyword:         job.Keyword,
		OriginalKeyword: job.OriginalKeyword,
		Theme:           job.Theme,
		Candidates:      job.Candidates,
		Params:          o.cfg.AssemblyParams,
		CreatedAt:       time.Now().UTC(),
	}
	data, err := json.MarshalIndent(brief, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: encode brief: %w", err)
	}

	tmp, err := os.CreateTemp(dir, BriefFilename+".*.tmp")
	if err != nil {
		return fmt.Errorf("orchestrator: create brief temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("orchestrator: write brief: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("orchestrator: close brief temp: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, BriefFilename)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("orchestrator: commit brief: %w", err)
	}
	return nil
}

// BriefExists reports whether a hand-off document is present in dir.
// Persisted selection state alone does not prove the document survived
// external cleanup, so callers re-check on every run.
func BriefExists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, BriefFilename))
	return err == nil && !info.IsDir()
}

// ReadBrief loads the hand-off document from a slot working directory.
func ReadBrief(dir string) (*Brief, error) {
	data, err := os.ReadFile(filepath.Join(dir, BriefFilename))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read brief: %w", err)
	}
	var brief Brief
	if err := json.Unmarshal(data, &brief); err != nil {
		return nil, fmt.Errorf("orchestrator: decode brief: %w", err)
	}
	return &brief, nil
}
