// Package state defines the persisted run-state document and the Store
// interface its backends implement. A run document is owned exclusively
// by its store: it is mutated only through orchestrator calls, each
// followed by an immediate Save.
package state

import "time"

// Status is the lifecycle state shared by runs, regions, keyword stages,
// slot jobs, and nested sub-stages.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusSkipped is a terminal alternative to done, used for the
	// publish sub-stage when publishing is disabled for a region.
	StatusSkipped Status = "skipped"
)

// TerminalOK reports whether s is done or skipped.
func (s Status) TerminalOK() bool {
	return s == StatusDone || s == StatusSkipped
}

// Run is the per-run document, one per run identifier.
type Run struct {
	ID         string                  `json:"id"`
	Status     Status                  `json:"status"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
	Regions    map[string]*RegionState `json:"regions"`
}

// RegionState tracks one region's keyword stage and its ordered slot jobs.
type RegionState struct {
	Status  Status       `json:"status"`
	Keyword KeywordState `json:"keyword"`
	Slots   []*SlotJob   `json:"slots"`
}

// KeywordState tracks the ranked keyword discovery stage for a region.
// Invariant: Keywords is non-empty only when Status is done.
type KeywordState struct {
	Status    Status    `json:"status"`
	Keywords  []string  `json:"keywords,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageState is the nested life-cycle of a single sub-stage (assembly or
// publish) inside a slot job.
type StageState struct {
	Status     Status `json:"status"`
	Error      string `json:"error,omitempty"`
	PlatformID string `json:"platform_id,omitempty"`
}

// Candidate is one selected item in a slot job's qualifying candidate set.
type Candidate struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Channel   string  `json:"channel"`
	Predicted float64 `json:"predicted"`
	Observed  float64 `json:"observed"`
	Delta     float64 `json:"delta"`
}

// SlotJob is one production unit within a region. Transitions are
// monotonic except error: a re-invocation of the same run id may retry
// from the failure point, treating already-populated fields as
// authoritative cache.
type SlotJob struct {
	Slot            int         `json:"slot"`
	Status          Status      `json:"status"`
	Keyword         string      `json:"keyword,omitempty"`
	OriginalKeyword string      `json:"original_keyword,omitempty"`
	Theme           string      `json:"theme,omitempty"`
	Candidates      []Candidate `json:"candidates,omitempty"`
	Assembly        StageState  `json:"assembly"`
	Publish         StageState  `json:"publish"`
	OutputFile      string      `json:"output_file,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// NewRun synthesizes the default document for a run id: one RegionState
// per configured region, each pre-allocated with slotsPerRegion pending
// slot jobs.
func NewRun(id string, regions []string, slotsPerRegion int) *Run {
	now := time.Now().UTC()
	run := &Run{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Regions:   make(map[string]*RegionState, len(regions)),
	}
	for _, region := range regions {
		rs := &RegionState{
			Status:  StatusPending,
			Keyword: KeywordState{Status: StatusPending, UpdatedAt: now},
			Slots:   make([]*SlotJob, 0, slotsPerRegion),
		}
		for i := 0; i < slotsPerRegion; i++ {
			rs.Slots = append(rs.Slots, &SlotJob{
				Slot:     i,
				Status:   StatusPending,
				Assembly: StageState{Status: StatusPending},
				Publish:  StageState{Status: StatusPending},
			})
		}
		run.Regions[region] = rs
	}
	return run
}

// Terminal reports whether the job has reached done or skipped.
func (j *SlotJob) Terminal() bool { return j.Status.TerminalOK() }

// SelectionComplete is the derived stage-completion predicate for the
// selection stage: the job has a chosen keyword and a full qualifying
// candidate set of at least minCandidates entries. Resume decisions use
// this predicate, never incidental field truthiness.
func (j *SlotJob) SelectionComplete(minCandidates int) bool {
	return j.Keyword != "" && len(j.Candidates) >= minCandidates
}

// Done reports whether every slot job is done or skipped.
// Invariant: the region status is done iff Done holds.
func (r *RegionState) Done() bool {
	for _, j := range r.Slots {
		if !j.Terminal() {
			return false
		}
	}
	return true
}

// ClaimedKeywords returns the keywords already claimed by slots other
// than exceptSlot, so a sibling's selection loop can skip them.
func (r *RegionState) ClaimedKeywords(exceptSlot int) map[string]bool {
	claimed := make(map[string]bool)
	for _, j := range r.Slots {
		if j.Slot == exceptSlot {
			continue
		}
		if j.OriginalKeyword != "" {
			claimed[j.OriginalKeyword] = true
		}
		if j.Keyword != "" {
			claimed[j.Keyword] = true
		}
	}
	return claimed
}

// AllTerminalOK reports whether every region's every slot job is done or
// skipped.
func (r *Run) AllTerminalOK() bool {
	for _, rs := range r.Regions {
		if !rs.Done() {
			return false
		}
	}
	return true
}
