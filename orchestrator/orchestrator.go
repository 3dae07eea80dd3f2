// Package orchestrator drives each run through its stages: keyword
// discovery per region, then selection, assembly, and publish per slot
// job. Every transition is persisted before the next external call, so a
// crashed run resumes exactly where it left off.
//
// Scheduling is single-threaded cooperative: regions and slots are
// processed strictly sequentially, and the run document has exactly one
// active mutator at a time.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/assembly"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/discovery"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/metadata"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/observability"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/publish"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/refine"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/retry"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/selection"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
)

// Config holds orchestrator-level settings.
type Config struct {
	// WorkRoot is the root directory for per-slot working areas.
	WorkRoot string

	// DiscoveryWindow is the trend-discovery lookback window.
	DiscoveryWindow time.Duration

	// MinKeywords is the minimum usable ranked keyword list length.
	// Shorter discovery results are treated as retryable failures, not
	// empty successes.
	MinKeywords int

	// MaxVariants caps how many refined query variants are tried per
	// keyword.
	MaxVariants int

	// SignalSampleSize is how many search hits feed the refinement
	// signal.
	SignalSampleSize int

	// AssembleTimeout is the hard per-attempt timeout for assembly.
	AssembleTimeout time.Duration

	// AssemblyParams are passthrough assembler settings.
	AssemblyParams map[string]string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WorkRoot:         "work",
		DiscoveryWindow:  7 * 24 * time.Hour,
		MinKeywords:      2,
		MaxVariants:      5,
		SignalSampleSize: 5,
		AssembleTimeout:  10 * time.Minute,
	}
}

// Clients bundles the external collaborators the orchestrator sequences.
type Clients struct {
	Discovery discovery.Client
	Refine    refine.Client
	Metadata  metadata.Client
	Assembly  assembly.Client
	Publish   publish.Client
	Gate      publish.Gate
}

// Orchestrator coordinates run execution against the state store and the
// external collaborators.
type Orchestrator struct {
	store     state.Store
	selection *selection.Service
	clients   Clients
	cfg       Config
	retry     *retry.Policy
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRetryPolicy sets the backoff policy applied to transient
// collaborator failures.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(o *Orchestrator) { o.retry = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithConfig sets the orchestrator configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// New creates an orchestrator.
func New(store state.Store, sel *selection.Service, clients Clients, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		selection: sel,
		clients:   clients,
		cfg:       DefaultConfig(),
		retry:     retry.New(3, 500*time.Millisecond, 8*time.Second),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FinishRun aggregates the run outcome: done iff every region's every
// slot job is done or skipped, else error. It stamps the finish time.
// FinishRun performs no retries and cannot resurrect a failed job.
func (o *Orchestrator) FinishRun(ctx context.Context, runID string) (*state.Run, error) {
	run, err := o.store.LoadOrCreate(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.AllTerminalOK() {
		run.Status = state.StatusDone
	} else {
		run.Status = state.StatusError
	}
	now := time.Now().UTC()
	run.FinishedAt = &now

	if err := o.store.Save(ctx, run); err != nil {
		return nil, err
	}
	o.logger.Info("run finished",
		slog.String("run_id", runID),
		slog.String("status", string(run.Status)),
	)
	return run, nil
}
