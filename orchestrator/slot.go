package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pipeline "github.com/iam-hyo/2601-VPI-V3--shorts-pipline"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/assembly"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/metadata"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/publish"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/refine"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/retry"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/selection"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
)

// acceptance is the outcome of a successful selection loop.
type acceptance struct {
	keyword    string
	variant    refine.Variant
	candidates []selection.ScoredCandidate
}

// AdvanceSlot drives one slot job through selection, assembly, and
// publish. Already-recorded progress is authoritative cache: completed
// stages are skipped, making the call idempotent under re-invocation of
// the same run id. A job that is already done or skipped performs zero
// external calls.
func (o *Orchestrator) AdvanceSlot(ctx context.Context, runID, region string, slot int) error {
	run, err := o.store.LoadOrCreate(ctx, runID)
	if err != nil {
		return err
	}
	rs, ok := run.Regions[region]
	if !ok {
		return fmt.Errorf("%w: %s", pipeline.ErrUnknownRegion, region)
	}
	if slot < 0 || slot >= len(rs.Slots) {
		return fmt.Errorf("%w: %s[%d]", pipeline.ErrUnknownSlot, region, slot)
	}
	job := rs.Slots[slot]
	if job.Terminal() {
		o.logger.Debug("slot already terminal",
			slog.String("run_id", runID),
			slog.String("region", region),
			slog.Int("slot", slot),
		)
		return nil
	}

	if rs.Status == state.StatusPending {
		rs.Status = state.StatusRunning
	}
	job.Status = state.StatusRunning
	job.Error = ""
	if err := o.store.Save(ctx, run); err != nil {
		return err
	}

	workDir := o.slotWorkDir(runID, region, slot)

	// Stage A: selection. Skipped when the job already has a keyword
	// plus a full candidate set; re-running it would re-spend external
	// quota for an identical answer.
	if !job.SelectionComplete(o.selection.Config().MinQualifiedVideos) {
		if rs.Keyword.Status != state.StatusDone || len(rs.Keyword.Keywords) == 0 {
			return o.failJob(ctx, run, region, job, pipeline.ErrNoKeywords.Error(), pipeline.ErrNoKeywords)
		}

		acc, selErr := o.selectQuery(ctx, rs, region, job.Slot)
		if selErr != nil {
			return o.failJob(ctx, run, region, job, selErr.Error(), selErr)
		}

		job.Keyword = acc.variant.Query
		job.OriginalKeyword = acc.keyword
		job.Theme = acc.variant.Theme
		job.Candidates = toStateCandidates(acc.candidates)
		if err := o.store.Save(ctx, run); err != nil {
			return err
		}
		if err := o.writeBrief(workDir, job, runID, region); err != nil {
			return o.failJob(ctx, run, region, job, err.Error(), err)
		}
		o.logger.Info("selection done",
			slog.String("run_id", runID),
			slog.String("region", region),
			slog.Int("slot", slot),
			slog.String("keyword", job.Keyword),
			slog.Int("candidates", len(job.Candidates)),
		)
	} else if !BriefExists(workDir) {
		// Selection is recorded but the hand-off document is gone: a
		// crash between saving the run state and committing the brief,
		// or external cleanup of the working area. Rewrite it from the
		// persisted job fields so assembly and run state agree.
		if err := o.writeBrief(workDir, job, runID, region); err != nil {
			return o.failJob(ctx, run, region, job, err.Error(), err)
		}
		o.logger.Warn("rewrote missing hand-off brief",
			slog.String("run_id", runID),
			slog.String("region", region),
			slog.Int("slot", slot),
		)
	}

	// Stage B: assembly. Done status alone does not prove the artifact
	// survived external cleanup, so existence is re-checked every run.
	var asmMeta *assembly.Metadata
	if job.Assembly.Status != state.StatusDone || !assembly.ArtifactExists(job.OutputFile) {
		meta, asmErr := o.runAssembly(ctx, run, rs, region, job, workDir)
		if asmErr != nil {
			return asmErr
		}
		asmMeta = meta
	}

	// Stage C: publish.
	if pubErr := o.runPublish(ctx, run, region, job, asmMeta); pubErr != nil {
		return pubErr
	}

	// Completion: done only when assembly is done and publish is done
	// or skipped.
	if job.Assembly.Status == state.StatusDone && job.Publish.Status.TerminalOK() {
		job.Status = state.StatusDone
		job.Error = ""
	}
	if rs.Done() {
		rs.Status = state.StatusDone
	}
	if err := o.store.Save(ctx, run); err != nil {
		return err
	}
	o.logger.Info("slot done",
		slog.String("run_id", runID),
		slog.String("region", region),
		slog.Int("slot", slot),
	)
	return nil
}

// selectQuery iterates unclaimed keywords in rank order and their
// refined variants in collaborator order, accepting the first query that
// validates. First-fit, not best-fit: an earlier-ranked keyword always
// wins even if a later one would score higher.
func (o *Orchestrator) selectQuery(ctx context.Context, rs *state.RegionState, region string, slot int) (*acceptance, error) {
	claimed := rs.ClaimedKeywords(slot)

	for _, keyword := range rs.Keyword.Keywords {
		if claimed[keyword] {
			o.logger.Debug("keyword claimed by sibling slot",
				slog.String("region", region),
				slog.String("keyword", keyword),
			)
			continue
		}

		signal := o.buildSignal(ctx, region, keyword)
		result, err := retry.DoValue(ctx, o.retry, "refine."+region,
			func(ctx context.Context) (*refine.Result, error) {
				return o.clients.Refine.Refine(ctx, keyword, signal)
			})
		if err != nil {
			return nil, err
		}

		variants := result.Variants
		if len(variants) > o.cfg.MaxVariants {
			variants = variants[:o.cfg.MaxVariants]
		}
		for _, variant := range variants {
			candidates, rejected, valErr := o.validateVariant(ctx, region, variant.Query)
			if valErr != nil {
				return nil, valErr
			}
			if rejected != nil {
				o.logger.Debug("variant rejected",
					slog.String("region", region),
					slog.String("query", variant.Query),
					slog.String("reason", rejected.Reason),
				)
				continue
			}
			return &acceptance{keyword: keyword, variant: variant, candidates: candidates}, nil
		}
	}
	return nil, pipeline.ErrNoQualifyingQuery
}

// validateVariant runs one query through the selection service under the
// retry policy. Domain rejections are captured below the policy so they
// are never retried; only transport failures consume the attempt budget.
func (o *Orchestrator) validateVariant(ctx context.Context, region, query string) ([]selection.ScoredCandidate, *selection.RejectionError, error) {
	var rejection *selection.RejectionError
	candidates, err := retry.DoValue(ctx, o.retry, "validate."+region,
		func(ctx context.Context) ([]selection.ScoredCandidate, error) {
			cands, valErr := o.selection.ValidateQuery(ctx, region, query)
			if valErr != nil {
				var rej *selection.RejectionError
				if errors.As(valErr, &rej) {
					// A rejection is a valid outcome, not a failure.
					rejection = rej
					return nil, nil
				}
				return nil, valErr
			}
			return cands, nil
		})
	if err != nil {
		return nil, nil, err
	}
	return candidates, rejection, nil
}

// buildSignal samples recent search hits for the raw keyword. The signal
// is auxiliary: a persistent fetch failure degrades to an empty sample
// instead of failing the job.
func (o *Orchestrator) buildSignal(ctx context.Context, region, keyword string) refine.Signal {
	signal := refine.Signal{Region: region, Keyword: keyword}
	items, err := retry.DoValue(ctx, o.retry, "signal."+region,
		func(ctx context.Context) ([]metadata.Item, error) {
			return o.clients.Metadata.Search(ctx, keyword, metadata.SearchOpts{
				Limit:  o.cfg.SignalSampleSize,
				Region: region,
			})
		})
	if err != nil {
		o.logger.Warn("signal fetch failed, refining without sample",
			slog.String("region", region),
			slog.String("keyword", keyword),
			slog.String("error", err.Error()),
		)
		return signal
	}
	for _, item := range items {
		signal.SampleTitles = append(signal.SampleTitles, item.Title)
	}
	return signal
}

// runAssembly invokes the assembly collaborator under the retry policy
// with a hard per-attempt timeout. Domain failures and timeouts are
// terminal: a remote partially-produced artifact makes blind retry
// unsafe.
func (o *Orchestrator) runAssembly(ctx context.Context, run *state.Run, rs *state.RegionState, region string, job *state.SlotJob, workDir string) (*assembly.Metadata, error) {
	job.Assembly = state.StageState{Status: state.StatusRunning}
	if err := o.store.Save(ctx, run); err != nil {
		return nil, err
	}

	req := assembly.Request{
		WorkDir: workDir,
		Topic:   job.Keyword,
		SlotID:  slotID(run.ID, region, job.Slot),
		Params:  o.cfg.AssemblyParams,
	}

	start := time.Now()
	var domainErr *assembly.Error
	var timedOut bool
	resp, err := retry.DoValue(ctx, o.retry, "assembly."+region,
		func(ctx context.Context) (*assembly.Response, error) {
			actx, cancel := context.WithTimeout(ctx, o.cfg.AssembleTimeout)
			defer cancel()

			resp, asmErr := o.clients.Assembly.Assemble(actx, req)
			if asmErr != nil {
				var ae *assembly.Error
				if errors.As(asmErr, &ae) {
					domainErr = ae
					return nil, nil
				}
				if errors.Is(asmErr, context.DeadlineExceeded) && ctx.Err() == nil {
					timedOut = true
					return nil, nil
				}
				return nil, asmErr
			}
			return resp, nil
		})

	elapsed := time.Since(start)
	switch {
	case err != nil:
		return nil, o.failStage(ctx, run, region, job, &job.Assembly, "assembly", err.Error(), err, elapsed)
	case timedOut:
		reason := fmt.Sprintf("assembly timed out after %s", o.cfg.AssembleTimeout)
		return nil, o.failStage(ctx, run, region, job, &job.Assembly, "assembly", reason, errors.New(reason), elapsed)
	case domainErr != nil:
		return nil, o.failStage(ctx, run, region, job, &job.Assembly, "assembly", domainErr.Reason, domainErr, elapsed)
	}

	job.Assembly.Status = state.StatusDone
	job.OutputFile = resp.OutputFileAbs
	if err := o.store.Save(ctx, run); err != nil {
		return nil, err
	}
	o.metrics.RecordStage(ctx, region, "assembly", "ok", elapsed)
	return resp.Metadata, nil
}

// runPublish invokes the publish collaborator, or marks the stage
// skipped when publishing is disabled for the region.
func (o *Orchestrator) runPublish(ctx context.Context, run *state.Run, region string, job *state.SlotJob, asmMeta *assembly.Metadata) error {
	if !o.clients.Gate.IsEnabled(region) {
		if job.Publish.Status != state.StatusSkipped {
			job.Publish = state.StageState{Status: state.StatusSkipped}
			if err := o.store.Save(ctx, run); err != nil {
				return err
			}
			o.logger.Info("publish disabled for region, skipping",
				slog.String("run_id", run.ID),
				slog.String("region", region),
				slog.Int("slot", job.Slot),
			)
		}
		return nil
	}
	if job.Publish.Status == state.StatusDone {
		return nil
	}

	job.Publish = state.StageState{Status: state.StatusRunning}
	if err := o.store.Save(ctx, run); err != nil {
		return err
	}

	req := o.publishRequest(region, job, asmMeta)

	start := time.Now()
	var domainErr *publish.Error
	resp, err := retry.DoValue(ctx, o.retry, "publish."+region,
		func(ctx context.Context) (*publish.Response, error) {
			resp, pubErr := o.clients.Publish.Publish(ctx, req)
			if pubErr != nil {
				var pe *publish.Error
				if errors.As(pubErr, &pe) {
					domainErr = pe
					return nil, nil
				}
				return nil, pubErr
			}
			return resp, nil
		})

	elapsed := time.Since(start)
	switch {
	case err != nil:
		return o.failStage(ctx, run, region, job, &job.Publish, "publish", err.Error(), err, elapsed)
	case domainErr != nil:
		return o.failStage(ctx, run, region, job, &job.Publish, "publish", domainErr.Reason, domainErr, elapsed)
	}

	job.Publish.Status = state.StatusDone
	job.Publish.PlatformID = resp.PlatformID
	if err := o.store.Save(ctx, run); err != nil {
		return err
	}
	o.metrics.RecordStage(ctx, region, "publish", "ok", elapsed)
	return nil
}

// publishRequest sources metadata from the assembly response, falling
// back to synthesized title/description/tags when absent.
func (o *Orchestrator) publishRequest(region string, job *state.SlotJob, asmMeta *assembly.Metadata) publish.Request {
	req := publish.Request{FilePath: job.OutputFile}
	if asmMeta != nil {
		req.Title = asmMeta.Title
		req.Description = asmMeta.Description
		req.Tags = asmMeta.Tags
	}
	if req.Title == "" {
		req.Title = fmt.Sprintf("%s | %s shorts", job.Keyword, region)
	}
	if req.Description == "" {
		req.Description = strings.TrimSpace(fmt.Sprintf("%s %s", job.Theme, job.Keyword))
	}
	if len(req.Tags) == 0 {
		req.Tags = synthesizeTags(region, job)
	}
	return req
}

func synthesizeTags(region string, job *state.SlotJob) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range []string{job.Keyword, job.OriginalKeyword, job.Theme, region, "shorts"} {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		tags = append(tags, tag)
	}
	return tags
}

func toStateCandidates(scored []selection.ScoredCandidate) []state.Candidate {
	out := make([]state.Candidate, len(scored))
	for i, c := range scored {
		out[i] = state.Candidate{
			ID:        c.ID,
			Title:     c.Title,
			Channel:   c.Channel,
			Predicted: c.Predicted,
			Observed:  c.Observed,
			Delta:     c.Delta,
		}
	}
	return out
}

// failJob marks the job terminally failed, persists the failure before
// returning, and leaves sibling slots untouched.
func (o *Orchestrator) failJob(ctx context.Context, run *state.Run, region string, job *state.SlotJob, msg string, cause error) error {
	job.Status = state.StatusError
	job.Error = msg
	if saveErr := o.store.Save(ctx, run); saveErr != nil {
		return saveErr
	}
	o.logger.Error("slot job failed",
		slog.String("run_id", run.ID),
		slog.String("region", region),
		slog.Int("slot", job.Slot),
		slog.String("error", msg),
	)
	return cause
}

// failStage records the failure on both the sub-stage and the job.
func (o *Orchestrator) failStage(ctx context.Context, run *state.Run, region string, job *state.SlotJob, stage *state.StageState, stageName, msg string, cause error, elapsed time.Duration) error {
	stage.Status = state.StatusError
	stage.Error = msg
	o.metrics.RecordStage(ctx, region, stageName, "error", elapsed)
	return o.failJob(ctx, run, region, job, msg, cause)
}
