package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pipeline "github.com/iam-hyo/2601-VPI-V3--shorts-pipline"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/retry"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
)

// AdvanceRegionKeyword ensures the region has a ranked keyword list,
// fetching one through the retry policy when the keyword stage is not
// done. On exhaustion the keyword stage is marked error with its reason,
// but the region is otherwise untouched: a later re-run can retry
// discovery independently of slot jobs.
func (o *Orchestrator) AdvanceRegionKeyword(ctx context.Context, runID, region string) error {
	run, err := o.store.LoadOrCreate(ctx, runID)
	if err != nil {
		return err
	}
	rs, ok := run.Regions[region]
	if !ok {
		return fmt.Errorf("%w: %s", pipeline.ErrUnknownRegion, region)
	}
	if rs.Status.TerminalOK() {
		return nil
	}
	if rs.Keyword.Status == state.StatusDone {
		return nil
	}

	if rs.Status == state.StatusPending {
		rs.Status = state.StatusRunning
	}
	rs.Keyword.Status = state.StatusRunning
	rs.Keyword.Error = ""
	rs.Keyword.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, run); err != nil {
		return err
	}

	start := time.Now()
	keywords, err := retry.DoValue(ctx, o.retry, "discovery."+region,
		func(ctx context.Context) ([]string, error) {
			kws, fetchErr := o.clients.Discovery.Fetch(ctx, region, o.cfg.DiscoveryWindow)
			if fetchErr != nil {
				return nil, fetchErr
			}
			// A near-empty list gives the run nothing to work with;
			// treat it as a retryable failure rather than an empty
			// success.
			if len(kws) < o.cfg.MinKeywords {
				return nil, fmt.Errorf("discovery returned %d keywords for %s, need at least %d",
					len(kws), region, o.cfg.MinKeywords)
			}
			return kws, nil
		})

	rs.Keyword.UpdatedAt = time.Now().UTC()
	if err != nil {
		rs.Keyword.Status = state.StatusError
		rs.Keyword.Error = err.Error()
		if saveErr := o.store.Save(ctx, run); saveErr != nil {
			return saveErr
		}
		o.metrics.RecordStage(ctx, region, "keyword", "error", time.Since(start))
		o.logger.Error("keyword discovery failed",
			slog.String("run_id", runID),
			slog.String("region", region),
			slog.String("error", err.Error()),
		)
		return err
	}

	rs.Keyword.Status = state.StatusDone
	rs.Keyword.Keywords = keywords
	if err := o.store.Save(ctx, run); err != nil {
		return err
	}
	o.metrics.RecordStage(ctx, region, "keyword", "ok", time.Since(start))
	o.logger.Info("keyword discovery done",
		slog.String("run_id", runID),
		slog.String("region", region),
		slog.Int("keywords", len(keywords)),
	)
	return nil
}
