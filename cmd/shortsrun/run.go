package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	pipeline "github.com/iam-hyo/2601-VPI-V3--shorts-pipline"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/assembly"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/discovery"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/metadata"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/observability"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/orchestrator"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/predictor"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/publish"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/refine"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/retry"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/selection"
	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/state"
)

func newRunCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute or resume a pipeline run",
		Long: `Execute a pipeline run across all configured regions. Progress is
persisted after every stage, so re-running the same run id continues
from where the previous invocation stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := setupLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if runID == "" {
				runID = pipeline.DefaultRunID(time.Now())
			}

			store, cleanup, err := newStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			defer store.Close()
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("state backend unreachable: %w", err)
			}

			metrics := observability.New()
			policy := retry.New(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay.Std(), cfg.Retry.MaxDelay.Std(),
				retry.WithLogger(logger),
				retry.WithOnRetry(func(label string, _ int, _ error, _ time.Duration) {
					metrics.RecordRetry(ctx, label)
				}),
			)

			// One metadata client serves both the selection service and
			// the orchestrator's refinement signal sampling.
			mdClient := metadata.NewHTTP(cfg.Services.MetadataURL)

			sel := selection.New(mdClient,
				predictor.NewHTTP(cfg.Services.PredictorURL),
				selectionConfig(cfg.Selection),
				selection.WithLogger(logger),
			)

			orchCfg := orchestrator.DefaultConfig()
			orchCfg.WorkRoot = cfg.WorkRoot
			orchCfg.DiscoveryWindow = time.Duration(cfg.DiscoveryWindowDays) * 24 * time.Hour
			orchCfg.MaxVariants = cfg.MaxVariants
			orchCfg.AssembleTimeout = cfg.AssembleTimeout.Std()

			orch := orchestrator.New(store, sel,
				orchestrator.Clients{
					Discovery: discovery.NewHTTP(cfg.Services.DiscoveryURL),
					Refine:    refine.NewHTTP(cfg.Services.RefineURL),
					Metadata:  mdClient,
					Assembly:  assembly.NewHTTP(cfg.Services.AssemblyURL),
					Publish:   publish.NewHTTP(cfg.Services.PublishURL),
					Gate:      publish.RegionGate(cfg.PublishEnabled),
				},
				orchestrator.WithLogger(logger),
				orchestrator.WithRetryPolicy(policy),
				orchestrator.WithMetrics(metrics),
				orchestrator.WithConfig(orchCfg),
			)

			logger.Info("starting run",
				slog.String("run_id", runID),
				slog.String("backend", cfg.State.Backend),
				slog.Any("regions", cfg.Regions),
			)

			// Strictly sequential: regions in configured order, slots in
			// index order. A failed slot never aborts its siblings; the
			// failure is recorded in the run document and surfaced by
			// FinishRun.
			for _, region := range cfg.Regions {
				if err := orch.AdvanceRegionKeyword(ctx, runID, region); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					logger.Error("keyword stage failed, skipping region slots",
						slog.String("region", region),
						slog.String("error", err.Error()),
					)
					continue
				}
				for slot := 0; slot < cfg.SlotsPerRegion; slot++ {
					if err := orch.AdvanceSlot(ctx, runID, region, slot); err != nil {
						if ctx.Err() != nil {
							return ctx.Err()
						}
						logger.Error("slot failed",
							slog.String("region", region),
							slog.Int("slot", slot),
							slog.String("error", err.Error()),
						)
					}
				}
			}

			run, err := orch.FinishRun(ctx, runID)
			if err != nil {
				return err
			}
			if run.Status != state.StatusDone {
				return fmt.Errorf("run %s finished with status %s", runID, run.Status)
			}
			logger.Info("run complete", slog.String("run_id", runID))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: today's UTC date)")
	return cmd
}

// selectionConfig maps the YAML selection section onto the service
// thresholds.
func selectionConfig(c pipeline.SelectionConfig) selection.Config {
	return selection.Config{
		MinSearchResults:      c.MinSearchResults,
		MinQualifyingCount:    c.MinQualifyingCount,
		MinPredictedThreshold: c.MinPredictedThreshold,
		MinQualifiedVideos:    c.MinQualifiedVideos,
		TopK:                  c.TopK,
		SearchLimit:           c.SearchLimit,
		RecencyWindow:         time.Duration(c.RecencyWindowDays) * 24 * time.Hour,
		ShortFormOnly:         c.ShortFormOnly,
	}
}
