package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	pipeline "github.com/iam-hyo/2601-VPI-V3--shorts-pipline"
)

func newStatusCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the state of a run",
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

			run, err := store.LoadOrCreate(ctx, runID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %s (updated %s)\n", run.ID, run.Status,
				run.UpdatedAt.Format(time.RFC3339))
			if run.FinishedAt != nil {
				fmt.Fprintf(out, "finished at %s\n", run.FinishedAt.Format(time.RFC3339))
			}

			regions := make([]string, 0, len(run.Regions))
			for name := range run.Regions {
				regions = append(regions, name)
			}
			sort.Strings(regions)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REGION\tSLOT\tSTATUS\tKEYWORD\tASSEMBLY\tPUBLISH\tERROR")
			for _, name := range regions {
				rs := run.Regions[name]
				fmt.Fprintf(w, "%s\t-\tkeyword %s (%d)\t\t\t\t%s\n",
					name, rs.Keyword.Status, len(rs.Keyword.Keywords), rs.Keyword.Error)
				for _, job := range rs.Slots {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
						name, job.Slot, job.Status, job.Keyword,
						job.Assembly.Status, job.Publish.Status, job.Error)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: today's UTC date)")
	return cmd
}
