package main

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/metrics"
)

func newMetricsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show or rebuild delivery metrics",
	}
	cmd.AddCommand(newMetricsShowCmd(a), newMetricsRebuildCmd(a))
	return cmd
}

func newMetricsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show the project aggregate, or one feature's snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := a.stack.Layout
			if len(args) == 1 {
				m, err := metrics.LoadFeature(layout, args[0])
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("%w: no metrics snapshot for %s", ledger.ErrFeatureNotFound, args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(a.out, m)
			}

			agg, err := metrics.LoadAggregated(layout)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: no metrics found", ledger.ErrNotInitialized)
			}
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, agg)
			}
			printAggregate(a, agg)
			return nil
		},
	}
}

func printAggregate(a *app, agg *metrics.AggregatedMetrics) {
	w := a.out
	fmt.Fprintln(w, boldStyle.Render("Totals"))
	fmt.Fprintf(w, "  done: %d  todo: %d\n", agg.Totals.Done, agg.Totals.Todo)
	types := make([]string, 0, len(agg.Totals.ByType))
	for t := range agg.Totals.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		c := agg.Totals.ByType[ledger.FeatureType(t)]
		fmt.Fprintf(w, "  %-8s %d done, %d todo\n", t, c.Done, c.Todo)
	}

	fmt.Fprintln(w, "\n"+boldStyle.Render("Averages"))
	fmt.Fprintf(w, "  cycle time:      %.2fh\n", agg.Averages.CycleTimeHours)
	fmt.Fprintf(w, "  task completion: %.0f%%\n", agg.Averages.TaskCompletion*100)
	fmt.Fprintf(w, "  artifacts:       %.1f files, %.0f words\n", agg.Averages.ArtifactFiles, agg.Averages.ArtifactWords)

	if len(agg.PhaseAverages) > 0 {
		fmt.Fprintln(w, "\n"+boldStyle.Render("Hours per phase"))
		for _, p := range ledger.PhaseOrder {
			if h, ok := agg.PhaseAverages[p]; ok {
				fmt.Fprintf(w, "  %-15s %.2f\n", p, h)
			}
		}
	}
	if !agg.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "\n%s\n", mutedStyle.Render("updated "+agg.UpdatedAt.Local().Format(time.DateTime)))
	}
}

func newMetricsRebuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute every snapshot and the aggregate from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := a.stack
			rep, err := st.Collector.Rebuild(cmd.Context(), st.Layout)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, rep)
			}
			fmt.Fprintf(a.out, "%s Rebuilt %d snapshots\n", passStyle.Render(iconPass), rep.Computed)
			if len(rep.Orphans) > 0 {
				fmt.Fprintf(a.out, "  %s %v\n", mutedStyle.Render("removed orphans:"), rep.Orphans)
			}
			return nil
		},
	}
}
