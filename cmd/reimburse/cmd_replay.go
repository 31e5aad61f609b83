package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/reimbursement-engine/internal/corpus"
	"github.com/danielpatrickdp/reimbursement-engine/internal/replay"
)

func newReplayCommand(a *app) *cobra.Command {
	var src sourceFlags
	var fixturePath string
	var tolerance float64
	var onlyDiverged bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay labeled trips and compare totals",
		Long: `Replay trips through the pipeline and compare each total (and any pinned
stage values) against the expected figures.

With --fixture the trips and the pipeline come from a fixture file. Without
it every corpus case is replayed through the configured pipeline.

Exits 1 when any trip diverges.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []replay.ReplayResult
			if fixturePath != "" {
				if src.snapshotPath != "" || src.active {
					return &usageError{msg: "--fixture cannot be combined with --snapshot or --active"}
				}
				f, err := replay.LoadFixture(fixturePath)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("tolerance") {
					f.Tolerance = tolerance
				}
				if results, err = f.Run(); err != nil {
					return err
				}
			} else {
				c, err := corpus.Load(a.cfg.Corpus)
				if err != nil {
					return err
				}
				p, _, err := src.load(a)
				if err != nil {
					return err
				}
				results = replay.Replay(p, replay.TripsFromCorpus(c), tolerance)
			}

			summary := printComparison(cmd.OutOrStdout(), results, onlyDiverged)
			if summary.Diverged+summary.Errors > 0 {
				return &divergedError{Diverged: summary.Diverged + summary.Errors, Total: summary.TotalTrips}
			}
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "Replay the trips in this fixture JSON file")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0.01, "Largest total error that still counts as a match")
	cmd.Flags().BoolVar(&onlyDiverged, "only-diverged", false, "List only trips that did not match")
	return cmd
}

// #region output

// printComparison outputs a comparison table and returns the summary.
func printComparison(w io.Writer, results []replay.ReplayResult, onlyDiverged bool) replay.ReplaySummary {
	fmt.Fprintf(w, "%-12s| %-11s| %-11s| %-9s| %s\n", "Trip", "Expected", "Replayed", "Error", "Match")
	fmt.Fprintf(w, "%-12s+%-12s+%-12s+%-10s+%s\n",
		"------------", "------------", "------------", "----------", "------")

	for _, r := range results {
		if onlyDiverged && r.Action == replay.ActionMatch {
			continue
		}
		switch r.Action {
		case replay.ActionMatch:
			fmt.Fprintf(w, "%-12s| %-11.2f| %-11.2f| %-9.2f| OK\n", r.ID, r.Expected, r.Breakdown.Total, r.AbsError)
		case replay.ActionDiverge:
			fmt.Fprintf(w, "%-12s| %-11.2f| %-11.2f| %-9.2f| DIFF\n", r.ID, r.Expected, r.Breakdown.Total, r.AbsError)
			if len(r.StageDiffs) > 0 {
				fmt.Fprintf(w, "%-12s  %s\n", "", strings.Join(r.StageDiffs, "; "))
			}
		default:
			fmt.Fprintf(w, "%-12s| %-11.2f| %-11s| %-9s| ERROR %s\n", r.ID, r.Expected, "-", "-", r.Reason)
		}
	}

	s := replay.Summarize(results)
	fmt.Fprintf(w, "\nSummary: %d total, %d match, %d diverge, %d error (max error %.2f)\n",
		s.TotalTrips, s.Matches, s.Diverged, s.Errors, s.MaxError)
	return s
}

// #endregion output
