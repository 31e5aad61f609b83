package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/reimbursement-engine/internal/logging"
	"github.com/danielpatrickdp/reimbursement-engine/internal/snapshot"
)

func newSnapshotsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"versions"},
		Short:   "Inspect and manage stored parameter versions",
	}
	cmd.AddCommand(
		newSnapshotsListCommand(a),
		newSnapshotsShowCommand(a),
		newSnapshotsRollbackCommand(a),
		newSnapshotsLogCommand(a),
		newSnapshotsExportCommand(a),
	)
	return cmd
}

// withStore opens the configured database for the duration of fn.
func withStore(a *app, fn func(*snapshot.Store) error) error {
	store, err := snapshot.NewStore(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// #region list

type versionRow struct {
	VersionID string  `json:"version_id"`
	ParentID  string  `json:"parent_id,omitempty"`
	Active    bool    `json:"active"`
	Strategy  string  `json:"strategy,omitempty"`
	Score     float64 `json:"score"`
	Exact     int     `json:"exact_matches"`
	Decision  string  `json:"decision,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func newSnapshotsListCommand(a *app) *cobra.Command {
	var last int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(store *snapshot.Store) error {
				versions, err := store.ListVersions(last)
				if err != nil {
					return err
				}
				rows := make([]versionRow, len(versions))
				for i, v := range versions {
					rows[i] = versionRow{
						VersionID: v.VersionID,
						ParentID:  v.ParentID,
						Active:    v.Active,
						Strategy:  v.Strategy,
						Score:     v.Report.AggregateScore,
						Exact:     v.Report.ExactMatches,
						Decision:  v.Decision,
						Reason:    v.Reason,
						CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
					}
				}
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), rows)
				}
				printVersionTable(cmd.OutOrStdout(), rows)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "Show N most recent versions")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON instead of a table")
	return cmd
}

func printVersionTable(w io.Writer, rows []versionRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "no versions found")
		return
	}
	fmt.Fprintf(w, "%-1s %-36s  %-10s  %10s  %6s  %-8s  %s\n",
		"", "Version", "Strategy", "Score", "Exact", "Decision", "Time")
	fmt.Fprintf(w, "%-1s %-36s+-%-10s+-%10s+-%6s+-%-8s+-%s\n",
		"", "------------------------------------", "----------", "----------", "------", "--------", "--------------------")
	for _, r := range rows {
		marker := ""
		if r.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "%-1s %-36s  %-10s  %10.2f  %6d  %-8s  %s\n",
			marker, r.VersionID, r.Strategy, r.Score, r.Exact, r.Decision, r.CreatedAt)
	}
}

// #endregion list

// #region show

func newSnapshotsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [version-id]",
		Short: "Show one version's parameters and score (the active one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(store *snapshot.Store) error {
				v, err := getOrActive(store, args)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Version:  %s\n", v.VersionID)
				if v.ParentID != "" {
					fmt.Fprintf(w, "Parent:   %s\n", v.ParentID)
				}
				fmt.Fprintf(w, "Strategy: %s\n", v.Strategy)
				fmt.Fprintf(w, "Run:      %s\n", v.RunID)
				fmt.Fprintf(w, "Created:  %s\n\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"))
				printReport(w, v.VersionID, v.Report)
				fmt.Fprintln(w)
				for _, name := range v.Parameters.Names() {
					fmt.Fprintf(w, "  %-34s %s\n", name, strconv.FormatFloat(v.Parameters[name], 'g', -1, 64))
				}
				return nil
			})
		},
	}
}

func getOrActive(store *snapshot.Store, args []string) (snapshot.Version, error) {
	if len(args) == 1 {
		return store.Get(args[0])
	}
	return store.Active()
}

// #endregion show

// #region rollback

func newSnapshotsRollbackCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <version-id>",
		Short: "Make a previously stored version the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(store *snapshot.Store) error {
				if err := store.Rollback(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active: %s\n", args[0])
				return nil
			})
		},
	}
}

// #endregion rollback

// #region log

func newSnapshotsLogCommand(a *app) *cobra.Command {
	var last int
	var full bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent calibration decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(store *snapshot.Store) error {
				entries, err := logging.ListDecisions(store.DB(), last)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(w, "no calibration runs logged")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(w, "%s  %-7s %-10s %s  %s\n",
						e.CreatedAt.Format("2006-01-02T15:04:05Z"), e.Decision, e.Strategy, e.VersionID, e.Reason)
					if full && e.RecordJSON != "" {
						var rec logging.CalibrationRecord
						if err := json.Unmarshal([]byte(e.RecordJSON), &rec); err != nil {
							return fmt.Errorf("decode record for %s: %w", e.VersionID, err)
						}
						fmt.Fprintf(w, "    %d iterations, %d evaluations, %d rejected, status %s\n",
							rec.Iterations, rec.Evaluations, rec.Rejected, rec.Status)
						fmt.Fprintf(w, "    score %.2f -> %.2f, exact %d -> %d\n",
							rec.Baseline.AggregateScore, rec.Candidate.AggregateScore,
							rec.Baseline.ExactMatches, rec.Candidate.ExactMatches)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "Show N most recent decisions")
	cmd.Flags().BoolVar(&full, "full", false, "Include run statistics from each record")
	return cmd
}

// #endregion log

// #region export

func newSnapshotsExportCommand(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export [version-id]",
		Short: "Write a version (the active one by default) to a snapshot file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(a, func(store *snapshot.Store) error {
				v, err := getOrActive(store, args)
				if err != nil {
					return err
				}
				report := v.Report
				st := snapshot.State{
					Parameters: v.Parameters,
					Report:     &report,
					Strategy:   v.Strategy,
					RunID:      v.RunID,
				}
				if outPath == "" {
					return printJSON(cmd.OutOrStdout(), st)
				}
				if err := snapshot.SaveFile(outPath, st); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

// #endregion export

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
