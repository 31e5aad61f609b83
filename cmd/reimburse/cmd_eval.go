package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/reimbursement-engine/internal/corpus"
	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
)

func newEvalCommand(a *app) *cobra.Command {
	var src sourceFlags
	var worst int
	var format string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score the pipeline against the corpus",
		Long: `Run the pipeline over every corpus case and report exact and close
matches, average and maximum error, and the aggregate score (lower is better).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return &usageError{msg: fmt.Sprintf("unsupported format %q: must be table or json", format)}
			}
			c, err := corpus.Load(a.cfg.Corpus)
			if err != nil {
				return err
			}
			p, source, err := src.load(a)
			if err != nil {
				return err
			}

			ev := eval.NewEvaluator(a.cfg.Score, a.cfg.Optimizer.EvalWorkers)
			records, err := ev.Predict(cmd.Context(), p, c)
			if err != nil {
				return err
			}
			report := eval.Summarize(records, ev.Config())
			worstRecords := eval.Worst(records, worst)

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Source string                  `json:"source"`
					Report eval.ScoreReport        `json:"report"`
					Worst  []eval.PredictionRecord `json:"worst,omitempty"`
				}{source, report, worstRecords})
			}
			printReport(cmd.OutOrStdout(), source, report)
			printWorst(cmd.OutOrStdout(), worstRecords)
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().IntVar(&worst, "worst", 5, "Number of worst cases to list")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	return cmd
}

func printReport(w io.Writer, title string, r eval.ScoreReport) {
	fmt.Fprintf(w, "Parameters: %s\n", title)
	fmt.Fprintf(w, "  Cases:           %d\n", r.TotalCases)
	fmt.Fprintf(w, "  Exact (±0.01):   %d (%.1f%%)\n", r.ExactMatches, 100*r.ExactRate())
	fmt.Fprintf(w, "  Close (±1.00):   %d (%.1f%%)\n", r.CloseMatches, 100*r.CloseRate())
	fmt.Fprintf(w, "  Average error:   $%.2f\n", r.AverageError)
	fmt.Fprintf(w, "  Maximum error:   $%.2f\n", r.MaxError)
	fmt.Fprintf(w, "  Score:           %.2f\n", r.AggregateScore)
}

func printWorst(w io.Writer, records []eval.PredictionRecord) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%-6s| %-5s| %-9s| %-10s| %-10s| %-10s| %s\n", "Case", "Days", "Miles", "Receipts", "Expected", "Got", "Error")
	fmt.Fprintf(w, "%-6s+%-6s+%-10s+%-11s+%-11s+%-11s+%s\n",
		"------", "------", "----------", "-----------", "-----------", "-----------", "--------")
	for _, r := range records {
		fmt.Fprintf(w, "%-6d| %-5d| %-9.1f| %-10.2f| %-10.2f| %-10.2f| %.2f\n",
			r.Index, r.Case.Days, r.Case.Miles, r.Case.Receipts, r.Expected, r.Predicted, r.AbsError)
	}
}
