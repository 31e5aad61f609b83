package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"
)

func newCalcCommand(a *app) *cobra.Command {
	var src sourceFlags
	var explain bool

	cmd := &cobra.Command{
		Use:   "calc <days> <miles> <receipts>",
		Short: "Compute the reimbursement for one trip",
		Long: `Compute the reimbursement for one trip and print it with two decimals.

Nothing else is written to stdout unless --explain is set, in which case the
per-stage breakdown is printed as JSON instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 3 {
				return &usageError{msg: fmt.Sprintf("calc takes 3 arguments (days miles receipts), got %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			days, miles, receipts, err := parseTrip(args)
			if err != nil {
				return err
			}
			p, _, err := src.load(a)
			if err != nil {
				return err
			}

			b, err := p.Explain(days, miles, receipts)
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			if explain {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", b.Total)
			return err
		},
	}

	src.register(cmd)
	cmd.Flags().BoolVar(&explain, "explain", false, "Print the per-stage breakdown as JSON")
	return cmd
}

// parseTrip reads days as a whole number and miles/receipts as finite reals.
func parseTrip(args []string) (int, float64, float64, error) {
	var vals [3]float64
	names := [3]string{"days", "miles", "receipts"}
	for i, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, &usageError{msg: fmt.Sprintf("%s: %q is not a finite number", names[i], s)}
		}
		vals[i] = v
	}
	if vals[0] != math.Trunc(vals[0]) {
		return 0, 0, 0, &usageError{msg: fmt.Sprintf("days: %q is not a whole number", args[0])}
	}
	return int(vals[0]), vals[1], vals[2], nil
}
