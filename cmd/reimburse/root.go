package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/reimbursement-engine/internal/config"
)

var version = "dev"

// app carries state shared by every subcommand once the root pre-run has loaded it.
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "reimburse",
		Short: "Reimbursement calculator and calibration harness",
		Long: `Reimburse computes travel reimbursements with a staged formula
(per diem, mileage, receipts, bonuses, quirks) and calibrates the
formula's parameters against a corpus of labeled trips.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if *debugLogging {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		return nil
	}

	cmd.AddCommand(newCalcCommand(a))
	cmd.AddCommand(newEvalCommand(a))
	cmd.AddCommand(newCalibrateCommand(a))
	cmd.AddCommand(newReplayCommand(a))
	cmd.AddCommand(newSnapshotsCommand(a))

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	rootCmd.SetErr(os.Stderr)
	return rootCmd.Execute()
}
