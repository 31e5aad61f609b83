package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/reimbursement-engine/internal/corpus"
	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/gate"
	"github.com/danielpatrickdp/reimbursement-engine/internal/logging"
	"github.com/danielpatrickdp/reimbursement-engine/internal/optimizer"
	"github.com/danielpatrickdp/reimbursement-engine/internal/pipeline"
	"github.com/danielpatrickdp/reimbursement-engine/internal/snapshot"
	"github.com/danielpatrickdp/reimbursement-engine/internal/telemetry"
)

func newCalibrateCommand(a *app) *cobra.Command {
	var src sourceFlags
	var outPath string
	var metricsAddr string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Search for parameters that fit the corpus",
		Long: `Search the parameter space with the configured strategy, score the best
set found on the holdout cases, and pass it through the promotion gate.

A committed set becomes the active version in the database. A rejected or
unchanged set is still recorded with its gate decision. Interrupting the
search (Ctrl-C) stops at the next iteration boundary and keeps the best
set found so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if metricsAddr == "" {
				return calibrate(ctx, cmd, a, &src, outPath, dryRun)
			}
			g, gctx := errgroup.WithContext(ctx)
			metricsCtx, stopMetrics := context.WithCancel(gctx)
			g.Go(func() error { return telemetry.Serve(metricsCtx, metricsAddr) })
			g.Go(func() error {
				defer stopMetrics()
				return calibrate(gctx, cmd, a, &src, outPath, dryRun)
			})
			return g.Wait()
		},
	}

	src.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Also write the calibrated state to this JSON file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while calibrating")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the search and the gate without touching the database")
	return cmd
}

// calibrationResult is what calibrate reports after a run.
type calibrationResult struct {
	Run             *optimizer.Run
	Decision        gate.GateDecision
	VersionID       string
	BaselineHoldout *eval.ScoreReport
	BestHoldout     *eval.ScoreReport
}

func calibrate(ctx context.Context, cmd *cobra.Command, a *app, src *sourceFlags, outPath string, dryRun bool) error {
	res, err := runCalibration(ctx, a, src, dryRun)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	run := res.Run
	fmt.Fprintf(w, "Run %s (%s): %s after %d iterations, %d evaluations, %d rejected\n",
		run.ID, run.Strategy, run.Status, run.Iterations, run.Evaluations, run.Rejected)
	if run.Interrupted {
		fmt.Fprintln(w, "Search interrupted; keeping the best set found so far.")
	}
	fmt.Fprintln(w)
	printReport(w, "initial (training)", run.InitialReport)
	fmt.Fprintln(w)
	printReport(w, "best (training)", run.BestReport)
	if res.BestHoldout != nil {
		fmt.Fprintln(w)
		printReport(w, "best (holdout)", *res.BestHoldout)
	}
	fmt.Fprintf(w, "\nGate: %s (%s)\n", res.Decision.Action, res.Decision.Reason)
	if res.VersionID != "" {
		fmt.Fprintf(w, "Version: %s\n", res.VersionID)
	}

	if outPath != "" {
		best := run.BestReport
		st := snapshot.State{
			Parameters: run.Best,
			Report:     &best,
			Strategy:   run.Strategy,
			RunID:      run.ID,
			History:    run.History,
		}
		if err := snapshot.SaveFile(outPath, st); err != nil {
			return err
		}
		fmt.Fprintf(w, "Saved: %s\n", outPath)
	}
	return nil
}

// runCalibration does the search, holdout scoring, gating and persistence.
func runCalibration(ctx context.Context, a *app, src *sourceFlags, dryRun bool) (*calibrationResult, error) {
	cfg := a.cfg
	full, err := corpus.Load(cfg.Corpus)
	if err != nil {
		return nil, err
	}
	train, holdout := full, (*corpus.Corpus)(nil)
	if cfg.Optimizer.HoldoutFraction > 0 {
		train, holdout, err = full.Split(1-cfg.Optimizer.HoldoutFraction, cfg.Optimizer.Seed)
		if err != nil {
			return nil, err
		}
		if train.Len() == 0 || holdout.Len() == 0 {
			train, holdout = full, nil
		}
	}

	p, source, err := src.load(a)
	if err != nil {
		return nil, err
	}
	baseline := p.Clone()

	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}
	ev := eval.NewEvaluator(cfg.Score, cfg.Optimizer.EvalWorkers)
	opt := optimizer.New(ev, train, strategy, cfg.OptimizerSettings())

	slog.Info("calibrating",
		"source", source,
		"corpus", cfg.Corpus,
		"train", train.Len(),
		"holdout", holdoutLen(holdout),
		"strategy", strategy.Name())

	// The search owns ctx; holdout scoring and persistence must finish even after Ctrl-C.
	run, err := opt.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	after := context.WithoutCancel(ctx)

	res := &calibrationResult{Run: run}
	if holdout != nil {
		if res.BaselineHoldout, err = scorePtr(after, ev, baseline, holdout); err != nil {
			return nil, err
		}
		if res.BestHoldout, err = scorePtr(after, ev, p, holdout); err != nil {
			return nil, err
		}
	}

	g := gate.NewGate(cfg.Gate)
	res.Decision = g.Evaluate(gate.Proposal{
		Params:           run.Best,
		Baseline:         run.InitialReport,
		Candidate:        run.BestReport,
		BaselineHoldout:  res.BaselineHoldout,
		CandidateHoldout: res.BestHoldout,
	})
	slog.Info("gate decision", "action", res.Decision.Action, "reason", res.Decision.Reason)

	if dryRun {
		return res, nil
	}
	versionID, err := persist(cfg.DBPath, cfg.Gate, cfg.Optimizer.Seed, res)
	if err != nil {
		return nil, err
	}
	res.VersionID = versionID
	return res, nil
}

// persist stores the calibrated set and its gate decision. Only a commit moves the active pointer.
func persist(dbPath string, gc gate.GateConfig, seed uint64, res *calibrationResult) (string, error) {
	store, err := snapshot.NewStore(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	parentID := ""
	if active, err := store.Active(); err == nil {
		parentID = active.VersionID
	} else if !errors.Is(err, snapshot.ErrNoActive) {
		return "", err
	}

	run := res.Run
	v := snapshot.NewVersion(parentID, run.Best, run.BestReport, run.Strategy, run.ID)
	if res.Decision.Action == gate.ActionCommit {
		err = store.Commit(v)
	} else {
		err = store.Record(v)
	}
	if err != nil {
		return "", err
	}

	record := logging.CalibrationRecord{
		RunID:            run.ID,
		Strategy:         run.Strategy,
		Status:           string(run.Status),
		Interrupted:      run.Interrupted,
		Iterations:       run.Iterations,
		Evaluations:      run.Evaluations,
		Rejected:         run.Rejected,
		Seed:             seed,
		Baseline:         run.InitialReport,
		Candidate:        run.BestReport,
		BaselineHoldout:  res.BaselineHoldout,
		CandidateHoldout: res.BestHoldout,
		Thresholds: logging.CalibrationThresholds{
			MinImprovement:       gc.MinImprovement,
			AllowExactRegression: gc.AllowExactRegression,
			MaxHoldoutRegression: gc.MaxHoldoutRegression,
		},
		GateAction:    string(res.Decision.Action),
		GateSoftScore: res.Decision.SoftScore,
		GateVetoed:    res.Decision.Vetoed,
		GateReason:    res.Decision.Reason,
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal calibration record: %w", err)
	}
	err = logging.LogDecision(store.DB(), logging.CalibrationEntry{
		VersionID:  v.VersionID,
		RunID:      run.ID,
		Strategy:   run.Strategy,
		RecordJSON: string(recordJSON),
		Decision:   string(res.Decision.Action),
		Reason:     res.Decision.Reason,
	})
	if err != nil {
		return "", err
	}
	return v.VersionID, nil
}

func scorePtr(ctx context.Context, ev *eval.Evaluator, p *pipeline.Pipeline, c *corpus.Corpus) (*eval.ScoreReport, error) {
	r, err := ev.Run(ctx, p, c)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func holdoutLen(c *corpus.Corpus) int {
	if c == nil {
		return 0
	}
	return c.Len()
}
