package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/reimbursement-engine/internal/corpus"
	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
	"github.com/danielpatrickdp/reimbursement-engine/internal/pipeline"
	"github.com/danielpatrickdp/reimbursement-engine/internal/telemetry"
)

// #region optimizer
// Optimizer drives a Strategy over a pipeline's parameters, scoring each candidate
// with the evaluator on the corpus. It is Idle until Run, Searching during Run,
// and Converged or Exhausted afterwards.
type Optimizer struct {
	evaluator *eval.Evaluator
	corpus    *corpus.Corpus
	strategy  Strategy
	config    Config
	logger    *slog.Logger

	status atomic.Value // Status
}

// New creates an idle optimizer.
func New(evaluator *eval.Evaluator, c *corpus.Corpus, strategy Strategy, config Config) *Optimizer {
	o := &Optimizer{
		evaluator: evaluator,
		corpus:    c,
		strategy:  strategy,
		config:    config,
		logger:    slog.Default().With("component", "optimizer", "strategy", strategy.Name()),
	}
	o.status.Store(StatusIdle)
	return o
}

// WithLogger replaces the logger.
func (o *Optimizer) WithLogger(l *slog.Logger) *Optimizer {
	o.logger = l.With("component", "optimizer", "strategy", o.strategy.Name())
	return o
}

// Status returns the current lifecycle state.
func (o *Optimizer) Status() Status { return o.status.Load().(Status) }

// #endregion optimizer

// #region run
// Run searches from p's current parameters and writes the best set found back into p.
// The written set never scores worse than the starting one. Candidate failures are
// scored +Inf and counted as rejected. Cancelling ctx stops the search at the next
// iteration boundary; the run is still returned with Interrupted set.
func (o *Optimizer) Run(ctx context.Context, p *pipeline.Pipeline) (*Run, error) {
	if !o.status.CompareAndSwap(StatusIdle, StatusSearching) &&
		!o.status.CompareAndSwap(StatusConverged, StatusSearching) &&
		!o.status.CompareAndSwap(StatusExhausted, StatusSearching) {
		return nil, ErrBusy
	}

	run, err := o.search(ctx, p)
	if err != nil {
		o.status.Store(StatusIdle)
		return nil, err
	}
	o.status.Store(run.Status)
	return run, nil
}

func (o *Optimizer) search(ctx context.Context, p *pipeline.Pipeline) (*Run, error) {
	name := o.strategy.Name()
	run := &Run{
		ID:        uuid.New().String(),
		Strategy:  name,
		Status:    StatusSearching,
		Initial:   p.Parameters(),
		StartedAt: time.Now(),
	}

	initialReport, err := o.evaluator.Run(ctx, p, o.corpus)
	if err != nil {
		return nil, fmt.Errorf("score initial parameters: %w", err)
	}
	run.InitialReport = initialReport
	best := Candidate{Params: run.Initial.Clone(), Score: initialReport.AggregateScore, Report: initialReport}

	space, err := NewSpace(run.Initial, o.config.Names, o.config.Bounds)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(o.config.Seed, o.config.Seed^0x5851f42d4c957f2d))
	if err := o.strategy.Start(best, space, rng); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	o.logger.Info("search started",
		"run_id", run.ID,
		"tuned", space.Dim(),
		"cases", o.corpus.Len(),
		"initial_score", best.Score)
	telemetry.BestScore.WithLabelValues(name).Set(best.Score)

	budget := o.config.Budget
	stale := 0
	for {
		if ctx.Err() != nil {
			run.Interrupted = true
			run.Status = StatusExhausted
			break
		}
		if budget.MaxIterations > 0 && run.Iterations >= budget.MaxIterations {
			run.Status = StatusExhausted
			break
		}
		if budget.MaxDuration > 0 && time.Since(run.StartedAt) >= budget.MaxDuration {
			run.Status = StatusExhausted
			break
		}

		batch, err := o.strategy.Propose()
		if errors.Is(err, ErrExhausted) {
			run.Status = StatusExhausted
			break
		}
		if errors.Is(err, ErrConverged) {
			run.Status = StatusConverged
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s propose: %w", name, err)
		}

		scored := o.scoreBatch(ctx, p, batch)
		run.Iterations++
		run.Evaluations += len(scored)

		improved := false
		for _, c := range scored {
			if c.Err != nil {
				run.Rejected++
				continue
			}
			if c.Score < best.Score {
				best = c
				improved = true
			}
		}
		o.strategy.Observe(scored)
		run.History = append(run.History, HistoryEntry{Iteration: run.Iterations, Score: best.Score})

		if improved {
			stale = 0
			telemetry.BestScore.WithLabelValues(name).Set(best.Score)
			o.logger.Info("new best",
				"iteration", run.Iterations,
				"score", best.Score,
				"exact", best.Report.ExactMatches,
				"avg_error", best.Report.AverageError)
		} else {
			stale++
		}
		if budget.Patience > 0 && stale >= budget.Patience {
			run.Status = StatusConverged
			break
		}
	}

	if err := p.SetParameters(best.Params); err != nil {
		return nil, fmt.Errorf("write back best parameters: %w", err)
	}
	run.Best = best.Params
	run.BestReport = best.Report
	run.FinishedAt = time.Now()

	o.logger.Info("search finished",
		"run_id", run.ID,
		"status", run.Status,
		"interrupted", run.Interrupted,
		"iterations", run.Iterations,
		"evaluations", run.Evaluations,
		"rejected", run.Rejected,
		"best_score", best.Score,
		"improvement", run.Improvement())
	return run, nil
}

// #endregion run

// #region score
// scoreBatch scores candidates on pipeline clones. Results keep proposal order.
func (o *Optimizer) scoreBatch(ctx context.Context, p *pipeline.Pipeline, batch []params.Set) []Candidate {
	out := make([]Candidate, len(batch))
	var g errgroup.Group
	g.SetLimit(max(1, o.config.Workers))
	for i, ps := range batch {
		g.Go(func() error {
			out[i] = o.score(ctx, p, ps)
			return nil
		})
	}
	_ = g.Wait()

	name := o.strategy.Name()
	for _, c := range out {
		telemetry.CandidatesEvaluated.WithLabelValues(name).Inc()
		if c.Err != nil {
			telemetry.CandidatesRejected.WithLabelValues(name).Inc()
			o.logger.Debug("candidate rejected", "error", c.Err)
		}
	}
	return out
}

func (o *Optimizer) score(ctx context.Context, p *pipeline.Pipeline, ps params.Set) Candidate {
	reject := func(err error) Candidate {
		return Candidate{Params: ps, Score: math.Inf(1), Err: fmt.Errorf("%w: %w", ErrSearchRejected, err)}
	}
	candidate, err := p.WithParameters(ps)
	if err != nil {
		return reject(err)
	}
	report, err := o.evaluator.Run(ctx, candidate, o.corpus)
	if err != nil {
		return reject(err)
	}
	return Candidate{Params: ps, Score: report.AggregateScore, Report: report}
}

// #endregion score
