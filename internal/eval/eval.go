package eval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/reimbursement-engine/internal/corpus"
	"github.com/danielpatrickdp/reimbursement-engine/internal/telemetry"
)

// ErrEmptyCorpus is returned when there is nothing to score against.
var ErrEmptyCorpus = errors.New("eval: empty corpus")

// epsilon absorbs float noise in tolerance comparisons so 0.01 stays exact.
const epsilon = 1e-9

// Predictor is the read-only view of a pipeline the evaluator needs.
type Predictor interface {
	Evaluate(days int, miles, receipts float64) (float64, error)
}

// #region evaluator
// Evaluator scores a Predictor against a corpus.
type Evaluator struct {
	config  ScoreConfig
	workers int
}

// NewEvaluator creates an evaluator. workers <= 0 means GOMAXPROCS.
func NewEvaluator(config ScoreConfig, workers int) *Evaluator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{config: config, workers: workers}
}

// Config returns the scoring policy.
func (e *Evaluator) Config() ScoreConfig { return e.config }

// Run evaluates every case once and reduces the results into a ScoreReport.
// The first failing case (by corpus order) aborts the pass.
func (e *Evaluator) Run(ctx context.Context, p Predictor, c *corpus.Corpus) (ScoreReport, error) {
	records, err := e.Predict(ctx, p, c)
	if err != nil {
		return ScoreReport{}, err
	}
	return Summarize(records, e.config), nil
}

// Predict evaluates every case and returns one record per case in corpus order.
// Cases are split into contiguous chunks, one goroutine each; each goroutine writes
// only its own slots so no locking is needed.
func (e *Evaluator) Predict(ctx context.Context, p Predictor, c *corpus.Corpus) ([]PredictionRecord, error) {
	n := c.Len()
	if n == 0 {
		return nil, ErrEmptyCorpus
	}
	start := time.Now()

	records := make([]PredictionRecord, n)
	errs := make([]error, n)

	workers := min(e.workers, n)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				cs := c.At(i)
				got, err := p.Evaluate(cs.Days, cs.Miles, cs.Receipts)
				if err != nil {
					errs[i] = err
					continue
				}
				records[i] = e.classify(i, cs, got)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
	}

	telemetry.EvaluatorPasses.Inc()
	telemetry.EvaluatorPassDuration.Observe(time.Since(start).Seconds())
	return records, nil
}

func (e *Evaluator) classify(i int, cs corpus.Case, got float64) PredictionRecord {
	absErr := math.Abs(got - cs.Expected)
	class := ClassMiss
	switch {
	case absErr <= e.config.ExactTolerance+epsilon:
		class = ClassExact
	case absErr <= e.config.CloseTolerance+epsilon:
		class = ClassClose
	}
	return PredictionRecord{
		Index:     i,
		Case:      cs,
		Predicted: got,
		Expected:  cs.Expected,
		AbsError:  absErr,
		Class:     class,
	}
}

// #endregion evaluator

// #region reduce
// Summarize reduces records in order. Summation order is fixed so the report is
// bit-identical regardless of how the records were produced.
func Summarize(records []PredictionRecord, config ScoreConfig) ScoreReport {
	r := ScoreReport{TotalCases: len(records)}
	if len(records) == 0 {
		return r
	}
	for _, rec := range records {
		r.TotalError += rec.AbsError
		r.MaxError = max(r.MaxError, rec.AbsError)
		switch rec.Class {
		case ClassExact:
			r.ExactMatches++
			r.CloseMatches++
		case ClassClose:
			r.CloseMatches++
		}
	}
	r.AverageError = r.TotalError / float64(r.TotalCases)
	r.AggregateScore = 100*r.AverageError + config.ExactMissPenalty*float64(r.TotalCases-r.ExactMatches)
	return r
}

// Worst returns up to n records with the largest error, largest first.
// Ties keep corpus order.
func Worst(records []PredictionRecord, n int) []PredictionRecord {
	if n <= 0 {
		return nil
	}
	sorted := make([]PredictionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AbsError > sorted[j].AbsError
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// #endregion reduce
