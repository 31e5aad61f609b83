package optimizer

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/reimbursement-engine/internal/corpus"
	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
	"github.com/danielpatrickdp/reimbursement-engine/internal/pipeline"
)

// perDiemCorpus labels day-only trips as if the per diem rate were rate.
func perDiemCorpus(t *testing.T, rate float64) *corpus.Corpus {
	t.Helper()
	var cases []corpus.Case
	for d := 1; d <= 6; d++ {
		cases = append(cases, corpus.Case{Days: d, Expected: rate * float64(d)})
	}
	c, err := corpus.New(cases)
	require.NoError(t, err)
	return c
}

func nominalWithRate(t *testing.T, rate float64) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.Nominal()
	require.NoError(t, p.SetParameters(params.Set{"per_diem.rate": rate}))
	return p
}

func newOptimizer(c *corpus.Corpus, s Strategy, cfg Config) *Optimizer {
	return New(eval.NewEvaluator(eval.DefaultScoreConfig(), 2), c, s, cfg)
}

func rateOnly(budget Budget) Config {
	return Config{
		Budget:  budget,
		Seed:    7,
		Workers: 3,
		Names:   []string{"per_diem.rate"},
		Bounds:  params.Bounds{"per_diem.rate": {Lo: 50, Hi: 150}},
	}
}

func assertMonotonic(t *testing.T, run *Run) {
	t.Helper()
	prev := run.InitialReport.AggregateScore
	for _, h := range run.History {
		assert.LessOrEqual(t, h.Score, prev, "iteration %d", h.Iteration)
		prev = h.Score
	}
}

func TestOptimizer_HillClimbRecoversRate(t *testing.T) {
	c := perDiemCorpus(t, 110)
	p := nominalWithRate(t, 100)
	o := newOptimizer(c, NewHillClimb(0.1, 1e-3), rateOnly(Budget{MaxIterations: 100}))
	assert.Equal(t, StatusIdle, o.Status())

	run, err := o.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StatusConverged, run.Status)
	assert.Equal(t, StatusConverged, o.Status())
	assert.InDelta(t, 110.0, run.Best["per_diem.rate"], 1e-9)
	assert.InDelta(t, 110.0, p.Parameters()["per_diem.rate"], 1e-9)
	assert.Equal(t, 6, run.BestReport.ExactMatches)
	assert.Greater(t, run.Improvement(), 0.0)
	assert.NotEmpty(t, run.ID)
	assertMonotonic(t, run)
}

func TestOptimizer_NeverWritesBackWorse(t *testing.T) {
	c := perDiemCorpus(t, 110)
	p := nominalWithRate(t, 110)
	initial := p.Parameters()

	run, err := newOptimizer(c, NewGenetic(GeneticConfig{Population: 8}), rateOnly(Budget{MaxIterations: 5})).
		Run(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, initial.Equal(p.Parameters()))
	assert.True(t, initial.Equal(run.Best))
	assert.Equal(t, run.InitialReport, run.BestReport)
	assertMonotonic(t, run)
}

func TestOptimizer_PatienceConverges(t *testing.T) {
	c := perDiemCorpus(t, 110)
	run, err := newOptimizer(c, NewGenetic(GeneticConfig{}), rateOnly(Budget{MaxIterations: 100, Patience: 3})).
		Run(context.Background(), nominalWithRate(t, 110))
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, run.Status)
	assert.Equal(t, 3, run.Iterations)
}

func TestOptimizer_IterationBudgetExhausts(t *testing.T) {
	c := perDiemCorpus(t, 110)
	run, err := newOptimizer(c, NewGenetic(GeneticConfig{Population: 6}), rateOnly(Budget{MaxIterations: 4})).
		Run(context.Background(), nominalWithRate(t, 90))
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, run.Status)
	assert.Equal(t, 4, run.Iterations)
	assert.Len(t, run.History, 4)
	assertMonotonic(t, run)
}

func TestOptimizer_InvalidCandidatesAreRejectedNotFatal(t *testing.T) {
	c := perDiemCorpus(t, 100)
	cfg := Config{
		Budget:  Budget{MaxIterations: 10},
		Workers: 2,
		Names:   []string{"mileage.tier1_rate"},
		// tier2_rate is 0.45, so 0 and 0.25 break the decreasing-rate rule.
		Bounds: params.Bounds{"mileage.tier1_rate": {Lo: 0, Hi: 1}},
	}
	run, err := newOptimizer(c, NewGrid(5, 16), cfg).Run(context.Background(), pipeline.Nominal())
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, run.Status)
	assert.Equal(t, 5, run.Evaluations)
	assert.Equal(t, 2, run.Rejected)
	assertMonotonic(t, run)
}

func TestOptimizer_GridEnumeratesLattice(t *testing.T) {
	c := perDiemCorpus(t, 100)
	cfg := Config{
		Budget: Budget{MaxIterations: 100},
		Names:  []string{"per_diem.rate", "bonuses.five_day_amount"},
		Bounds: params.Bounds{
			"per_diem.rate":           {Lo: 90, Hi: 110},
			"bonuses.five_day_amount": {Lo: 0, Hi: 50},
		},
	}
	run, err := newOptimizer(c, NewGrid(3, 4), cfg).Run(context.Background(), nominalWithRate(t, 95))
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, run.Status)
	assert.Equal(t, 3, run.Iterations)
	assert.Equal(t, 9, run.Evaluations)
	assert.Equal(t, 100.0, run.Best["per_diem.rate"])
	assert.Equal(t, 0.0, run.Best["bonuses.five_day_amount"])
}

func TestOptimizer_GeneticIsDeterministicForSeed(t *testing.T) {
	c := perDiemCorpus(t, 123.45)
	cfg := rateOnly(Budget{MaxIterations: 6})
	cfg.Names = append(cfg.Names, "bonuses.five_day_amount")
	cfg.Bounds["bonuses.five_day_amount"] = params.Range{Lo: 0, Hi: 100}

	runOnce := func() *Run {
		run, err := newOptimizer(c, NewGenetic(GeneticConfig{Population: 10}), cfg).
			Run(context.Background(), nominalWithRate(t, 100))
		require.NoError(t, err)
		return run
	}
	a, b := runOnce(), runOnce()
	assert.True(t, a.Best.Equal(b.Best))
	assert.Equal(t, a.History, b.History)
	assert.Less(t, a.BestReport.AggregateScore, a.InitialReport.AggregateScore)
}

// cancelAfterFirst wraps a strategy and cancels the search context after one batch.
type cancelAfterFirst struct {
	Strategy
	cancel context.CancelFunc
}

func (c cancelAfterFirst) Observe(scored []Candidate) {
	c.Strategy.Observe(scored)
	c.cancel()
}

func TestOptimizer_CancellationStopsAtIterationBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := cancelAfterFirst{Strategy: NewHillClimb(0.1, 1e-3), cancel: cancel}

	run, err := newOptimizer(perDiemCorpus(t, 110), s, rateOnly(Budget{})).Run(ctx, nominalWithRate(t, 100))
	require.NoError(t, err)
	assert.True(t, run.Interrupted)
	assert.Equal(t, StatusExhausted, run.Status)
	assert.Equal(t, 1, run.Iterations)
	assert.InDelta(t, 110.0, run.Best["per_diem.rate"], 1e-9)
}

func TestOptimizer_InitialScoringFailureIsReturned(t *testing.T) {
	empty, err := corpus.New(nil)
	require.NoError(t, err)
	o := newOptimizer(empty, NewHillClimb(0, 0), rateOnly(Budget{MaxIterations: 1}))
	_, err = o.Run(context.Background(), pipeline.Nominal())
	assert.ErrorIs(t, err, eval.ErrEmptyCorpus)
	assert.Equal(t, StatusIdle, o.Status())
}

func TestNewSpace(t *testing.T) {
	initial := pipeline.Nominal().Parameters()

	s, err := NewSpace(initial, nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, s.Names, "bonuses.five_day_trigger")
	assert.Contains(t, s.Names, "per_diem.rate")
	assert.IsIncreasing(t, s.Names)

	_, err = NewSpace(initial, []string{"per_diem.nope"}, nil)
	assert.ErrorIs(t, err, params.ErrUnknownParameter)

	_, err = NewSpace(initial, []string{"bonuses.five_day_trigger"}, nil)
	assert.ErrorContains(t, err, "no search range")

	s, err = NewSpace(initial, []string{"bonuses.five_day_trigger"},
		params.Bounds{"bonuses.five_day_trigger": {Lo: 4, Hi: 6}})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Dim())

	v := s.Vector(initial)
	v[0] = 9
	s.Clamp(v)
	assert.Equal(t, 6.0, s.Set(v)["bonuses.five_day_trigger"])
	assert.Equal(t, initial["per_diem.rate"], s.Set(v)["per_diem.rate"])
}

func TestGrid_SingleStepUsesMidpoint(t *testing.T) {
	s, err := NewSpace(params.Set{"per_diem.rate": 100}, nil, params.Bounds{"per_diem.rate": {Lo: 0, Hi: 10}})
	require.NoError(t, err)
	g := NewGrid(1, 8)
	require.NoError(t, g.Start(Candidate{}, s, nil))

	batch, err := g.Propose()
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 5.0, batch[0]["per_diem.rate"])

	_, err = g.Propose()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestHillClimb_ConvergesWhenPinned(t *testing.T) {
	s, err := NewSpace(params.Set{"per_diem.rate": 1}, nil, params.Bounds{"per_diem.rate": {Lo: 1, Hi: 1}})
	require.NoError(t, err)
	h := NewHillClimb(0.5, 0.01)
	require.NoError(t, h.Start(Candidate{Params: params.Set{"per_diem.rate": 1}}, s, nil))
	_, err = h.Propose()
	assert.ErrorIs(t, err, ErrConverged)
}

func TestGenetic_ChildrenStayInBounds(t *testing.T) {
	s, err := NewSpace(params.Set{"per_diem.rate": 100}, nil, params.Bounds{"per_diem.rate": {Lo: 95, Hi: 105}})
	require.NoError(t, err)
	g := NewGenetic(GeneticConfig{Population: 12, MutationRate: 1, MutationScale: 5})
	rng := rand.New(rand.NewPCG(1, 2))
	require.NoError(t, g.Start(Candidate{Params: s.Base, Score: 10}, s, rng))

	for gen := range 5 {
		batch, err := g.Propose()
		require.NoError(t, err)
		scored := make([]Candidate, len(batch))
		for i, ps := range batch {
			v := ps["per_diem.rate"]
			assert.True(t, s.Bounds["per_diem.rate"].Contains(v), "gen %d value %v", gen, v)
			scored[i] = Candidate{Params: ps, Score: v}
		}
		g.Observe(scored)
		assert.LessOrEqual(t, len(g.population), 12)
	}
}

func TestNewStrategy(t *testing.T) {
	for _, name := range Strategies() {
		s, err := NewStrategy(name, StrategyOptions{})
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := NewStrategy("annealing", StrategyOptions{})
	assert.Error(t, err)
}
