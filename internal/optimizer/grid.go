package optimizer

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region grid
// Grid enumerates a fixed lattice of Steps evenly spaced points per tuned parameter,
// BatchSize points per iteration, and reports ErrExhausted once every point was proposed.
type Grid struct {
	steps   int
	batch   int
	space   Space
	counter []int
	done    bool
}

// NewGrid creates a grid search. steps < 1 defaults to 5, batch < 1 to 16.
func NewGrid(steps, batch int) *Grid {
	if steps < 1 {
		steps = 5
	}
	if batch < 1 {
		batch = 16
	}
	return &Grid{steps: steps, batch: batch}
}

func (g *Grid) Name() string { return StrategyGrid }

func (g *Grid) Start(_ Candidate, space Space, _ *rand.Rand) error {
	g.space = space
	g.counter = make([]int, space.Dim())
	g.done = false
	return nil
}

func (g *Grid) Propose() ([]params.Set, error) {
	if g.done {
		return nil, ErrExhausted
	}
	var out []params.Set
	for len(out) < g.batch && !g.done {
		out = append(out, g.space.Set(g.point()))
		g.advance()
	}
	return out, nil
}

func (g *Grid) Observe([]Candidate) {}

// point maps the counter onto the lattice.
func (g *Grid) point() []float64 {
	v := make([]float64, len(g.counter))
	for i, k := range g.counter {
		r := g.space.Range(i)
		if g.steps == 1 {
			v[i] = r.Lo + r.Width()/2
			continue
		}
		v[i] = r.Lo + r.Width()*float64(k)/float64(g.steps-1)
	}
	return v
}

// advance increments the mixed-radix counter, last name fastest.
func (g *Grid) advance() {
	for i := len(g.counter) - 1; i >= 0; i-- {
		g.counter[i]++
		if g.counter[i] < g.steps {
			return
		}
		g.counter[i] = 0
	}
	g.done = true
}

// #endregion grid
