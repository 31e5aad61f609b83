package optimizer

import (
	"math/rand/v2"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region hill-climb
// HillClimb is a strict coordinate hill-climb. Each iteration proposes every tuned
// parameter moved up and down by step × range width. The best neighbour replaces the
// current point only if it scores strictly lower; otherwise the step halves. Once the
// step falls below minStep the climb reports ErrConverged.
type HillClimb struct {
	step    float64
	minStep float64

	space   Space
	current Candidate
	cur     float64
}

// NewHillClimb creates a hill-climb. step <= 0 defaults to 0.1, minStep <= 0 to 1e-4.
func NewHillClimb(step, minStep float64) *HillClimb {
	if step <= 0 {
		step = 0.1
	}
	if minStep <= 0 {
		minStep = 1e-4
	}
	return &HillClimb{step: step, minStep: minStep}
}

func (h *HillClimb) Name() string { return StrategyHillClimb }

func (h *HillClimb) Start(initial Candidate, space Space, _ *rand.Rand) error {
	h.space = space
	h.current = initial
	h.cur = h.step
	return nil
}

func (h *HillClimb) Propose() ([]params.Set, error) {
	for h.cur >= h.minStep {
		if out := h.neighbours(); len(out) > 0 {
			return out, nil
		}
		// Every move was pinned by a bound; try finer moves.
		h.cur /= 2
	}
	return nil, ErrConverged
}

func (h *HillClimb) neighbours() []params.Set {
	base := h.space.Vector(h.current.Params)
	var out []params.Set
	for i := range base {
		r := h.space.Range(i)
		delta := h.cur * r.Width()
		for _, sign := range []float64{1, -1} {
			v := make([]float64, len(base))
			copy(v, base)
			v[i] = r.Clamp(base[i] + sign*delta)
			if v[i] == base[i] {
				continue
			}
			out = append(out, h.space.Set(v))
		}
	}
	return out
}

func (h *HillClimb) Observe(scored []Candidate) {
	best := -1
	for i, c := range scored {
		if c.Score < h.current.Score && (best < 0 || c.Score < scored[best].Score) {
			best = i
		}
	}
	if best < 0 {
		h.cur /= 2
		return
	}
	h.current = scored[best]
}

// #endregion hill-climb
