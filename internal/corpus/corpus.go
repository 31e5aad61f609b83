package corpus

import (
	"fmt"
	"iter"
	"math"
	"math/rand/v2"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region corpus
// Corpus is an immutable ordered sequence of cases.
type Corpus struct {
	cases []Case
}

// New validates cases and copies them into a corpus.
func New(cases []Case) (*Corpus, error) {
	for i, c := range cases {
		if err := validate(c); err != nil {
			return nil, fmt.Errorf("corpus: case %d: %w", i, err)
		}
	}
	return &Corpus{cases: append([]Case(nil), cases...)}, nil
}

// Len returns the number of cases.
func (c *Corpus) Len() int { return len(c.cases) }

// At returns the i-th case.
func (c *Corpus) At(i int) Case { return c.cases[i] }

// All iterates the cases in order.
func (c *Corpus) All() iter.Seq2[int, Case] {
	return func(yield func(int, Case) bool) {
		for i, cs := range c.cases {
			if !yield(i, cs) {
				return
			}
		}
	}
}

// Cases returns a copy of the cases.
func (c *Corpus) Cases() []Case {
	return append([]Case(nil), c.cases...)
}

// #endregion corpus

// #region split
// Split shuffles a copy of the corpus with seed and divides it into a training part
// holding trainFraction of the cases and a holdout part with the rest.
func (c *Corpus) Split(trainFraction float64, seed uint64) (train, holdout *Corpus, err error) {
	if trainFraction <= 0 || trainFraction > 1 || math.IsNaN(trainFraction) {
		return nil, nil, fmt.Errorf("corpus: train fraction %v outside (0, 1]", trainFraction)
	}
	shuffled := c.Cases()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	n := int(math.Round(trainFraction * float64(len(shuffled))))
	return &Corpus{cases: shuffled[:n:n]}, &Corpus{cases: shuffled[n:]}, nil
}

// #endregion split

// #region validate
func validate(c Case) error {
	if c.Days < 1 {
		return fmt.Errorf("days=%d must be >= 1: %w", c.Days, params.ErrInvalidInput)
	}
	for name, v := range map[string]float64{"miles": c.Miles, "receipts": c.Receipts} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s=%v must be finite and non-negative: %w", name, v, params.ErrInvalidInput)
		}
	}
	if math.IsNaN(c.Expected) || math.IsInf(c.Expected, 0) {
		return fmt.Errorf("expected=%v must be finite: %w", c.Expected, params.ErrInvalidInput)
	}
	return nil
}

// #endregion validate
