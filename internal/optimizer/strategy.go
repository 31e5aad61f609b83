package optimizer

import (
	"fmt"
	"math/rand/v2"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region strategy
// Strategy proposes candidate parameter sets and learns from their scores.
// Propose and Observe alternate; Observe receives the batch in proposal order.
type Strategy interface {
	Name() string
	// Start is called once with the scored initial set before the first Propose.
	Start(initial Candidate, space Space, rng *rand.Rand) error
	// Propose returns the next batch, or ErrExhausted / ErrConverged to end the search.
	Propose() ([]params.Set, error)
	Observe(scored []Candidate)
}

// Strategy names accepted by NewStrategy.
const (
	StrategyGrid      = "grid"
	StrategyHillClimb = "hill_climb"
	StrategyGenetic   = "genetic"
)

// StrategyOptions carries the tuning knobs of every built-in strategy.
type StrategyOptions struct {
	GridSteps     int     `yaml:"grid_steps" json:"grid_steps" validate:"gte=0"`
	BatchSize     int     `yaml:"batch_size" json:"batch_size" validate:"gte=0"`
	Step          float64 `yaml:"step" json:"step" validate:"gte=0,lte=1"`
	MinStep       float64 `yaml:"min_step" json:"min_step" validate:"gte=0"`
	Population    int     `yaml:"population" json:"population" validate:"gte=0"`
	EliteFraction float64 `yaml:"elite_fraction" json:"elite_fraction" validate:"gte=0,lte=1"`
	MutationRate  float64 `yaml:"mutation_rate" json:"mutation_rate" validate:"gte=0,lte=1"`
	MutationScale float64 `yaml:"mutation_scale" json:"mutation_scale" validate:"gte=0"`
}

// NewStrategy builds a built-in strategy by name. Zero options take the strategy defaults.
func NewStrategy(name string, o StrategyOptions) (Strategy, error) {
	switch name {
	case StrategyGrid:
		return NewGrid(o.GridSteps, o.BatchSize), nil
	case StrategyHillClimb, "":
		return NewHillClimb(o.Step, o.MinStep), nil
	case StrategyGenetic:
		return NewGenetic(GeneticConfig{
			Population:    o.Population,
			EliteFraction: o.EliteFraction,
			MutationRate:  o.MutationRate,
			MutationScale: o.MutationScale,
		}), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Strategies lists the built-in strategy names.
func Strategies() []string {
	return []string{StrategyGrid, StrategyHillClimb, StrategyGenetic}
}

// #endregion strategy
