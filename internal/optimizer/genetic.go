package optimizer

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region genetic-config
// GeneticConfig tunes the population search.
type GeneticConfig struct {
	Population    int     // members per generation
	EliteFraction float64 // share of the best members carried over unchanged
	MutationRate  float64 // per-gene mutation probability
	MutationScale float64 // gaussian sigma as a fraction of the range width
}

// DefaultGeneticConfig returns a population of 20 keeping the best 20%.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		Population:    20,
		EliteFraction: 0.2,
		MutationRate:  0.1,
		MutationScale: 0.1,
	}
}

// #endregion genetic-config

// #region genetic
// Genetic keeps a scored population. Each generation carries the elite over, then
// fills the rest with children bred by tournament selection from the better half,
// uniform crossover and gaussian mutation clamped to bounds. It never ends on its
// own; the budget or patience stops it.
type Genetic struct {
	config GeneticConfig

	space      Space
	rng        *rand.Rand
	population []member
	seeded     bool
}

type member struct {
	genes []float64
	score float64
}

// NewGenetic creates a genetic search. Zero fields take DefaultGeneticConfig values.
func NewGenetic(config GeneticConfig) *Genetic {
	def := DefaultGeneticConfig()
	if config.Population < 2 {
		config.Population = def.Population
	}
	if config.EliteFraction <= 0 || config.EliteFraction >= 1 {
		config.EliteFraction = def.EliteFraction
	}
	if config.MutationRate <= 0 {
		config.MutationRate = def.MutationRate
	}
	if config.MutationScale <= 0 {
		config.MutationScale = def.MutationScale
	}
	return &Genetic{config: config}
}

func (g *Genetic) Name() string { return StrategyGenetic }

func (g *Genetic) Start(initial Candidate, space Space, rng *rand.Rand) error {
	g.space = space
	g.rng = rng
	g.population = []member{{genes: space.Vector(initial.Params), score: initial.Score}}
	g.seeded = false
	return nil
}

func (g *Genetic) Propose() ([]params.Set, error) {
	var genes [][]float64
	if !g.seeded {
		genes = g.seed()
	} else {
		genes = g.breed()
	}
	out := make([]params.Set, len(genes))
	for i, v := range genes {
		out[i] = g.space.Set(v)
	}
	return out, nil
}

func (g *Genetic) Observe(scored []Candidate) {
	g.seeded = true
	for _, c := range scored {
		g.population = append(g.population, member{genes: g.space.Vector(c.Params), score: c.Score})
	}
	slices.SortStableFunc(g.population, func(a, b member) int { return cmp.Compare(a.score, b.score) })
	if len(g.population) > g.config.Population {
		g.population = g.population[:g.config.Population]
	}
}

// seed fills the first generation: half jittered copies of the initial set, half uniform draws.
func (g *Genetic) seed() [][]float64 {
	origin := g.population[0].genes
	n := g.config.Population - 1
	out := make([][]float64, 0, n)
	for i := range n {
		v := make([]float64, len(origin))
		for j := range v {
			r := g.space.Range(j)
			if i%2 == 0 {
				v[j] = origin[j] + g.rng.NormFloat64()*g.config.MutationScale*r.Width()
			} else {
				v[j] = r.Lo + g.rng.Float64()*r.Width()
			}
		}
		g.space.Clamp(v)
		out = append(out, v)
	}
	return out
}

// breed produces the children of the next generation. The elite stay in g.population.
func (g *Genetic) breed() [][]float64 {
	parents := g.population
	g.population = parents[:min(g.eliteCount(), len(parents))]

	n := g.config.Population - len(g.population)
	out := make([][]float64, 0, n)
	for range n {
		a, b := g.tournament(parents), g.tournament(parents)
		child := make([]float64, len(a.genes))
		for j := range child {
			if g.rng.IntN(2) == 0 {
				child[j] = a.genes[j]
			} else {
				child[j] = b.genes[j]
			}
			if g.rng.Float64() < g.config.MutationRate {
				child[j] += g.rng.NormFloat64() * g.config.MutationScale * g.space.Range(j).Width()
			}
		}
		g.space.Clamp(child)
		out = append(out, child)
	}
	return out
}

func (g *Genetic) eliteCount() int {
	return max(1, int(math.Ceil(g.config.EliteFraction*float64(g.config.Population))))
}

// tournament picks the better of two members drawn from the better half.
func (g *Genetic) tournament(pool []member) member {
	half := max(1, (len(pool)+1)/2)
	a := pool[g.rng.IntN(half)]
	b := pool[g.rng.IntN(half)]
	if b.score < a.score {
		return b
	}
	return a
}

// #endregion genetic
