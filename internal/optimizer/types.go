package optimizer

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region status
// Status is the optimizer lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusConverged Status = "converged"
	StatusExhausted Status = "exhausted"
)

// #endregion status

// #region errors
var (
	// ErrSearchRejected wraps a candidate that could not be scored. It is logged, never returned by Run.
	ErrSearchRejected = errors.New("search rejected candidate")

	// ErrExhausted is returned by Strategy.Propose when it has nothing left to try.
	ErrExhausted = errors.New("strategy exhausted")

	// ErrConverged is returned by Strategy.Propose when it has settled on a local optimum.
	ErrConverged = errors.New("strategy converged")

	// ErrBusy is returned when Run is called on an optimizer that is already searching.
	ErrBusy = errors.New("optimizer already searching")
)

// #endregion errors

// #region config
// Budget bounds a search. Zero fields are unlimited; at least one should be set
// or the strategy must end the search itself.
type Budget struct {
	MaxIterations int           `yaml:"max_iterations" json:"max_iterations" validate:"gte=0"`
	MaxDuration   time.Duration `yaml:"max_duration" json:"max_duration" validate:"gte=0"`
	Patience      int           `yaml:"patience" json:"patience" validate:"gte=0"`
}

// Config holds everything a run needs beyond the strategy.
type Config struct {
	Budget  Budget
	Seed    uint64
	Workers int           // candidates scored concurrently per batch; <= 0 means 1
	Names   []string      // tuned names; empty tunes every name with a range
	Bounds  params.Bounds // overrides merged over params.DefaultBounds
}

// DefaultConfig returns a small bounded search.
func DefaultConfig() Config {
	return Config{
		Budget:  Budget{MaxIterations: 200, Patience: 25},
		Seed:    1,
		Workers: 1,
	}
}

// #endregion config

// #region candidate
// Candidate is a scored parameter set. Err is set when the set was rejected.
type Candidate struct {
	Params params.Set
	Score  float64
	Report eval.ScoreReport
	Err    error
}

// #endregion candidate

// #region run
// HistoryEntry records the best score known after an iteration.
type HistoryEntry struct {
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
}

// Run is the record of one optimizer invocation.
type Run struct {
	ID            string           `json:"id"`
	Strategy      string           `json:"strategy"`
	Status        Status           `json:"status"`
	Interrupted   bool             `json:"interrupted"`
	Iterations    int              `json:"iterations"`
	Evaluations   int              `json:"evaluations"`
	Rejected      int              `json:"rejected"`
	Initial       params.Set       `json:"initial"`
	InitialReport eval.ScoreReport `json:"initial_report"`
	Best          params.Set       `json:"best"`
	BestReport    eval.ScoreReport `json:"best_report"`
	History       []HistoryEntry   `json:"history"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
}

// Improvement is how much the aggregate score dropped from the initial set.
func (r *Run) Improvement() float64 {
	return r.InitialReport.AggregateScore - r.BestReport.AggregateScore
}

// #endregion run
