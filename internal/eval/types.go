package eval

import (
	"github.com/danielpatrickdp/reimbursement-engine/internal/corpus"
)

// #region score-config
// ScoreConfig holds the match tolerances and the aggregate score policy.
type ScoreConfig struct {
	ExactTolerance   float64 `yaml:"exact_tolerance" json:"exact_tolerance" validate:"gte=0"`
	CloseTolerance   float64 `yaml:"close_tolerance" json:"close_tolerance" validate:"gtefield=ExactTolerance"`
	ExactMissPenalty float64 `yaml:"exact_miss_penalty" json:"exact_miss_penalty" validate:"gte=0"`
}

// DefaultScoreConfig returns exact within 0.01, close within 1.00, one point per non-exact case.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		ExactTolerance:   0.01,
		CloseTolerance:   1.0,
		ExactMissPenalty: 1.0,
	}
}

// #endregion score-config

// #region prediction
// Class buckets a prediction by its absolute error.
type Class string

const (
	ClassExact Class = "exact"
	ClassClose Class = "close"
	ClassMiss  Class = "miss"
)

// PredictionRecord is one case's outcome for a single evaluator pass.
type PredictionRecord struct {
	Index     int         `json:"index"`
	Case      corpus.Case `json:"case"`
	Predicted float64     `json:"predicted"`
	Expected  float64     `json:"expected"`
	AbsError  float64     `json:"abs_error"`
	Class     Class       `json:"class"`
}

// #endregion prediction

// #region score-report
// ScoreReport is the reduction of one evaluator pass. Lower AggregateScore is better.
type ScoreReport struct {
	TotalCases     int     `json:"total_cases"`
	ExactMatches   int     `json:"exact_matches"`
	CloseMatches   int     `json:"close_matches"`
	AverageError   float64 `json:"average_error"`
	TotalError     float64 `json:"total_error"`
	MaxError       float64 `json:"max_error"`
	AggregateScore float64 `json:"aggregate_score"`
}

// ExactRate is the fraction of cases matched exactly.
func (r ScoreReport) ExactRate() float64 {
	if r.TotalCases == 0 {
		return 0
	}
	return float64(r.ExactMatches) / float64(r.TotalCases)
}

// CloseRate is the fraction of cases within the close tolerance, exact ones included.
func (r ScoreReport) CloseRate() float64 {
	if r.TotalCases == 0 {
		return 0
	}
	return float64(r.CloseMatches) / float64(r.TotalCases)
}

// #endregion score-report
