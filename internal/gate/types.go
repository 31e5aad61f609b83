package gate

import (
	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoScoreRegression   VetoType = "score_regression"
	VetoExactRegression   VetoType = "exact_regression"
	VetoHoldoutRegression VetoType = "holdout_regression"
	VetoInvalidParameters VetoType = "invalid_parameters"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region action
// Action is the gate outcome.
type Action string

const (
	ActionCommit Action = "commit"
	ActionReject Action = "reject"
	ActionNoOp   Action = "no_op"
)

// #endregion action

// #region gate-config
// GateConfig holds thresholds for promotion decisions.
type GateConfig struct {
	// MinImprovement is the aggregate score drop required to commit.
	MinImprovement       float64 `yaml:"min_improvement" json:"min_improvement" validate:"gte=0"`
	// AllowExactRegression accepts fewer exact matches if the score still drops.
	AllowExactRegression bool    `yaml:"allow_exact_regression" json:"allow_exact_regression"`
	// MaxHoldoutRegression is the tolerated holdout score increase.
	MaxHoldoutRegression float64 `yaml:"max_holdout_regression" json:"max_holdout_regression" validate:"gte=0"`
}

// DefaultGateConfig requires a 0.01 score drop with no exact-match or holdout regression.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinImprovement: 0.01,
	}
}

// #endregion gate-config

// #region proposal
// Proposal is a calibrated parameter set with its scores next to the baseline's.
// Holdout reports are optional; both must be set for the holdout check to run.
type Proposal struct {
	Params           params.Set
	Baseline         eval.ScoreReport
	Candidate        eval.ScoreReport
	BaselineHoldout  *eval.ScoreReport
	CandidateHoldout *eval.ScoreReport
}

// #endregion proposal

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      Action
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
	Improvement float64      // baseline minus candidate aggregate score
	SoftScore   float64      // relative improvement clamped to 0-1 (for logging)
}

// #endregion gate-decision
