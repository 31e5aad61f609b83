package logging

import (
	"time"

	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
)

// #region calibration-entry
// CalibrationEntry is a single row in the calibration_log table.
type CalibrationEntry struct {
	VersionID  string
	RunID      string
	Strategy   string
	RecordJSON string
	Decision   string // "commit" | "reject" | "no_op"
	Reason     string
	CreatedAt  time.Time
}
// #endregion calibration-entry

// #region calibration-record
// CalibrationRecord captures everything the promotion gate saw for one run.
// Serialized as JSON into calibration_log.record_json so a decision can be audited later.
type CalibrationRecord struct {
	RunID       string `json:"run_id"`
	Strategy    string `json:"strategy"`
	Status      string `json:"status"`
	Interrupted bool   `json:"interrupted"`
	Iterations  int    `json:"iterations"`
	Evaluations int    `json:"evaluations"`
	Rejected    int    `json:"rejected"`
	Seed        uint64 `json:"seed"`

	// Scores on the training cases
	Baseline  eval.ScoreReport `json:"baseline"`
	Candidate eval.ScoreReport `json:"candidate"`

	// Scores on the holdout cases, when a split was used
	BaselineHoldout  *eval.ScoreReport `json:"baseline_holdout,omitempty"`
	CandidateHoldout *eval.ScoreReport `json:"candidate_holdout,omitempty"`

	// Gate thresholds active at decision time
	Thresholds CalibrationThresholds `json:"thresholds"`

	// Gate output
	GateAction    string  `json:"gate_action"`
	GateSoftScore float64 `json:"gate_soft_score"`
	GateVetoed    bool    `json:"gate_vetoed"`
	GateReason    string  `json:"gate_reason"`
}

// CalibrationThresholds captures the gate config active at decision time.
type CalibrationThresholds struct {
	MinImprovement       float64 `json:"min_improvement"`
	AllowExactRegression bool    `json:"allow_exact_regression"`
	MaxHoldoutRegression float64 `json:"max_holdout_regression"`
}
// #endregion calibration-record
