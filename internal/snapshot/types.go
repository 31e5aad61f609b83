package snapshot

import (
	"time"

	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/optimizer"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region version
// Version is a stored parameter set with the score it earned when it was recorded.
type Version struct {
	VersionID  string
	ParentID   string
	Parameters params.Set
	Report     eval.ScoreReport
	Strategy   string
	RunID      string
	CreatedAt  time.Time
}
// #endregion version

// #region version-with-decision
// VersionWithDecision pairs a version with the latest calibration_log row that names it.
type VersionWithDecision struct {
	Version
	Active   bool
	Decision string
	Reason   string
}
// #endregion version-with-decision

// #region state-file
// State is the on-disk form of a calibration: the parameter snapshot plus, optionally,
// the score and search history that produced it.
type State struct {
	Parameters params.Set               `json:"parameters"`
	Report     *eval.ScoreReport        `json:"report,omitempty"`
	Strategy   string                   `json:"strategy,omitempty"`
	RunID      string                   `json:"run_id,omitempty"`
	History    []optimizer.HistoryEntry `json:"history,omitempty"`
	SavedAt    time.Time                `json:"saved_at"`
}
// #endregion state-file
