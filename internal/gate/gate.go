package gate

import (
	"fmt"
	"math"
)

// #region gate
// Gate decides whether a calibrated parameter set replaces the active one.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks hard vetoes first, then whether the improvement is worth a commit.
func (g *Gate) Evaluate(p Proposal) GateDecision {
	var vetoes []VetoSignal
	improvement := p.Baseline.AggregateScore - p.Candidate.AggregateScore

	// --- Hard veto pass ---

	if err := p.Params.CheckFinite(); err != nil {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoInvalidParameters,
			Reason: err.Error(),
		})
	}

	if improvement < 0 {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoScoreRegression,
			Reason: fmt.Sprintf("score %.4f worse than baseline %.4f", p.Candidate.AggregateScore, p.Baseline.AggregateScore),
		})
	}

	if !g.config.AllowExactRegression && p.Candidate.ExactMatches < p.Baseline.ExactMatches {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoExactRegression,
			Reason: fmt.Sprintf("exact matches dropped from %d to %d", p.Baseline.ExactMatches, p.Candidate.ExactMatches),
		})
	}

	if p.BaselineHoldout != nil && p.CandidateHoldout != nil {
		drift := p.CandidateHoldout.AggregateScore - p.BaselineHoldout.AggregateScore
		if drift > g.config.MaxHoldoutRegression {
			vetoes = append(vetoes, VetoSignal{
				Type:   VetoHoldoutRegression,
				Reason: fmt.Sprintf("holdout score rose by %.4f (max %.4f)", drift, g.config.MaxHoldoutRegression),
			})
		}
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      ActionReject,
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			Improvement: improvement,
		}
	}

	// --- Improvement threshold ---
	soft := softScore(p.Baseline.AggregateScore, improvement)
	if improvement < g.config.MinImprovement || improvement == 0 {
		return GateDecision{
			Action:      ActionNoOp,
			Reason:      fmt.Sprintf("improvement %.4f below threshold %.4f", improvement, g.config.MinImprovement),
			Improvement: improvement,
			SoftScore:   soft,
		}
	}

	return GateDecision{
		Action:      ActionCommit,
		Reason:      fmt.Sprintf("passed gate: improvement=%.4f soft_score=%.4f", improvement, soft),
		Improvement: improvement,
		SoftScore:   soft,
	}
}

// #endregion gate

// #region helpers
// softScore is the improvement as a share of the baseline score.
func softScore(baseline, improvement float64) float64 {
	if baseline <= 0 || improvement <= 0 {
		return 0
	}
	return math.Min(1, improvement/baseline)
}

// #endregion helpers
