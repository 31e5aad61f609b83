package replay

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/reimbursement-engine/internal/pipeline"
)

// #region types
// Trip is a single labeled input to replay. ExpectedStages optionally pins
// individual breakdown fields (per_diem, mileage, receipts, subtotal, bonuses, quirks).
type Trip struct {
	ID             string
	Days           int
	Miles          float64
	Receipts       float64
	Expected       float64
	ExpectedStages map[string]float64
}

// ReplayResult captures the outcome of replaying one trip through the pipeline.
type ReplayResult struct {
	ID        string
	Action    string // "match" | "diverge" | "error"
	Reason    string
	Breakdown pipeline.Breakdown
	Expected  float64
	AbsError  float64

	// StageDiffs lists every pinned stage that disagreed, as "name: want X got Y".
	StageDiffs []string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTrips int
	Matches    int
	Diverged   int
	Errors     int
	MaxError   float64
}

const (
	ActionMatch   = "match"
	ActionDiverge = "diverge"
	ActionError   = "error"
)

// #endregion types

// #region replay
// Replay runs every trip through p with a per-stage breakdown and compares the total,
// and any pinned stage values, within tolerance. It never mutates p.
func Replay(p *pipeline.Pipeline, trips []Trip, tolerance float64) []ReplayResult {
	results := make([]ReplayResult, 0, len(trips))

	for _, trip := range trips {
		b, err := p.Explain(trip.Days, trip.Miles, trip.Receipts)
		if err != nil {
			results = append(results, ReplayResult{
				ID:       trip.ID,
				Action:   ActionError,
				Reason:   err.Error(),
				Expected: trip.Expected,
			})
			continue
		}

		absErr := math.Abs(b.Total - trip.Expected)
		diffs := stageDiffs(b, trip.ExpectedStages, tolerance)

		r := ReplayResult{
			ID:         trip.ID,
			Action:     ActionMatch,
			Reason:     fmt.Sprintf("total %.2f within %.2f", b.Total, tolerance),
			Breakdown:  b,
			Expected:   trip.Expected,
			AbsError:   absErr,
			StageDiffs: diffs,
		}
		switch {
		case absErr > tolerance+1e-9:
			r.Action = ActionDiverge
			r.Reason = fmt.Sprintf("total %.2f, expected %.2f", b.Total, trip.Expected)
		case len(diffs) > 0:
			r.Action = ActionDiverge
			r.Reason = diffs[0]
		}
		results = append(results, r)
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalTrips: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionMatch:
			s.Matches++
		case ActionDiverge:
			s.Diverged++
		case ActionError:
			s.Errors++
		}
		s.MaxError = max(s.MaxError, r.AbsError)
	}
	return s
}

// #endregion replay

// #region stage-diffs
// stageFields maps the pinnable names onto breakdown fields.
var stageFields = []struct {
	name string
	get  func(pipeline.Breakdown) float64
}{
	{"per_diem", func(b pipeline.Breakdown) float64 { return b.PerDiem }},
	{"mileage", func(b pipeline.Breakdown) float64 { return b.Mileage }},
	{"receipts", func(b pipeline.Breakdown) float64 { return b.Receipts }},
	{"subtotal", func(b pipeline.Breakdown) float64 { return b.Subtotal }},
	{"bonuses", func(b pipeline.Breakdown) float64 { return b.Bonuses }},
	{"quirks", func(b pipeline.Breakdown) float64 { return b.Quirks }},
}

func stageDiffs(b pipeline.Breakdown, want map[string]float64, tolerance float64) []string {
	var diffs []string
	for _, f := range stageFields {
		w, ok := want[f.name]
		if !ok {
			continue
		}
		if got := f.get(b); math.Abs(got-w) > tolerance+1e-9 {
			diffs = append(diffs, fmt.Sprintf("%s: want %.2f got %.2f", f.name, w, got))
		}
	}
	return diffs
}

// #endregion stage-diffs
