package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/reimbursement-engine/internal/corpus"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
	"github.com/danielpatrickdp/reimbursement-engine/internal/pipeline"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string          `json:"description"`
	Pipeline    FixturePipeline `json:"pipeline"`
	Tolerance   float64         `json:"tolerance"`
	Trips       []FixtureTrip   `json:"trips"`
}

// FixturePipeline describes how to build the pipeline under test.
type FixturePipeline struct {
	Preset           string     `json:"preset"`
	QuirkTriggers    []int64    `json:"quirk_triggers,omitempty"`
	ClampNonNegative bool       `json:"clamp_non_negative"`
	Parameters       params.Set `json:"parameters,omitempty"`
}

// FixtureTrip is one labeled trip with optional pinned stage values.
type FixtureTrip struct {
	ID             string             `json:"id"`
	Days           int                `json:"days"`
	Miles          float64            `json:"miles"`
	Receipts       float64            `json:"receipts"`
	Expected       float64            `json:"expected"`
	ExpectedStages map[string]float64 `json:"expected_stages,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Build constructs the pipeline a fixture describes: the preset, then the
// parameter overrides.
func (fp *FixturePipeline) Build() (*pipeline.Pipeline, error) {
	p, err := pipeline.NewPreset(fp.Preset, fp.QuirkTriggers, pipeline.Options{ClampNonNegative: fp.ClampNonNegative})
	if err != nil {
		return nil, err
	}
	if len(fp.Parameters) > 0 {
		if err := p.SetParameters(fp.Parameters); err != nil {
			return nil, fmt.Errorf("fixture parameters: %w", err)
		}
	}
	return p, nil
}

// ToTrip converts a FixtureTrip to a replay Trip.
func (ft *FixtureTrip) ToTrip() Trip {
	return Trip{
		ID:             ft.ID,
		Days:           ft.Days,
		Miles:          ft.Miles,
		Receipts:       ft.Receipts,
		Expected:       ft.Expected,
		ExpectedStages: ft.ExpectedStages,
	}
}

// TripsFromCorpus turns every corpus case into a trip labeled by its index.
func TripsFromCorpus(c *corpus.Corpus) []Trip {
	trips := make([]Trip, 0, c.Len())
	for i, cs := range c.All() {
		trips = append(trips, Trip{
			ID:       fmt.Sprintf("case-%d", i),
			Days:     cs.Days,
			Miles:    cs.Miles,
			Receipts: cs.Receipts,
			Expected: cs.Expected,
		})
	}
	return trips
}

// Run replays every fixture trip. The tolerance defaults to 0.01.
func (f *Fixture) Run() ([]ReplayResult, error) {
	p, err := f.Pipeline.Build()
	if err != nil {
		return nil, err
	}
	tol := f.Tolerance
	if tol <= 0 {
		tol = 0.01
	}
	trips := make([]Trip, len(f.Trips))
	for i := range f.Trips {
		trips[i] = f.Trips[i].ToTrip()
	}
	return Replay(p, trips, tol), nil
}

// #endregion fixture-loader
