package pipeline

import (
	"fmt"
	"slices"

	"github.com/danielpatrickdp/reimbursement-engine/internal/stage"
)

// #region presets
const (
	// PresetNominal: 100/day, 0.58 then 0.45 per mile past 100, receipts passed
	// through, no bonus or quirk magnitude.
	PresetNominal = "nominal"

	// PresetHypothesis starts from the values suggested by staff interviews.
	PresetHypothesis = "hypothesis"
)

// DefaultQuirkTriggers are the receipt cents values the legacy system rewards.
var DefaultQuirkTriggers = []int64{49, 99}

// Presets lists the preset names NewPreset accepts.
func Presets() []string {
	return []string{PresetNominal, PresetHypothesis}
}

// NewPreset builds a pipeline from a named starting point. A nil quirkTriggers
// uses DefaultQuirkTriggers.
func NewPreset(name string, quirkTriggers []int64, opts Options) (*Pipeline, error) {
	if quirkTriggers == nil {
		quirkTriggers = DefaultQuirkTriggers
	}
	switch name {
	case PresetNominal, "":
		return build(nominalStages(quirkTriggers), opts)
	case PresetHypothesis:
		return build(hypothesisStages(quirkTriggers), opts)
	default:
		return nil, fmt.Errorf("pipeline: unknown preset %q (want one of %v)", name, Presets())
	}
}

// Nominal returns the nominal pipeline with default options.
func Nominal() *Pipeline {
	p, err := NewPreset(PresetNominal, nil, Options{})
	if err != nil {
		panic(err)
	}
	return p
}

// #endregion presets

// #region stage-values
type stageValues struct {
	perDiem       float64
	mileageLimits []float64
	mileageRates  []float64
	receipts      stage.Receipts
	bonuses       stage.Bonuses
	quirks        []stage.QuirkRule
}

func nominalStages(triggers []int64) stageValues {
	return stageValues{
		perDiem:       100,
		mileageLimits: []float64{100},
		mileageRates:  []float64{0.58, 0.45},
		receipts: stage.Receipts{
			ShortMaxDays:    3,
			MediumMaxDays:   7,
			ShortThreshold:  75,
			MediumThreshold: 120,
			LongThreshold:   90,
			ShortRetention:  1,
			MediumRetention: 1,
			LongRetention:   1,
			SmallThreshold:  20,
			SmallRetention:  1,
		},
		bonuses: stage.Bonuses{
			FiveDayTrigger:   5,
			EfficiencyMinMPD: 180,
			EfficiencyMaxMPD: 220,
		},
		quirks: []stage.QuirkRule{{Name: "cents", Triggers: slices.Clone(triggers)}},
	}
}

func hypothesisStages(triggers []int64) stageValues {
	v := nominalStages(triggers)
	v.receipts.ShortRetention = 0.5
	v.receipts.MediumRetention = 0.25
	v.receipts.LongRetention = 0
	v.receipts.SmallRetention = 0.5
	v.bonuses.FiveDayAmount = 75
	v.bonuses.EfficiencyAmount = 65
	v.quirks[0].Amount = 7.5
	return v
}

func build(v stageValues, opts Options) (*Pipeline, error) {
	mileage, err := stage.NewMileage(v.mileageLimits, v.mileageRates)
	if err != nil {
		return nil, err
	}
	receipts, err := stage.NewReceipts(v.receipts)
	if err != nil {
		return nil, err
	}
	bonuses, err := stage.NewBonuses(v.bonuses)
	if err != nil {
		return nil, err
	}
	quirks, err := stage.NewQuirks(v.quirks...)
	if err != nil {
		return nil, err
	}
	return New(stage.NewPerDiem(v.perDiem), mileage, receipts, bonuses, quirks, opts)
}

// #endregion stage-values
