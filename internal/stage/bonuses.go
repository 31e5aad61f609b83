package stage

import (
	"fmt"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// BonusesName is the parameter prefix of the bonus stage.
const BonusesName = "bonuses"

// #region bonus-kind
// BonusKind selects how a bonus magnitude is applied.
type BonusKind string

const (
	// BonusAdditive adds the magnitude as a flat amount.
	BonusAdditive BonusKind = "additive"
	// BonusMultiplicative adds magnitude * pre-bonus subtotal.
	BonusMultiplicative BonusKind = "multiplicative"
)

// #endregion bonus-kind

// #region bonuses
// Bonuses aggregates independent trip-shape adjustments. A bonus with a zero
// magnitude is disabled.
type Bonuses struct {
	FiveDayTrigger float64 // exact day count that earns FiveDayAmount
	FiveDayAmount  float64

	EfficiencyMinMPD   float64 // closed miles-per-day interval
	EfficiencyMaxMPD   float64
	EfficiencyAmount   float64
	EfficiencyFraction float64 // multiplicative share of the subtotal inside the interval
}

// NewBonuses validates cfg and returns it as a stage.
func NewBonuses(cfg Bonuses) (*Bonuses, error) {
	b := cfg
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// BonusRule is one entry of the bonus table.
type BonusRule struct {
	Name      string
	Kind      BonusKind
	Matches   func(in Input) bool
	Magnitude float64
}

// Rules returns the bonus table in evaluation order.
func (s *Bonuses) Rules() []BonusRule {
	inEfficiencyBand := func(in Input) bool {
		mpd := in.Miles / float64(in.Days)
		return mpd >= s.EfficiencyMinMPD && mpd <= s.EfficiencyMaxMPD
	}
	return []BonusRule{
		{
			Name:      "five_day",
			Kind:      BonusAdditive,
			Matches:   func(in Input) bool { return float64(in.Days) == s.FiveDayTrigger },
			Magnitude: s.FiveDayAmount,
		},
		{
			Name:      "efficiency",
			Kind:      BonusAdditive,
			Matches:   inEfficiencyBand,
			Magnitude: s.EfficiencyAmount,
		},
		{
			Name:      "efficiency_fraction",
			Kind:      BonusMultiplicative,
			Matches:   inEfficiencyBand,
			Magnitude: s.EfficiencyFraction,
		},
	}
}

func (s *Bonuses) Name() string { return BonusesName }

// Evaluate sums every matching bonus. Multiplicative bonuses scale in.Subtotal.
func (s *Bonuses) Evaluate(in Input) (float64, error) {
	if err := CheckInput(in); err != nil {
		return 0, err
	}
	var total float64
	for _, r := range s.Rules() {
		if r.Magnitude == 0 || !r.Matches(in) {
			continue
		}
		switch r.Kind {
		case BonusMultiplicative:
			total += r.Magnitude * in.Subtotal
		default:
			total += r.Magnitude
		}
	}
	return total, nil
}

// Triggered returns the names of enabled bonuses matching in.
func (s *Bonuses) Triggered(in Input) []string {
	if CheckInput(in) != nil {
		return nil
	}
	var names []string
	for _, r := range s.Rules() {
		if r.Magnitude != 0 && r.Matches(in) {
			names = append(names, r.Name)
		}
	}
	return names
}

// #endregion bonuses

// #region parameters
func (s *Bonuses) bindings() []binding {
	return []binding{
		{"five_day_trigger", &s.FiveDayTrigger},
		{"five_day_amount", &s.FiveDayAmount},
		{"efficiency_min_mpd", &s.EfficiencyMinMPD},
		{"efficiency_max_mpd", &s.EfficiencyMaxMPD},
		{"efficiency_amount", &s.EfficiencyAmount},
		{"efficiency_fraction", &s.EfficiencyFraction},
	}
}

func (s *Bonuses) Parameters() params.Set {
	return getBindings(BonusesName, s.bindings())
}

func (s *Bonuses) SetParameters(p params.Set) error {
	return setBindings(BonusesName, s.bindings(), p, s.validate)
}

func (s *Bonuses) Clone() Stage {
	c := *s
	return &c
}

func (s *Bonuses) validate() error {
	if s.EfficiencyMinMPD > s.EfficiencyMaxMPD {
		return fmt.Errorf("bonuses.efficiency_min_mpd=%v exceeds efficiency_max_mpd=%v: %w",
			s.EfficiencyMinMPD, s.EfficiencyMaxMPD, params.ErrInvalidParameter)
	}
	return nil
}

// #endregion parameters
