package stage

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// MileageName is the parameter prefix of the mileage stage.
const MileageName = "mileage"

// #region mileage
// Mileage pays a tiered per-mile rate. Limits are cumulative breakpoints
// (len(Rates)-1 of them); the last tier is unbounded.
type Mileage struct {
	Limits []float64
	Rates  []float64
}

// NewMileage creates a tiered mileage stage. It fails with params.ErrInvalidParameter
// when the tiers are not strictly increasing breakpoints with strictly decreasing rates.
func NewMileage(limits, rates []float64) (*Mileage, error) {
	m := &Mileage{
		Limits: append([]float64(nil), limits...),
		Rates:  append([]float64(nil), rates...),
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Mileage) Name() string { return MileageName }

// Evaluate sums rate_i * min(remaining, width_i) across tiers.
func (s *Mileage) Evaluate(in Input) (float64, error) {
	if err := CheckInput(in); err != nil {
		return 0, err
	}
	var total, prev float64
	remaining := in.Miles
	for i, rate := range s.Rates {
		if remaining <= 0 {
			break
		}
		width := math.Inf(1)
		if i < len(s.Limits) {
			width = s.Limits[i] - prev
			prev = s.Limits[i]
		}
		take := math.Min(remaining, width)
		total += rate * take
		remaining -= take
	}
	return total, nil
}

// #endregion mileage

// #region parameters
func (s *Mileage) bindings() []binding {
	bs := make([]binding, 0, len(s.Limits)+len(s.Rates))
	for i := range s.Limits {
		bs = append(bs, binding{fmt.Sprintf("tier%d_limit", i+1), &s.Limits[i]})
	}
	for i := range s.Rates {
		bs = append(bs, binding{fmt.Sprintf("tier%d_rate", i+1), &s.Rates[i]})
	}
	return bs
}

func (s *Mileage) Parameters() params.Set {
	return getBindings(MileageName, s.bindings())
}

func (s *Mileage) SetParameters(p params.Set) error {
	return setBindings(MileageName, s.bindings(), p, s.validate)
}

func (s *Mileage) Clone() Stage {
	return &Mileage{
		Limits: append([]float64(nil), s.Limits...),
		Rates:  append([]float64(nil), s.Rates...),
	}
}

// validate keeps the function continuous, non-negative and non-decreasing in miles.
func (s *Mileage) validate() error {
	if len(s.Rates) == 0 || len(s.Limits) != len(s.Rates)-1 {
		return fmt.Errorf("mileage: %d limits for %d rates: %w", len(s.Limits), len(s.Rates), params.ErrInvalidParameter)
	}
	prev := 0.0
	for i, l := range s.Limits {
		if l <= prev {
			return fmt.Errorf("mileage.tier%d_limit=%v must exceed %v: %w", i+1, l, prev, params.ErrInvalidParameter)
		}
		prev = l
	}
	for i, r := range s.Rates {
		if r < 0 {
			return fmt.Errorf("mileage.tier%d_rate=%v must be >= 0: %w", i+1, r, params.ErrInvalidParameter)
		}
		if i > 0 && r >= s.Rates[i-1] {
			return fmt.Errorf("mileage.tier%d_rate=%v must be below tier%d_rate=%v: %w",
				i+1, r, i, s.Rates[i-1], params.ErrInvalidParameter)
		}
	}
	return nil
}

// #endregion parameters
