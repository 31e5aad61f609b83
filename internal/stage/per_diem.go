package stage

import (
	"fmt"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// PerDiemName is the parameter prefix of the per-diem stage.
const PerDiemName = "per_diem"

// PerDiem pays a flat daily rate. Day-length bonuses belong to Bonuses.
type PerDiem struct {
	Rate float64
}

// NewPerDiem creates a per-diem stage paying rate per day.
func NewPerDiem(rate float64) *PerDiem {
	return &PerDiem{Rate: rate}
}

func (s *PerDiem) Name() string { return PerDiemName }

func (s *PerDiem) Evaluate(in Input) (float64, error) {
	if err := CheckInput(in); err != nil {
		return 0, err
	}
	return s.Rate * float64(in.Days), nil
}

func (s *PerDiem) bindings() []binding {
	return []binding{{"rate", &s.Rate}}
}

func (s *PerDiem) Parameters() params.Set {
	return getBindings(PerDiemName, s.bindings())
}

func (s *PerDiem) SetParameters(p params.Set) error {
	return setBindings(PerDiemName, s.bindings(), p, func() error {
		if s.Rate < 0 {
			return fmt.Errorf("per_diem.rate=%v must be >= 0: %w", s.Rate, params.ErrInvalidParameter)
		}
		return nil
	})
}

func (s *PerDiem) Clone() Stage {
	c := *s
	return &c
}
