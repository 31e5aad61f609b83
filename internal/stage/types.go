package stage

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region input
// Input carries one trip into a stage evaluation.
type Input struct {
	Days     int
	Miles    float64
	Receipts float64

	// Subtotal is the pre-bonus subtotal (per diem + mileage + receipts).
	// The pipeline fills it before calling Bonuses and Quirks; earlier stages ignore it.
	Subtotal float64
}

// CheckInput enforces the domain every stage accepts: days >= 1 and finite,
// non-negative miles and receipts.
func CheckInput(in Input) error {
	if in.Days < 1 {
		return fmt.Errorf("days=%d must be >= 1: %w", in.Days, params.ErrInvalidInput)
	}
	if !finite(in.Miles) || in.Miles < 0 {
		return fmt.Errorf("miles=%v must be finite and non-negative: %w", in.Miles, params.ErrInvalidInput)
	}
	if !finite(in.Receipts) || in.Receipts < 0 {
		return fmt.Errorf("receipts=%v must be finite and non-negative: %w", in.Receipts, params.ErrInvalidInput)
	}
	return nil
}

// #endregion input

// #region stage
// Stage is one independently parameterised contribution to the reimbursement total.
type Stage interface {
	// Name is the parameter prefix the stage owns, e.g. "mileage".
	Name() string

	// Evaluate returns the stage's contribution. It never mutates its receiver.
	Evaluate(in Input) (float64, error)

	// Parameters returns a fresh copy of every parameter the stage recognises.
	Parameters() params.Set

	// SetParameters updates the named parameters. Unknown names fail with
	// params.ErrUnknownParameter, constraint violations with params.ErrInvalidParameter;
	// on failure the stage is left unchanged.
	SetParameters(p params.Set) error

	// Clone returns an independent copy for use by another goroutine.
	Clone() Stage
}

// #endregion stage

// #region bindings
// binding ties a local parameter name to the field holding its value.
type binding struct {
	name string
	ptr  *float64
}

func getBindings(prefix string, bs []binding) params.Set {
	out := make(params.Set, len(bs))
	for _, b := range bs {
		out[params.Join(prefix, b.name)] = *b.ptr
	}
	return out
}

// setBindings applies p to bs, then runs validate. Any failure restores the
// previous values so the caller's stage is unchanged.
func setBindings(prefix string, bs []binding, p params.Set, validate func() error) error {
	byName := make(map[string]*float64, len(bs))
	for _, b := range bs {
		byName[params.Join(prefix, b.name)] = b.ptr
	}
	for _, name := range p.Names() {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("%s: %q: %w", prefix, name, params.ErrUnknownParameter)
		}
		if !finite(p[name]) {
			return fmt.Errorf("%s=%v: %w", name, p[name], params.ErrInvalidParameter)
		}
	}

	saved := make(map[*float64]float64, len(p))
	for name, v := range p {
		ptr := byName[name]
		saved[ptr] = *ptr
		*ptr = v
	}
	if validate != nil {
		if err := validate(); err != nil {
			for ptr, v := range saved {
				*ptr = v
			}
			return err
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// #endregion bindings
