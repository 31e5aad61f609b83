package optimizer

import (
	"fmt"
	"slices"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// #region space
// Space is the searchable slice of a parameter set: the tuned names, their ranges,
// and the base set supplying every untuned value.
type Space struct {
	Names  []string
	Bounds params.Bounds
	Base   params.Set
}

// NewSpace resolves tuned names and ranges against the initial set.
func NewSpace(initial params.Set, names []string, overrides params.Bounds) (Space, error) {
	bounds := params.DefaultBounds(initial)
	for name, r := range overrides {
		if _, ok := initial[name]; !ok {
			return Space{}, fmt.Errorf("bounds for %q: %w", name, params.ErrUnknownParameter)
		}
		bounds[name] = r
	}
	if err := bounds.Validate(); err != nil {
		return Space{}, err
	}

	if len(names) == 0 {
		for name := range bounds {
			names = append(names, name)
		}
	}
	names = slices.Clone(names)
	slices.Sort(names)
	names = slices.Compact(names)

	tuned := make(params.Bounds, len(names))
	for _, name := range names {
		if _, ok := initial[name]; !ok {
			return Space{}, fmt.Errorf("tuned name %q: %w", name, params.ErrUnknownParameter)
		}
		r, ok := bounds[name]
		if !ok {
			return Space{}, fmt.Errorf("tuned name %q has no search range", name)
		}
		tuned[name] = r
	}
	if len(names) == 0 {
		return Space{}, fmt.Errorf("nothing to tune")
	}
	return Space{Names: names, Bounds: tuned, Base: initial.Clone()}, nil
}

// Dim is the number of tuned parameters.
func (s Space) Dim() int { return len(s.Names) }

// Range returns the range of the i-th tuned name.
func (s Space) Range(i int) params.Range { return s.Bounds[s.Names[i]] }

// Vector extracts the tuned values of ps in Names order.
func (s Space) Vector(ps params.Set) []float64 {
	v := make([]float64, len(s.Names))
	for i, name := range s.Names {
		v[i] = ps[name]
	}
	return v
}

// Set builds a full parameter set from tuned values.
func (s Space) Set(v []float64) params.Set {
	ps := s.Base.Clone()
	for i, name := range s.Names {
		ps[name] = v[i]
	}
	return ps
}

// Clamp pins every value into its range in place.
func (s Space) Clamp(v []float64) {
	for i := range v {
		v[i] = s.Range(i).Clamp(v[i])
	}
}

// #endregion space
