package params

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// #region set
// Set is a flat mapping from prefixed parameter name (e.g. "receipts.short_threshold")
// to its real value.
type Set map[string]float64

// Clone returns an independent copy. A nil set clones to an empty set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	maps.Copy(out, s)
	return out
}

// Names returns the parameter names in sorted order.
func (s Set) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Merge returns a copy of s overlaid with other.
func (s Set) Merge(other Set) Set {
	out := s.Clone()
	maps.Copy(out, other)
	return out
}

// Equal reports whether both sets hold the same names with bit-identical values.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		ov, ok := other[k]
		if !ok || math.Float64bits(v) != math.Float64bits(ov) {
			return false
		}
	}
	return true
}

// #endregion set

// #region prefix
// Join builds a prefixed parameter name.
func Join(prefix, name string) string {
	return prefix + "." + name
}

// Split separates a prefixed name into its prefix and local name.
func Split(full string) (prefix, name string, ok bool) {
	return strings.Cut(full, ".")
}

// WithPrefix returns the subset of s whose names start with prefix, with the prefix kept.
func (s Set) WithPrefix(prefix string) Set {
	out := Set{}
	for k, v := range s {
		if p, _, ok := Split(k); ok && p == prefix {
			out[k] = v
		}
	}
	return out
}

// #endregion prefix

// #region validate
// CheckFinite returns ErrInvalidParameter for the first NaN or infinite value.
func (s Set) CheckFinite() error {
	for _, name := range s.Names() {
		v := s[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s=%v: %w", name, v, ErrInvalidParameter)
		}
	}
	return nil
}

// #endregion validate
