package params

import (
	"fmt"
	"math"
	"strings"
)

// #region bounds
// Range is a closed interval a search may move a parameter within.
type Range struct {
	Lo float64 `yaml:"lo" json:"lo"`
	Hi float64 `yaml:"hi" json:"hi"`
}

// Width returns Hi - Lo.
func (r Range) Width() float64 { return r.Hi - r.Lo }

// Clamp pins v into the range.
func (r Range) Clamp(v float64) float64 {
	return math.Min(r.Hi, math.Max(r.Lo, v))
}

// Contains reports whether v lies inside the closed range.
func (r Range) Contains(v float64) bool {
	return v >= r.Lo && v <= r.Hi
}

// Bounds maps tunable parameter names to their search ranges.
// Names absent from Bounds are held fixed during a search.
type Bounds map[string]Range

// Validate rejects empty or inverted ranges.
func (b Bounds) Validate() error {
	for name, r := range b {
		if math.IsNaN(r.Lo) || math.IsNaN(r.Hi) || r.Lo > r.Hi {
			return fmt.Errorf("bounds %s [%v, %v]: %w", name, r.Lo, r.Hi, ErrInvalidParameter)
		}
	}
	return nil
}

// #endregion bounds

// #region default-bounds
// DefaultBounds derives a search range for each parameter from its name and current
// value. Structural integers (day triggers, bucket day limits) are excluded so they
// stay fixed unless a caller supplies a range explicitly.
func DefaultBounds(current Set) Bounds {
	b := Bounds{}
	for name, v := range current {
		_, local, _ := Split(name)
		switch {
		case strings.HasSuffix(local, "_days") || strings.HasSuffix(local, "_trigger"):
			continue
		case strings.Contains(local, "retention"):
			b[name] = Range{Lo: 0, Hi: 1}
		case strings.Contains(local, "rate"):
			b[name] = Range{Lo: math.Max(0.01, v*0.5), Hi: math.Max(0.02, v*2)}
		case strings.Contains(local, "threshold") || strings.Contains(local, "limit") ||
			strings.Contains(local, "min_") || strings.Contains(local, "max_"):
			b[name] = Range{Lo: math.Max(1, v*0.5), Hi: math.Max(2, v*2)}
		case strings.Contains(local, "amount"):
			b[name] = Range{Lo: -math.Max(50, math.Abs(v)*3), Hi: math.Max(200, math.Abs(v)*3)}
		default:
			b[name] = Range{Lo: math.Min(0, v*10), Hi: math.Max(1, v*10)}
		}
	}
	return b
}

// #endregion default-bounds
