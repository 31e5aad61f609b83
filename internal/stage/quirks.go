package stage

import (
	"fmt"
	"math"
	"slices"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// QuirksName is the parameter prefix of the quirk stage.
const QuirksName = "quirks"

// #region quirk-rule
// QuirkRule adds Amount when the cents fingerprint of the receipt total is one of Triggers.
// Triggers are structural; only Amount is a tunable parameter ("quirks.<name>_amount").
type QuirkRule struct {
	Name     string
	Triggers []int64
	Amount   float64
}

// Cents returns round(receipts*100) mod 100, the integer cents of a receipt total.
// Rounding first keeps values like 100.49 (stored as 100.4899...) on the right cent.
func Cents(receipts float64) int64 {
	c := int64(math.Round(receipts*100)) % 100
	if c < 0 {
		c += 100
	}
	return c
}

// #endregion quirk-rule

// #region quirks
// Quirks is the final additive correction layer keyed on exact input fingerprints.
type Quirks struct {
	Rules []QuirkRule
}

// NewQuirks creates a quirk stage. Rule names must be unique and non-empty.
func NewQuirks(rules ...QuirkRule) (*Quirks, error) {
	seen := make(map[string]bool, len(rules))
	q := &Quirks{Rules: make([]QuirkRule, 0, len(rules))}
	for _, r := range rules {
		if r.Name == "" || seen[r.Name] {
			return nil, fmt.Errorf("quirks: rule name %q empty or duplicated: %w", r.Name, params.ErrInvalidParameter)
		}
		for _, t := range r.Triggers {
			if t < 0 || t > 99 {
				return nil, fmt.Errorf("quirks: %s trigger %d outside 0..99: %w", r.Name, t, params.ErrInvalidParameter)
			}
		}
		seen[r.Name] = true
		r.Triggers = slices.Clone(r.Triggers)
		q.Rules = append(q.Rules, r)
	}
	return q, nil
}

func (s *Quirks) Name() string { return QuirksName }

func (s *Quirks) Evaluate(in Input) (float64, error) {
	if err := CheckInput(in); err != nil {
		return 0, err
	}
	var total float64
	cents := Cents(in.Receipts)
	for _, r := range s.Rules {
		if slices.Contains(r.Triggers, cents) {
			total += r.Amount
		}
	}
	return total, nil
}

// Triggered returns the names of rules whose fingerprint matches receipts,
// regardless of their amount.
func (s *Quirks) Triggered(receipts float64) []string {
	var names []string
	cents := Cents(receipts)
	for _, r := range s.Rules {
		if slices.Contains(r.Triggers, cents) {
			names = append(names, r.Name)
		}
	}
	return names
}

// #endregion quirks

// #region parameters
func (s *Quirks) bindings() []binding {
	bs := make([]binding, len(s.Rules))
	for i := range s.Rules {
		bs[i] = binding{s.Rules[i].Name + "_amount", &s.Rules[i].Amount}
	}
	return bs
}

func (s *Quirks) Parameters() params.Set {
	return getBindings(QuirksName, s.bindings())
}

func (s *Quirks) SetParameters(p params.Set) error {
	return setBindings(QuirksName, s.bindings(), p, nil)
}

func (s *Quirks) Clone() Stage {
	c := &Quirks{Rules: make([]QuirkRule, len(s.Rules))}
	for i, r := range s.Rules {
		r.Triggers = slices.Clone(r.Triggers)
		c.Rules[i] = r
	}
	return c
}

// #endregion parameters
