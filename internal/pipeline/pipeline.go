package pipeline

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
	"github.com/danielpatrickdp/reimbursement-engine/internal/stage"
)

// #region pipeline
// Pipeline composes the five stages in fixed order:
// per diem, mileage, receipts, then bonuses on the pre-bonus subtotal, then quirks.
// It owns no state beyond its stages.
type Pipeline struct {
	perDiem  stage.Stage
	mileage  stage.Stage
	receipts stage.Stage
	bonuses  stage.Stage
	quirks   stage.Stage
	opts     Options
}

// New composes the given stages. Stage names must be distinct.
func New(perDiem, mileage, receipts, bonuses, quirks stage.Stage, opts Options) (*Pipeline, error) {
	p := &Pipeline{
		perDiem:  perDiem,
		mileage:  mileage,
		receipts: receipts,
		bonuses:  bonuses,
		quirks:   quirks,
		opts:     opts,
	}
	seen := map[string]bool{}
	for _, s := range p.Stages() {
		if s == nil {
			return nil, fmt.Errorf("pipeline: nil stage")
		}
		if seen[s.Name()] {
			return nil, fmt.Errorf("pipeline: duplicate stage %q", s.Name())
		}
		seen[s.Name()] = true
	}
	return p, nil
}

// Stages returns the stages in composition order.
func (p *Pipeline) Stages() []stage.Stage {
	return []stage.Stage{p.perDiem, p.mileage, p.receipts, p.bonuses, p.quirks}
}

// Options returns the composition switches.
func (p *Pipeline) Options() Options { return p.opts }

// #endregion pipeline

// #region evaluate
// Evaluate returns the reimbursement for one trip rounded to cents.
// The only precondition it checks is the stage input domain (days >= 1, finite
// non-negative miles and receipts).
func (p *Pipeline) Evaluate(days int, miles, receipts float64) (float64, error) {
	b, err := p.Explain(days, miles, receipts)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

// Explain evaluates one trip and returns the per-stage breakdown.
func (p *Pipeline) Explain(days int, miles, receipts float64) (Breakdown, error) {
	in := stage.Input{Days: days, Miles: miles, Receipts: receipts}
	if err := stage.CheckInput(in); err != nil {
		return Breakdown{}, err
	}

	var b Breakdown
	var err error
	if b.PerDiem, err = p.perDiem.Evaluate(in); err != nil {
		return Breakdown{}, fmt.Errorf("%s: %w", p.perDiem.Name(), err)
	}
	if b.Mileage, err = p.mileage.Evaluate(in); err != nil {
		return Breakdown{}, fmt.Errorf("%s: %w", p.mileage.Name(), err)
	}
	// Receipts always see the raw receipt amount, never a bonus-inflated one.
	if b.Receipts, err = p.receipts.Evaluate(in); err != nil {
		return Breakdown{}, fmt.Errorf("%s: %w", p.receipts.Name(), err)
	}
	b.Subtotal = b.PerDiem + b.Mileage + b.Receipts

	in.Subtotal = b.Subtotal
	if b.Bonuses, err = p.bonuses.Evaluate(in); err != nil {
		return Breakdown{}, fmt.Errorf("%s: %w", p.bonuses.Name(), err)
	}
	if b.Quirks, err = p.quirks.Evaluate(in); err != nil {
		return Breakdown{}, fmt.Errorf("%s: %w", p.quirks.Name(), err)
	}

	b.Raw = b.Subtotal + b.Bonuses + b.Quirks
	total := b.Raw
	if p.opts.ClampNonNegative {
		total = math.Max(0, total)
	}
	b.Total = Round2(total)

	if r, ok := p.receipts.(interface{ Bucket(int) stage.BucketRule }); ok {
		b.ReceiptBucket = r.Bucket(days).Name
	}
	if t, ok := p.bonuses.(interface{ Triggered(stage.Input) []string }); ok {
		b.BonusesApplied = t.Triggered(in)
	}
	if t, ok := p.quirks.(interface{ Triggered(float64) []string }); ok {
		b.QuirksApplied = t.Triggered(receipts)
	}
	return b, nil
}

// Round2 rounds to two decimal places, halves away from zero. It is idempotent:
// Round2(Round2(x)) == Round2(x).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// #endregion evaluate

// #region parameters
// Parameters returns the combined parameter set of all stages.
func (p *Pipeline) Parameters() params.Set {
	out := params.Set{}
	for _, s := range p.Stages() {
		for k, v := range s.Parameters() {
			out[k] = v
		}
	}
	return out
}

// SetParameters routes each name to the stage owning its prefix. It is atomic:
// if any stage rejects its subset, every stage is restored.
func (p *Pipeline) SetParameters(ps params.Set) error {
	byStage := map[string]stage.Stage{}
	for _, s := range p.Stages() {
		byStage[s.Name()] = s
	}
	subsets := map[string]params.Set{}
	for _, name := range ps.Names() {
		prefix, _, ok := params.Split(name)
		if _, known := byStage[prefix]; !ok || !known {
			return fmt.Errorf("pipeline: %q: %w", name, params.ErrUnknownParameter)
		}
		if subsets[prefix] == nil {
			subsets[prefix] = params.Set{}
		}
		subsets[prefix][name] = ps[name]
	}

	saved := p.Parameters()
	for _, s := range p.Stages() {
		sub, ok := subsets[s.Name()]
		if !ok {
			continue
		}
		if err := s.SetParameters(sub); err != nil {
			p.restore(saved)
			return err
		}
	}
	return nil
}

func (p *Pipeline) restore(saved params.Set) {
	for _, s := range p.Stages() {
		// Values came from the stages themselves, so they are accepted.
		_ = s.SetParameters(saved.WithPrefix(s.Name()))
	}
}

// Clone returns a deep copy safe to mutate from another goroutine.
func (p *Pipeline) Clone() *Pipeline {
	return &Pipeline{
		perDiem:  p.perDiem.Clone(),
		mileage:  p.mileage.Clone(),
		receipts: p.receipts.Clone(),
		bonuses:  p.bonuses.Clone(),
		quirks:   p.quirks.Clone(),
		opts:     p.opts,
	}
}

// WithParameters returns a clone with ps applied, leaving p untouched.
func (p *Pipeline) WithParameters(ps params.Set) (*Pipeline, error) {
	c := p.Clone()
	if err := c.SetParameters(ps); err != nil {
		return nil, err
	}
	return c, nil
}

// #endregion parameters
