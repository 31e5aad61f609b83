package stage

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// ReceiptsName is the parameter prefix of the receipts stage.
const ReceiptsName = "receipts"

// #region receipts-config
// Receipts reimburses submitted receipts with trip-length dependent retention.
//
// Per day, spending up to SmallThreshold keeps SmallRetention, spending between
// SmallThreshold and the bucket threshold is kept in full, and spending above the
// bucket threshold keeps the bucket's overage retention. The result is clamped at zero.
type Receipts struct {
	ShortMaxDays  float64 // bucket "short" covers days <= ShortMaxDays
	MediumMaxDays float64 // bucket "medium" covers ShortMaxDays < days <= MediumMaxDays

	ShortThreshold  float64
	MediumThreshold float64
	LongThreshold   float64

	ShortRetention  float64
	MediumRetention float64
	LongRetention   float64

	SmallThreshold float64
	SmallRetention float64
}

// NewReceipts validates cfg and returns it as a stage.
func NewReceipts(cfg Receipts) (*Receipts, error) {
	r := cfg
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// #endregion receipts-config

// #region buckets
// BucketRule pairs a trip-length predicate with the daily threshold and overage
// retention that apply when it matches.
type BucketRule struct {
	Name      string
	Matches   func(days int) bool
	Threshold float64
	Retention float64
}

// Buckets returns the trip-length table in priority order. The last rule always matches.
func (s *Receipts) Buckets() []BucketRule {
	return []BucketRule{
		{
			Name:      "short",
			Matches:   func(days int) bool { return float64(days) <= s.ShortMaxDays },
			Threshold: s.ShortThreshold,
			Retention: s.ShortRetention,
		},
		{
			Name:      "medium",
			Matches:   func(days int) bool { return float64(days) <= s.MediumMaxDays },
			Threshold: s.MediumThreshold,
			Retention: s.MediumRetention,
		},
		{
			Name:      "long",
			Matches:   func(int) bool { return true },
			Threshold: s.LongThreshold,
			Retention: s.LongRetention,
		},
	}
}

// Bucket returns the first rule matching days.
func (s *Receipts) Bucket(days int) BucketRule {
	rules := s.Buckets()
	for _, r := range rules {
		if r.Matches(days) {
			return r
		}
	}
	return rules[len(rules)-1]
}

// #endregion buckets

// #region evaluate
func (s *Receipts) Name() string { return ReceiptsName }

// Evaluate applies the bucket's piecewise-linear retention to the receipt total.
// Thresholds are per day, so they are scaled by the day count rather than dividing
// receipts, which keeps whole-amount pass-through exact.
func (s *Receipts) Evaluate(in Input) (float64, error) {
	if err := CheckInput(in); err != nil {
		return 0, err
	}
	rule := s.Bucket(in.Days)
	return s.retained(in.Receipts, float64(in.Days), rule), nil
}

func (s *Receipts) retained(total, days float64, rule BucketRule) float64 {
	small := math.Max(0, s.SmallThreshold) * days
	threshold := math.Max(small, rule.Threshold*days)

	pay := s.SmallRetention * math.Min(total, small)
	pay += math.Max(0, math.Min(total, threshold)-small)
	pay += rule.Retention * math.Max(0, total-threshold)
	return math.Max(0, pay)
}

// #endregion evaluate

// #region parameters
func (s *Receipts) bindings() []binding {
	return []binding{
		{"short_trip_max_days", &s.ShortMaxDays},
		{"medium_trip_max_days", &s.MediumMaxDays},
		{"short_trip_threshold", &s.ShortThreshold},
		{"medium_trip_threshold", &s.MediumThreshold},
		{"long_trip_threshold", &s.LongThreshold},
		{"short_trip_retention", &s.ShortRetention},
		{"medium_trip_retention", &s.MediumRetention},
		{"long_trip_retention", &s.LongRetention},
		{"small_receipt_threshold", &s.SmallThreshold},
		{"small_receipt_retention", &s.SmallRetention},
	}
}

func (s *Receipts) Parameters() params.Set {
	return getBindings(ReceiptsName, s.bindings())
}

func (s *Receipts) SetParameters(p params.Set) error {
	return setBindings(ReceiptsName, s.bindings(), p, s.validate)
}

func (s *Receipts) Clone() Stage {
	c := *s
	return &c
}

func (s *Receipts) validate() error {
	if s.ShortMaxDays < 1 {
		return fmt.Errorf("receipts.short_trip_max_days=%v must be >= 1: %w", s.ShortMaxDays, params.ErrInvalidParameter)
	}
	if s.MediumMaxDays < s.ShortMaxDays {
		return fmt.Errorf("receipts.medium_trip_max_days=%v below short_trip_max_days=%v: %w",
			s.MediumMaxDays, s.ShortMaxDays, params.ErrInvalidParameter)
	}
	return nil
}

// #endregion parameters
