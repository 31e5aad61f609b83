package pipeline

// #region options
// Options holds composition switches that are not tunable parameters.
type Options struct {
	// ClampNonNegative clamps the final total at zero. Off by default, so a
	// quirk may legitimately pull the total below zero.
	ClampNonNegative bool
}

// #endregion options

// #region breakdown
// Breakdown records every stage contribution for one evaluation.
type Breakdown struct {
	PerDiem  float64 `json:"per_diem"`
	Mileage  float64 `json:"mileage"`
	Receipts float64 `json:"receipts"`
	Subtotal float64 `json:"subtotal"`
	Bonuses  float64 `json:"bonuses"`
	Quirks   float64 `json:"quirks"`
	Raw      float64 `json:"raw"`
	Total    float64 `json:"total"`

	ReceiptBucket  string   `json:"receipt_bucket,omitempty"`
	BonusesApplied []string `json:"bonuses_applied,omitempty"`
	QuirksApplied  []string `json:"quirks_applied,omitempty"`
}

// #endregion breakdown
