package corpus

// #region case
// Case is one labeled example: trip inputs and the legacy system's output.
type Case struct {
	Days     int     `json:"days"`
	Miles    float64 `json:"miles"`
	Receipts float64 `json:"receipts"`
	Expected float64 `json:"expected_amount"`
}

// #endregion case

// #region wire-format
// publicCase mirrors one record of public_cases.json.
type publicCase struct {
	Input struct {
		Days     float64 `json:"trip_duration_days"`
		Miles    float64 `json:"miles_traveled"`
		Receipts float64 `json:"total_receipts_amount"`
	} `json:"input"`
	ExpectedOutput float64 `json:"expected_output"`
}

// #endregion wire-format
