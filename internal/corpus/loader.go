package corpus

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// #region load
// Load reads a corpus file, choosing the format from its extension (.csv or .json).
func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		return ReadJSON(f)
	default:
		return nil, fmt.Errorf("corpus: %s: unsupported extension (want .json or .csv)", path)
	}
}

// #endregion load

// #region json
// ReadJSON parses the public_cases.json shape:
// [{"input": {"trip_duration_days", "miles_traveled", "total_receipts_amount"}, "expected_output"}].
func ReadJSON(r io.Reader) (*Corpus, error) {
	var raw []publicCase
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("corpus: parse json: %w", err)
	}
	cases := make([]Case, len(raw))
	for i, pc := range raw {
		days, err := wholeDays(pc.Input.Days)
		if err != nil {
			return nil, fmt.Errorf("corpus: case %d: %w", i, err)
		}
		cases[i] = Case{
			Days:     days,
			Miles:    pc.Input.Miles,
			Receipts: pc.Input.Receipts,
			Expected: pc.ExpectedOutput,
		}
	}
	return New(cases)
}

// #endregion json

// #region csv
// csvColumns are the required header names of a CSV corpus.
var csvColumns = []string{"days", "miles", "receipts", "expected"}

// ReadCSV parses a header-keyed CSV with days, miles, receipts and expected columns
// in any order. Extra columns are ignored.
func ReadCSV(r io.Reader) (*Corpus, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("corpus: parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("corpus: csv is empty (no header row)")
	}

	index := map[string]int{}
	for i, h := range records[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("corpus: csv header missing column %q", col)
		}
	}

	cases := make([]Case, 0, len(records)-1)
	for row, rec := range records[1:] {
		vals := map[string]float64{}
		for _, col := range csvColumns {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[index[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("corpus: row %d column %s: %w", row+2, col, err)
			}
			vals[col] = v
		}
		days, err := wholeDays(vals["days"])
		if err != nil {
			return nil, fmt.Errorf("corpus: row %d: %w", row+2, err)
		}
		cases = append(cases, Case{
			Days:     days,
			Miles:    vals["miles"],
			Receipts: vals["receipts"],
			Expected: vals["expected"],
		})
	}
	return New(cases)
}

// #endregion csv

func wholeDays(v float64) (int, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("days=%v is not a whole number", v)
	}
	return int(v), nil
}
