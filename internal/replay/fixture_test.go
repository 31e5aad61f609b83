package replay

import (
	"os"
	"path/filepath"
	"testing"
)

// #region fixture-tests

// TestFixture_Scenarios loads the reference scenarios, replays them, and expects
// every trip to match. If a stage formula or preset drifts, this catches it.
func TestFixture_Scenarios(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "scenarios.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(f.Trips) != 5 {
		t.Fatalf("expected 5 trips, got %d", len(f.Trips))
	}

	results, err := f.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range results {
		if r.Action != ActionMatch {
			t.Errorf("%s: expected match, got %s (%s)", r.ID, r.Action, r.Reason)
		}
	}

	// The quirk pair differs by exactly the quirk amount, less the 0.01 receipts gap.
	triggered, plain := results[3].Breakdown, results[4].Breakdown
	if triggered.Quirks != 7.5 || plain.Quirks != 0 {
		t.Errorf("expected quirks 7.50 / 0.00, got %.2f / %.2f", triggered.Quirks, plain.Quirks)
	}
	if len(triggered.QuirksApplied) != 1 || triggered.QuirksApplied[0] != "cents" {
		t.Errorf("expected cents quirk applied, got %v", triggered.QuirksApplied)
	}

	s := Summarize(results)
	if s.Matches != 5 || s.Diverged != 0 || s.Errors != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestFixture_DefaultTolerance(t *testing.T) {
	f := &Fixture{
		Pipeline: FixturePipeline{Preset: "nominal"},
		Trips:    []FixtureTrip{{ID: "t", Days: 1, Expected: 100.01}},
	}
	results, err := f.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Action != ActionMatch {
		t.Fatalf("0.01 off should match at default tolerance, got %s", results[0].Action)
	}
}

func TestFixture_BadOverrides(t *testing.T) {
	f := &Fixture{Pipeline: FixturePipeline{Preset: "nominal", Parameters: map[string]float64{"nope.rate": 1}}}
	if _, err := f.Run(); err == nil {
		t.Fatal("expected unknown parameter error")
	}
	f = &Fixture{Pipeline: FixturePipeline{Preset: "mystery"}}
	if _, err := f.Run(); err == nil {
		t.Fatal("expected unknown preset error")
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFixture(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

// #endregion fixture-tests
