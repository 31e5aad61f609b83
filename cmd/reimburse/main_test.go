package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
)

// workspace writes a day-only corpus labeled at a per diem of 110 and a config
// that tunes just the per diem rate.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var cases []string
	for d := 1; d <= 6; d++ {
		cases = append(cases, fmt.Sprintf(
			`{"input": {"trip_duration_days": %d, "miles_traveled": 0, "total_receipts_amount": 0}, "expected_output": %d}`,
			d, 110*d))
	}
	corpusPath := filepath.Join(dir, "cases.json")
	require.NoError(t, os.WriteFile(corpusPath, []byte("["+strings.Join(cases, ",\n")+"]"), 0o644))

	cfg := fmt.Sprintf(`corpus: %s
db: %s
optimizer:
  strategy: hill_climb
  seed: 7
  workers: 2
  eval_workers: 2
  holdout_fraction: 0
  names: [per_diem.rate]
  bounds:
    per_diem.rate: {lo: 50, hi: 150}
  budget:
    max_iterations: 100
  step: 0.1
  min_step: 0.001
`, corpusPath, filepath.Join(dir, "test.db"))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

// run executes the root command and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCalc_PrintsTotal(t *testing.T) {
	cfg := workspace(t)

	out, err := run(t, "--config", cfg, "calc", "3", "50", "0")
	require.NoError(t, err)
	assert.Equal(t, "329.00\n", out)
}

func TestCalc_Explain(t *testing.T) {
	cfg := workspace(t)

	out, err := run(t, "--config", cfg, "calc", "--explain", "1", "200", "0")
	require.NoError(t, err)

	var b struct {
		PerDiem float64 `json:"per_diem"`
		Mileage float64 `json:"mileage"`
		Total   float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.InDelta(t, 100.0, b.PerDiem, 1e-9)
	assert.InDelta(t, 103.0, b.Mileage, 1e-9)
	assert.InDelta(t, 203.0, b.Total, 1e-9)
}

func TestCalc_UsageErrors(t *testing.T) {
	cfg := workspace(t)

	tests := []struct {
		name string
		args []string
	}{
		{"too few arguments", []string{"3", "50"}},
		{"not a number", []string{"three", "50", "0"}},
		{"fractional days", []string{"1.5", "0", "0"}},
		{"zero days", []string{"0", "10", "10"}},
		{"infinite miles", []string{"2", "Inf", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"--config", cfg, "calc"}, tt.args...)...)
			require.Error(t, err)
			var ue *usageError
			assert.ErrorAs(t, err, &ue)
			assert.Empty(t, out)
		})
	}
}

func TestEval_JSON(t *testing.T) {
	cfg := workspace(t)

	out, err := run(t, "--config", cfg, "eval", "--format", "json", "--worst", "2")
	require.NoError(t, err)

	var got struct {
		Source string                  `json:"source"`
		Report eval.ScoreReport        `json:"report"`
		Worst  []eval.PredictionRecord `json:"worst"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "preset nominal", got.Source)
	assert.Equal(t, 6, got.Report.TotalCases)
	assert.Equal(t, 0, got.Report.ExactMatches)
	assert.InDelta(t, 35.0, got.Report.AverageError, 1e-9) // 10 * mean(1..6)
	require.Len(t, got.Worst, 2)
	assert.Equal(t, 5, got.Worst[0].Index)
}

func TestEval_RejectsUnknownFormat(t *testing.T) {
	cfg := workspace(t)

	_, err := run(t, "--config", cfg, "eval", "--format", "xml")
	var ue *usageError
	assert.ErrorAs(t, err, &ue)
}

func TestCalibrate_CommitsAndActivates(t *testing.T) {
	cfg := workspace(t)
	statePath := filepath.Join(filepath.Dir(cfg), "state.json")

	out, err := run(t, "--config", cfg, "calibrate", "--out", statePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Gate: commit")
	assert.Contains(t, out, "Version: ")
	assert.Contains(t, out, "Saved: "+statePath)

	out, err = run(t, "--config", cfg, "calc", "--active", "2", "0", "0")
	require.NoError(t, err)
	assert.Equal(t, "220.00\n", out)

	out, err = run(t, "--config", cfg, "calc", "--snapshot", statePath, "4", "0", "0")
	require.NoError(t, err)
	assert.Equal(t, "440.00\n", out)

	out, err = run(t, "--config", cfg, "snapshots", "list", "--json")
	require.NoError(t, err)
	var rows []versionRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Active)
	assert.Equal(t, "commit", rows[0].Decision)
	assert.Equal(t, 6, rows[0].Exact)

	out, err = run(t, "--config", cfg, "snapshots", "log", "--full")
	require.NoError(t, err)
	assert.Contains(t, out, "commit")
	assert.Contains(t, out, "exact 0 -> 6")
}

func TestCalibrate_SecondRunIsNoOp(t *testing.T) {
	cfg := workspace(t)

	_, err := run(t, "--config", cfg, "calibrate")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "calibrate", "--active")
	require.NoError(t, err)
	assert.Contains(t, out, "Gate: no_op")

	out, err = run(t, "--config", cfg, "snapshots", "list", "--json")
	require.NoError(t, err)
	var rows []versionRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.False(t, rows[0].Active, "no_op version must not become active")
	assert.Equal(t, "no_op", rows[0].Decision)
	assert.True(t, rows[1].Active)
	assert.Equal(t, rows[1].VersionID, rows[0].ParentID)
}

func TestCalibrate_DryRunLeavesStoreEmpty(t *testing.T) {
	cfg := workspace(t)

	out, err := run(t, "--config", cfg, "calibrate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Gate: commit")
	assert.NotContains(t, out, "Version: ")

	out, err = run(t, "--config", cfg, "snapshots", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no versions found")
}

func TestSnapshots_Rollback(t *testing.T) {
	cfg := workspace(t)

	_, err := run(t, "--config", cfg, "snapshots", "rollback", "missing")
	assert.Error(t, err)

	_, err = run(t, "--config", cfg, "snapshots", "show")
	assert.Error(t, err, "empty store has no active version")
}

func TestReplay_Fixture(t *testing.T) {
	cfg := workspace(t)
	fixture := filepath.Join("..", "..", "internal", "replay", "testdata", "scenarios.json")

	out, err := run(t, "--config", cfg, "replay", "--fixture", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 5 total, 5 match, 0 diverge, 0 error")
}

func TestReplay_CorpusDiverges(t *testing.T) {
	cfg := workspace(t)

	out, err := run(t, "--config", cfg, "replay", "--only-diverged")
	require.Error(t, err)

	var diverged *divergedError
	require.ErrorAs(t, err, &diverged)
	assert.Equal(t, 6, diverged.Diverged)
	assert.Equal(t, 6, diverged.Total)
	assert.Contains(t, out, "DIFF")
}

func TestReplay_FixtureRejectsSource(t *testing.T) {
	cfg := workspace(t)

	_, err := run(t, "--config", cfg, "replay", "--fixture", "x.json", "--active")
	var ue *usageError
	assert.ErrorAs(t, err, &ue)
}
