package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/optimizer"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleParams(rate float64) params.Set {
	return params.Set{"per_diem.rate": rate, "mileage.tier1_rate": 0.58, "quirks.cents_amount": 7.5}
}

func TestActiveOnEmptyStore(t *testing.T) {
	s := tempDB(t)
	if _, err := s.Active(); !errors.Is(err, ErrNoActive) {
		t.Fatalf("expected ErrNoActive, got %v", err)
	}
}

func TestCommitAndActive(t *testing.T) {
	s := tempDB(t)
	report := eval.ScoreReport{TotalCases: 10, ExactMatches: 3, AggregateScore: 42.5}
	v := NewVersion("", sampleParams(100), report, "hill_climb", "run-1")

	if err := s.Commit(v); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := s.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if got.VersionID != v.VersionID {
		t.Fatalf("expected active %s, got %s", v.VersionID, got.VersionID)
	}
	if !got.Parameters.Equal(v.Parameters) {
		t.Fatalf("parameters did not round-trip: %v vs %v", got.Parameters, v.Parameters)
	}
	if got.Report != report {
		t.Fatalf("report did not round-trip: %+v", got.Report)
	}
	if got.Strategy != "hill_climb" || got.RunID != "run-1" || got.ParentID != "" {
		t.Fatalf("unexpected metadata: %+v", got)
	}
	if got.CreatedAt.Sub(v.CreatedAt).Abs() > time.Microsecond {
		t.Fatalf("created_at drifted: %v vs %v", got.CreatedAt, v.CreatedAt)
	}
}

func TestRecordDoesNotActivate(t *testing.T) {
	s := tempDB(t)
	first := NewVersion("", sampleParams(100), eval.ScoreReport{}, "", "")
	if err := s.Commit(first); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	rejected := NewVersion(first.VersionID, sampleParams(90), eval.ScoreReport{}, "grid", "")
	if err := s.Record(rejected); err != nil {
		t.Fatalf("Record: %v", err)
	}

	active, err := s.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.VersionID != first.VersionID {
		t.Fatalf("record must not move the active pointer")
	}
	got, err := s.Get(rejected.VersionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ParentID != first.VersionID {
		t.Fatalf("expected parent %s, got %s", first.VersionID, got.ParentID)
	}
}

func TestCommitRejectsUnknownParent(t *testing.T) {
	s := tempDB(t)
	v := NewVersion("missing-parent", sampleParams(100), eval.ScoreReport{}, "", "")
	if err := s.Commit(v); err == nil {
		t.Fatal("expected foreign key failure")
	}
	if _, err := s.Active(); !errors.Is(err, ErrNoActive) {
		t.Fatalf("failed commit must leave store empty, got %v", err)
	}
}

func TestRollback(t *testing.T) {
	s := tempDB(t)
	v1 := NewVersion("", sampleParams(100), eval.ScoreReport{}, "", "")
	if err := s.Commit(v1); err != nil {
		t.Fatalf("Commit v1: %v", err)
	}
	v2 := NewVersion(v1.VersionID, sampleParams(105), eval.ScoreReport{}, "", "")
	if err := s.Commit(v2); err != nil {
		t.Fatalf("Commit v2: %v", err)
	}

	if err := s.Rollback(v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	active, err := s.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.VersionID != v1.VersionID {
		t.Fatalf("expected v1 active after rollback, got %s", active.VersionID)
	}

	if err := s.Rollback("nope"); err == nil {
		t.Fatal("expected error rolling back to unknown version")
	}
}

func TestListVersionsNewestFirst(t *testing.T) {
	s := tempDB(t)
	parent := ""
	var ids []string
	for i := range 3 {
		v := NewVersion(parent, sampleParams(100+float64(i)), eval.ScoreReport{}, "", "")
		v.CreatedAt = time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)
		if err := s.Commit(v); err != nil {
			t.Fatalf("Commit %d: %v", i, err)
		}
		parent = v.VersionID
		ids = append(ids, v.VersionID)
	}
	_, err := s.DB().Exec(
		`INSERT INTO calibration_log (version_id, strategy, decision, reason, created_at) VALUES (?, 'grid', 'commit', 'ok', '2026-01-01T00:00:00Z')`,
		ids[2],
	)
	if err != nil {
		t.Fatalf("insert log: %v", err)
	}

	list, err := s.ListVersions(2)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(list))
	}
	if list[0].VersionID != ids[2] || list[1].VersionID != ids[1] {
		t.Fatalf("unexpected order: %s, %s", list[0].VersionID, list[1].VersionID)
	}
	if !list[0].Active || list[1].Active {
		t.Fatalf("only the newest commit should be active")
	}
	if list[0].Decision != "commit" || list[0].Reason != "ok" {
		t.Fatalf("expected logged decision, got %q %q", list[0].Decision, list[0].Reason)
	}
	if list[1].Decision != "" {
		t.Fatalf("expected no decision for unlogged version, got %q", list[1].Decision)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	report := eval.ScoreReport{TotalCases: 4, ExactMatches: 1, AggregateScore: 12.25}
	st := State{
		Parameters: sampleParams(101.37),
		Report:     &report,
		Strategy:   "genetic",
		RunID:      "run-9",
		History:    []optimizer.HistoryEntry{{Iteration: 1, Score: 20}, {Iteration: 2, Score: 12.25}},
	}
	if err := SaveFile(path, st); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !got.Parameters.Equal(st.Parameters) {
		t.Fatalf("parameters did not round-trip: %v", got.Parameters)
	}
	if got.Report == nil || *got.Report != report {
		t.Fatalf("report did not round-trip: %+v", got.Report)
	}
	if len(got.History) != 2 || got.History[1].Score != 12.25 {
		t.Fatalf("history did not round-trip: %+v", got.History)
	}
	if got.SavedAt.IsZero() {
		t.Fatal("expected saved_at to be stamped")
	}
}

func TestLoadFileAcceptsFlatSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.json")
	if err := os.WriteFile(path, []byte(`{"per_diem.rate": 100, "mileage.tier1_rate": 0.58}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := params.Set{"per_diem.rate": 100, "mileage.tier1_rate": 0.58}
	if !got.Parameters.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got.Parameters)
	}
	if got.Report != nil {
		t.Fatal("flat snapshot carries no report")
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"parameters": {}, "surprise": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
