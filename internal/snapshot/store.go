package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
)

// ErrNoActive is returned when no version has been committed yet.
var ErrNoActive = errors.New("no active parameter version")

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS param_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	parameters    TEXT NOT NULL,
	report_json   TEXT NOT NULL,
	strategy      TEXT,
	run_id        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES param_versions(version_id)
);

CREATE TABLE IF NOT EXISTS calibration_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT NOT NULL,
	run_id        TEXT,
	strategy      TEXT NOT NULL,
	record_json   TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES param_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_params (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES param_versions(version_id)
);
`
// #endregion schema

// #region store-struct
// Store keeps versioned parameter sets in SQLite with a single active pointer.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the calibration log writer.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion constructor

// #region new-version
// NewVersion stamps a fresh version id and creation time.
func NewVersion(parentID string, ps params.Set, report eval.ScoreReport, strategy, runID string) Version {
	return Version{
		VersionID:  uuid.New().String(),
		ParentID:   parentID,
		Parameters: ps.Clone(),
		Report:     report,
		Strategy:   strategy,
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
	}
}
// #endregion new-version

// #region commit
// Commit inserts a version and makes it active atomically.
func (s *Store) Commit(v Version) error {
	return s.insert(v, true)
}

// Record inserts a version without touching the active pointer, so a rejected
// calibration can still be referenced by the log.
func (s *Store) Record(v Version) error {
	return s.insert(v, false)
}

func (s *Store) insert(v Version, activate bool) error {
	if err := v.Parameters.CheckFinite(); err != nil {
		return fmt.Errorf("version %s: %w", v.VersionID, err)
	}
	paramsJSON, err := json.Marshal(v.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	reportJSON, err := json.Marshal(v.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO param_versions (version_id, parent_id, parameters, report_json, strategy, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, nullIfEmpty(v.ParentID), string(paramsJSON), string(reportJSON),
		nullIfEmpty(v.Strategy), nullIfEmpty(v.RunID), v.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	if activate {
		_, err = tx.Exec(
			`INSERT INTO active_params (id, version_id) VALUES (1, ?)
			 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
			v.VersionID,
		)
		if err != nil {
			return fmt.Errorf("set active: %w", err)
		}
	}

	return tx.Commit()
}
// #endregion commit

// #region get-active
// Active reads the active version. It returns ErrNoActive on an empty store.
func (s *Store) Active() (Version, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_params WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrNoActive
	}
	if err != nil {
		return Version{}, fmt.Errorf("get active: %w", err)
	}
	return s.Get(versionID)
}
// #endregion get-active

// #region get-version
// Get retrieves a version by id.
func (s *Store) Get(id string) (Version, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, parameters, report_json, strategy, run_id, created_at
		 FROM param_versions WHERE version_id = ?`, id,
	)
	v, err := scanVersion(row)
	if err != nil {
		return Version{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return v, nil
}
// #endregion get-version

// #region rollback
// Rollback sets the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM param_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_params (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		targetVersionID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
// #endregion rollback

// #region list-versions
// ListVersions returns the most recent versions, newest first, each with the latest
// logged gate decision and whether it is the active one.
func (s *Store) ListVersions(limit int) ([]VersionWithDecision, error) {
	rows, err := s.db.Query(
		`SELECT v.version_id, v.parent_id, v.parameters, v.report_json, v.strategy, v.run_id, v.created_at,
		        a.version_id IS NOT NULL,
		        (SELECT l.decision FROM calibration_log l WHERE l.version_id = v.version_id ORDER BY l.id DESC LIMIT 1),
		        (SELECT l.reason FROM calibration_log l WHERE l.version_id = v.version_id ORDER BY l.id DESC LIMIT 1)
		 FROM param_versions v
		 LEFT JOIN active_params a ON a.version_id = v.version_id
		 ORDER BY v.created_at DESC, v.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []VersionWithDecision
	for rows.Next() {
		var vd VersionWithDecision
		var decision, reason sql.NullString
		v, err := scanVersion(rows, &vd.Active, &decision, &reason)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		vd.Version = v
		vd.Decision = decision.String
		vd.Reason = reason.String
		out = append(out, vd)
	}
	return out, rows.Err()
}
// #endregion list-versions

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

// scanVersion reads the seven param_versions columns followed by any extra columns.
func scanVersion(sc scanner, extra ...any) (Version, error) {
	var v Version
	var parentID, strategy, runID sql.NullString
	var paramsJSON, reportJSON, createdStr string

	dest := append([]any{&v.VersionID, &parentID, &paramsJSON, &reportJSON, &strategy, &runID, &createdStr}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return Version{}, err
	}
	v.ParentID = parentID.String
	v.Strategy = strategy.String
	v.RunID = runID.String
	if err := json.Unmarshal([]byte(paramsJSON), &v.Parameters); err != nil {
		return Version{}, fmt.Errorf("unmarshal parameters: %w", err)
	}
	if err := json.Unmarshal([]byte(reportJSON), &v.Report); err != nil {
		return Version{}, fmt.Errorf("unmarshal report: %w", err)
	}
	v.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return v, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion scan
