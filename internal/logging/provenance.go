package logging

import (
	"database/sql"
	"fmt"
	"time"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-decision
// LogDecision writes a calibration entry to the calibration_log table.
func LogDecision(db *sql.DB, entry CalibrationEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO calibration_log (version_id, run_id, strategy, record_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		nullIfEmpty(entry.RunID),
		entry.Strategy,
		nullIfEmpty(entry.RecordJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region list-decisions
// ListDecisions returns the most recent calibration entries, newest first.
func ListDecisions(db *sql.DB, limit int) ([]CalibrationEntry, error) {
	rows, err := db.Query(
		`SELECT version_id, run_id, strategy, record_json, decision, reason, created_at
		 FROM calibration_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []CalibrationEntry
	for rows.Next() {
		var e CalibrationEntry
		var runID, recordJSON, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.VersionID, &runID, &e.Strategy, &recordJSON, &e.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.RunID = runID.String
		e.RecordJSON = recordJSON.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
