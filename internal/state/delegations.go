package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/flowdeck/flowdeck/internal/coordinator"
)

// RecordDelegation appends a coordinator decision to the audit log.
// Implements coordinator.AuditSink.
func (db *DB) RecordDelegation(rec coordinator.DelegationRecord) error {
	alternatives, _ := json.Marshal(rec.Alternatives)

	_, err := db.Exec(`
		INSERT INTO delegations (task_id, flow, strategy, reason, confidence, alternatives, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.TaskID, rec.Flow, string(rec.Strategy), rec.Reason, rec.Confidence, string(alternatives), formatTime(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("record delegation: %w", err)
	}
	return nil
}

// ListRecentDelegations returns the most recent delegation records,
// newest first. limit <= 0 returns all records.
func (db *DB) ListRecentDelegations(limit int) ([]coordinator.DelegationRecord, error) {
	query := `
		SELECT task_id, flow, strategy, reason, confidence, alternatives, decided_at
		FROM delegations ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list delegations: %w", err)
	}
	defer rows.Close()

	var records []coordinator.DelegationRecord
	for rows.Next() {
		var rec coordinator.DelegationRecord
		var strategy, decidedAt string
		var reason, alternatives sql.NullString
		if err := rows.Scan(&rec.TaskID, &rec.Flow, &strategy, &reason, &rec.Confidence, &alternatives, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan delegation: %w", err)
		}
		rec.Strategy = coordinator.Strategy(strategy)
		if reason.Valid {
			rec.Reason = reason.String
		}
		if alternatives.Valid {
			json.Unmarshal([]byte(alternatives.String), &rec.Alternatives)
		}
		rec.Timestamp, _ = parseTime(decidedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountDelegationsByFlow returns the number of audited delegations per flow.
func (db *DB) CountDelegationsByFlow() (map[string]int, error) {
	rows, err := db.Query(`SELECT flow, COUNT(*) FROM delegations GROUP BY flow`)
	if err != nil {
		return nil, fmt.Errorf("count delegations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var flow string
		var n int
		if err := rows.Scan(&flow, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[flow] = n
	}
	return counts, rows.Err()
}
