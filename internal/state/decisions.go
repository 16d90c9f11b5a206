package state

import (
	"database/sql"
	"fmt"
	"time"
)

// DecisionRecord is the persisted view of a governance decision.
type DecisionRecord struct {
	ID         string     `json:"id"`
	RunID      string     `json:"run_id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Subject    string     `json:"subject"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

// ListDecisions returns the decisions of one run, or of all runs when runID
// is empty. Newest first.
func (db *DB) ListDecisions(runID string) ([]DecisionRecord, error) {
	query := `SELECT id, run_id, type, status, subject, created_at, resolved_at FROM decisions`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []DecisionRecord
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

// PendingDecisions returns every decision still awaiting resolution, oldest
// first so the longest-waiting item is acted on first.
func (db *DB) PendingDecisions() ([]DecisionRecord, error) {
	rows, err := db.Query(`
		SELECT id, run_id, type, status, subject, created_at, resolved_at
		FROM decisions WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending decisions: %w", err)
	}
	defer rows.Close()

	var decisions []DecisionRecord
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

func scanDecision(s scanner) (*DecisionRecord, error) {
	var d DecisionRecord
	var subject sql.NullString
	var createdAt string
	var resolvedAt sql.NullString

	if err := s.Scan(&d.ID, &d.RunID, &d.Type, &d.Status, &subject, &createdAt, &resolvedAt); err != nil {
		return nil, err
	}
	d.Subject = subject.String

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	d.CreatedAt = t
	d.ResolvedAt = parseNullableTime(resolvedAt)
	return &d, nil
}
