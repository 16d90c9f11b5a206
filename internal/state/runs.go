package state

import (
	"database/sql"
	"fmt"
	"time"
)

// RunStatus represents the status of an orchestration run.
type RunStatus string

const (
	RunActive      RunStatus = "active"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
	RunCanceled    RunStatus = "canceled"
	RunInterrupted RunStatus = "interrupted"
)

// Run represents one orchestration run of an objective.
type Run struct {
	ID              string     `json:"id"`
	Objective       string     `json:"objective"`
	Status          RunStatus  `json:"status"`
	TasksTotal      int        `json:"tasks_total"`
	TasksCompleted  int        `json:"tasks_completed"`
	TasksFailed     int        `json:"tasks_failed"`
	DecisionsRaised int        `json:"decisions_raised"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
}

// CreateRun records a new run.
func (db *DB) CreateRun(r *Run) error {
	_, err := db.Exec(`
		INSERT INTO runs (id, objective, status, tasks_total, tasks_completed, tasks_failed, decisions_raised, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Objective, string(r.Status), r.TasksTotal, r.TasksCompleted, r.TasksFailed, r.DecisionsRaised, formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when no run has the ID.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, objective, status, tasks_total, tasks_completed, tasks_failed, decisions_raised, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// UpdateRun updates a run's counters and status.
func (db *DB) UpdateRun(r *Run) error {
	var finished interface{}
	if r.FinishedAt != nil {
		finished = formatTime(*r.FinishedAt)
	}
	_, err := db.Exec(`
		UPDATE runs SET status = ?, tasks_total = ?, tasks_completed = ?, tasks_failed = ?, decisions_raised = ?, finished_at = ?
		WHERE id = ?
	`, string(r.Status), r.TasksTotal, r.TasksCompleted, r.TasksFailed, r.DecisionsRaised, finished, r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first, optionally filtered by status.
func (db *DB) ListRuns(status *RunStatus) ([]Run, error) {
	query := `
		SELECT id, objective, status, tasks_total, tasks_completed, tasks_failed, decisions_raised, started_at, finished_at
		FROM runs
	`
	var args []any
	if status != nil {
		query += " WHERE status = ?"
		args = append(args, string(*status))
	}
	query += " ORDER BY started_at DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetActiveRun returns the most recent active run, or nil.
func (db *DB) GetActiveRun() (*Run, error) {
	row := db.QueryRow(`
		SELECT id, objective, status, tasks_total, tasks_completed, tasks_failed, decisions_raised, started_at, finished_at
		FROM runs WHERE status = ? ORDER BY started_at DESC LIMIT 1
	`, string(RunActive))

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active run: %w", err)
	}
	return r, nil
}

// MarkInterrupted flags any still-active runs as interrupted. Called at
// startup so a crash leaves an honest record rather than a phantom active run.
func (db *DB) MarkInterrupted() (int64, error) {
	result, err := db.Exec(`UPDATE runs SET status = ? WHERE status = ?`,
		string(RunInterrupted), string(RunActive))
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return result.RowsAffected()
}

// RecordDecision stores a governance decision row linked to a run.
func (db *DB) RecordDecision(runID, decisionID, decisionType, status, subject string, createdAt time.Time, resolvedAt *time.Time) error {
	var resolved interface{}
	if resolvedAt != nil {
		resolved = formatTime(*resolvedAt)
	}
	_, err := db.Exec(`
		INSERT INTO decisions (id, run_id, type, status, subject, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, resolved_at = excluded.resolved_at
	`, decisionID, runID, decisionType, status, subject, formatTime(createdAt), resolved)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var startedAt string
	var finishedAt sql.NullString
	err := s.Scan(&r.ID, &r.Objective, &r.Status, &r.TasksTotal, &r.TasksCompleted,
		&r.TasksFailed, &r.DecisionsRaised, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}
