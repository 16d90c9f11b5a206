package state

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestRunCRUD(t *testing.T) {
	db := openTestDB(t)

	run := &Run{
		ID:         "run-1",
		Objective:  "refactor the billing module",
		Status:     RunActive,
		TasksTotal: 4,
		StartedAt:  time.Now(),
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil || got.Objective != run.Objective || got.Status != RunActive {
		t.Fatalf("GetRun = %+v", got)
	}

	finished := time.Now()
	run.Status = RunCompleted
	run.TasksCompleted = 3
	run.TasksFailed = 1
	run.FinishedAt = &finished
	if err := db.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err = db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun after update: %v", err)
	}
	if got.Status != RunCompleted || got.TasksCompleted != 3 || got.FinishedAt == nil {
		t.Errorf("updated run = %+v", got)
	}

	missing, err := db.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing run, got %+v", missing)
	}
}

func TestGetActiveRunAndMarkInterrupted(t *testing.T) {
	db := openTestDB(t)

	for i, status := range []RunStatus{RunCompleted, RunActive} {
		run := &Run{
			ID:        "run-" + string(rune('a'+i)),
			Objective: "obj",
			Status:    status,
			StartedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	active, err := db.GetActiveRun()
	if err != nil {
		t.Fatalf("GetActiveRun: %v", err)
	}
	if active == nil || active.Status != RunActive {
		t.Fatalf("active run = %+v", active)
	}

	n, err := db.MarkInterrupted()
	if err != nil {
		t.Fatalf("MarkInterrupted: %v", err)
	}
	if n != 1 {
		t.Errorf("interrupted %d runs, want 1", n)
	}

	active, err = db.GetActiveRun()
	if err != nil {
		t.Fatalf("GetActiveRun after interrupt: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active run, got %+v", active)
	}
}

func TestListRunsFilter(t *testing.T) {
	db := openTestDB(t)

	statuses := []RunStatus{RunActive, RunCompleted, RunFailed}
	for i, status := range statuses {
		run := &Run{
			ID:        "run-" + string(rune('0'+i)),
			Objective: "obj",
			Status:    status,
			StartedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	all, err := db.ListRuns(nil)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all runs = %d", len(all))
	}
	// Newest first.
	if all[0].Status != RunFailed {
		t.Errorf("first run = %+v", all[0])
	}

	failed := RunFailed
	only, err := db.ListRuns(&failed)
	if err != nil {
		t.Fatalf("ListRuns filtered: %v", err)
	}
	if len(only) != 1 || only[0].Status != RunFailed {
		t.Errorf("filtered runs = %+v", only)
	}
}

func TestRecordDecisionUpsert(t *testing.T) {
	db := openTestDB(t)

	created := time.Now()
	if err := db.RecordDecision("run-1", "dec-1", "security", "pending", "escalated write", created, nil); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	resolved := time.Now()
	if err := db.RecordDecision("run-1", "dec-1", "security", "approved", "escalated write", created, &resolved); err != nil {
		t.Fatalf("RecordDecision update: %v", err)
	}

	var status string
	row := db.QueryRow("SELECT status FROM decisions WHERE id = ?", "dec-1")
	if err := row.Scan(&status); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if status != "approved" {
		t.Errorf("status = %q", status)
	}
}

func TestListAndPendingDecisions(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	resolved := base.Add(30 * time.Minute)
	records := []struct {
		runID, id, status string
		created           time.Time
		resolvedAt        *time.Time
	}{
		{"run-1", "dec-old", "pending", base, nil},
		{"run-1", "dec-done", "approved", base.Add(10 * time.Minute), &resolved},
		{"run-2", "dec-new", "pending", base.Add(20 * time.Minute), nil},
	}
	for _, r := range records {
		if err := db.RecordDecision(r.runID, r.id, "strategic", r.status, "subject", r.created, r.resolvedAt); err != nil {
			t.Fatalf("RecordDecision %s: %v", r.id, err)
		}
	}

	all, err := db.ListDecisions("")
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all decisions = %d", len(all))
	}
	// Newest first.
	if all[0].ID != "dec-new" {
		t.Errorf("first decision = %+v", all[0])
	}
	for _, d := range all {
		if d.ID == "dec-done" && d.ResolvedAt == nil {
			t.Errorf("resolved decision lost its timestamp: %+v", d)
		}
	}

	one, err := db.ListDecisions("run-2")
	if err != nil {
		t.Fatalf("ListDecisions run-2: %v", err)
	}
	if len(one) != 1 || one[0].ID != "dec-new" {
		t.Errorf("run-2 decisions = %+v", one)
	}

	pending, err := db.PendingDecisions()
	if err != nil {
		t.Fatalf("PendingDecisions: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending decisions = %d", len(pending))
	}
	// Oldest first.
	if pending[0].ID != "dec-old" || pending[1].ID != "dec-new" {
		t.Errorf("pending order = %s, %s", pending[0].ID, pending[1].ID)
	}
}
