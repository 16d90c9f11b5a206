package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/synergyhq/synergy/pkg/models"
)

func TestAgentStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")
	s := NewAgentStore(path)

	// Missing file loads empty.
	agents, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(agents) != 0 {
		t.Fatalf("fresh store has %d agents", len(agents))
	}

	want := []*models.OrgAgent{
		{ID: "a1", Name: "Ada", Role: "worker", Skills: []string{"go", "testing"}, SuccessRate: 80},
		{ID: "a2", Name: "Lin", Role: "researcher", SuccessRate: 65},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := NewAgentStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].Role != "researcher" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got[0].Skills) != 2 {
		t.Errorf("skills lost in round trip: %v", got[0].Skills)
	}
}

func TestProjectStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	s := NewProjectStore(path)

	snap := &ProjectSnapshot{
		Projects: []*models.Project{{ID: "p1", Objective: "ship it", Status: models.TaskStatusPending}},
		Tasks:    []*models.Task{{ID: "t1", ProjectID: "p1", Title: "step one", Status: models.TaskStatusPending}},
	}
	if err := s.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Projects) != 1 || len(got.Tasks) != 1 {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
	if got.Tasks[0].ProjectID != "p1" {
		t.Errorf("task project = %q", got.Tasks[0].ProjectID)
	}
}

func TestGoalStoreAddAndMarkDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goals.json")
	s := NewGoalStore(path)

	goal, err := s.Add("keep the audit trail clean", "p1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if goal.ID == "" || goal.Done {
		t.Fatalf("unexpected goal: %+v", goal)
	}

	if err := s.MarkDone(goal.ID); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	goals, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(goals) != 1 || !goals[0].Done {
		t.Errorf("goals = %+v", goals)
	}
}

func TestWriteJSONIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	if err := writeJSON(path, map[string]int{"n": 1}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after write")
	}
}
