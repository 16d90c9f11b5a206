package orchestrator

import (
	"path/filepath"
	"testing"

	"github.com/synergyhq/synergy/internal/bidding"
	"github.com/synergyhq/synergy/internal/collab"
	"github.com/synergyhq/synergy/pkg/models"
)

func TestSchedulePassAssignsIdleEligibleAgent(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	addAgent(t, o, "backend-dev", "developer", "go", "sql")
	addAgent(t, o, "frontend-dev", "developer", "react")

	task, _ := o.CreateTask(TaskSpec{Title: "migrate schema", RequiredSkills: []string{"sql"}})

	assignments := o.SchedulePass()
	if len(assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assignments))
	}
	if assignments[0].AgentID != "backend-dev" {
		t.Fatalf("wrong agent: %s", assignments[0].AgentID)
	}

	got := o.Task(task.ID)
	if got.Status != models.TaskStatusAssigned || got.Assignee != "backend-dev" {
		t.Fatalf("task not bound: %+v", got)
	}
	if agent := o.Agent("backend-dev"); agent.CurrentTask != task.ID {
		t.Fatalf("agent not bound: %+v", agent)
	}
}

func TestSchedulePassNeverDoubleBooks(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	addAgent(t, o, "solo", "developer", "go")

	o.CreateTask(TaskSpec{Title: "first", RequiredSkills: []string{"go"}})
	o.CreateTask(TaskSpec{Title: "second", RequiredSkills: []string{"go"}})

	assignments := o.SchedulePass()
	if len(assignments) != 1 {
		t.Fatalf("one agent can take one task, got %d assignments", len(assignments))
	}

	// Second pass with the agent still busy assigns nothing.
	if again := o.SchedulePass(); len(again) != 0 {
		t.Fatalf("busy agent reassigned: %+v", again)
	}
}

func TestSchedulePassSkipsBlockedTasks(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	addAgent(t, o, "dev", "developer")

	dep, _ := o.CreateTask(TaskSpec{Title: "dep"})
	o.CreateTask(TaskSpec{Title: "blocked", DependsOn: []string{dep.ID}})

	assignments := o.SchedulePass()
	if len(assignments) != 1 || assignments[0].TaskID != dep.ID {
		t.Fatalf("expected only the dependency scheduled, got %+v", assignments)
	}
}

func TestSchedulePassPrefersHigherPriority(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	addAgent(t, o, "solo", "developer")

	o.CreateTask(TaskSpec{Title: "background", Priority: models.PriorityLow})
	critical, _ := o.CreateTask(TaskSpec{Title: "outage", Priority: models.PriorityCritical})

	assignments := o.SchedulePass()
	if len(assignments) != 1 || assignments[0].TaskID != critical.ID {
		t.Fatalf("critical task should win the only agent, got %+v", assignments)
	}
}

func TestSchedulePassPicksBestROI(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	if err := o.AddAgent(&models.OrgAgent{ID: "novice", Name: "novice", Role: "developer", Skills: []string{"go"}, SuccessRate: 30}); err != nil {
		t.Fatal(err)
	}
	if err := o.AddAgent(&models.OrgAgent{ID: "expert", Name: "expert", Role: "developer", Skills: []string{"go"}, SuccessRate: 95}); err != nil {
		t.Fatal(err)
	}

	o.CreateTask(TaskSpec{Title: "build service", RequiredSkills: []string{"go"}})

	assignments := o.SchedulePass()
	if len(assignments) != 1 || assignments[0].AgentID != "expert" {
		t.Fatalf("expected the expert to win, got %+v", assignments)
	}
	if assignments[0].Bid.Confidence <= 0 || assignments[0].Bid.TokenEstimate <= 0 {
		t.Fatalf("bid not populated: %+v", assignments[0].Bid)
	}
}

func TestSchedulePassLeavesUnmatchableTasksPending(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	addAgent(t, o, "dev", "developer", "go")

	task, _ := o.CreateTask(TaskSpec{Title: "design logo", RequiredSkills: []string{"illustration"}})

	if assignments := o.SchedulePass(); len(assignments) != 0 {
		t.Fatalf("no eligible agent, got %+v", assignments)
	}
	if got := o.Task(task.ID); got.Status != models.TaskStatusPending {
		t.Fatalf("task should stay pending, got %s", got.Status)
	}
}

func TestSchedulePassBreaksTiesByCollaborationHistory(t *testing.T) {
	history, err := collab.NewHistory(filepath.Join(t.TempDir(), "collab.json"))
	if err != nil {
		t.Fatalf("new history: %v", err)
	}
	// "zeta" has delivered go work before; without history the ID-sorted
	// first-seen tiebreak would hand the task to "alpha".
	for i := 0; i < 3; i++ {
		if err := history.Record(models.CollaborationRecord{
			RequesterID: "orchestrator",
			HelperID:    "zeta",
			Skills:      []string{"go"},
			Success:     true,
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	o := newTestOrchestrator(t, nil, WithCollabHistory(history))
	addAgent(t, o, "alpha", "developer", "go")
	addAgent(t, o, "zeta", "developer", "go")

	o.CreateTask(TaskSpec{Title: "build service", RequiredSkills: []string{"go"}})

	assignments := o.SchedulePass()
	if len(assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assignments))
	}
	if assignments[0].AgentID != "zeta" {
		t.Fatalf("proven helper should win the tie, got %s", assignments[0].AgentID)
	}
}

func TestSchedulePassNegotiatesProvider(t *testing.T) {
	catalog := []bidding.Provider{
		{Name: "general", Class: "standard"},
		{Name: "premium-reasoner", Class: "premium"},
	}
	o := newTestOrchestrator(t, nil, WithProviders(catalog, "general"))
	addAgent(t, o, "dev", "developer")

	o.CreateTask(TaskSpec{Title: "contain the incident", Priority: models.PriorityCritical})

	assignments := o.SchedulePass()
	if len(assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assignments))
	}
	if assignments[0].Provider != "premium-reasoner" {
		t.Fatalf("critical work should route to the premium class, got %s", assignments[0].Provider)
	}
}
