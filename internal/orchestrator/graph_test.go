package orchestrator

import (
	"errors"
	"testing"

	"github.com/synergyhq/synergy/pkg/models"
)

func makeTask(id string, deps ...string) *models.Task {
	return &models.Task{
		ID:        id,
		Title:     id,
		Status:    models.TaskStatusPending,
		Priority:  models.PriorityMedium,
		DependsOn: deps,
	}
}

func TestGraphBuildRejectsUnknownDependency(t *testing.T) {
	g := NewDependencyGraph()
	err := g.Build([]*models.Task{makeTask("a", "ghost")})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestGraphBuildRejectsCycle(t *testing.T) {
	g := NewDependencyGraph()
	err := g.Build([]*models.Task{
		makeTask("a", "b"),
		makeTask("b", "c"),
		makeTask("c", "a"),
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestGraphTopologicalSort(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.Build([]*models.Task{
		makeTask("a"),
		makeTask("b", "a"),
		makeTask("c", "a", "b"),
	}); err != nil {
		t.Fatalf("build: %v", err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Fatalf("dependencies out of order: %v", order)
	}
}

func TestGraphGetReadyRespectsCompletion(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.Build([]*models.Task{
		makeTask("a"),
		makeTask("b", "a"),
	}); err != nil {
		t.Fatalf("build: %v", err)
	}

	ready := g.GetReady()
	if len(ready) != 1 || ready[0] != "a" {
		t.Fatalf("expected only a ready, got %v", ready)
	}

	g.MarkComplete("a")
	ready = g.GetReady()
	found := false
	for _, id := range ready {
		if id == "b" {
			found = true
		}
		if id == "a" {
			t.Fatal("completed task should not be ready")
		}
	}
	if !found {
		t.Fatalf("b should be ready after a completes, got %v", ready)
	}
}

func TestGraphGetDependents(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.Build([]*models.Task{
		makeTask("a"),
		makeTask("b", "a"),
		makeTask("c", "a"),
	}); err != nil {
		t.Fatalf("build: %v", err)
	}

	dependents := g.GetDependents("a")
	if len(dependents) != 2 {
		t.Fatalf("expected 2 dependents of a, got %v", dependents)
	}
}
