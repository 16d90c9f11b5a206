package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/synergyhq/synergy/internal/ensemble"
	"github.com/synergyhq/synergy/pkg/models"
)

func TestSubmitObjectiveRunsTasksToCompletion(t *testing.T) {
	var calls atomic.Int32
	exec := &stubExecutor{fn: func(ctx context.Context, system, user string, data map[string]string) (string, error) {
		calls.Add(1)
		return "finished: " + user, nil
	}}
	o := newTestOrchestrator(t, exec)
	addAgent(t, o, "dev-1", "developer")
	addAgent(t, o, "dev-2", "developer")

	project, err := o.SubmitObjective(context.Background(), "write the parser\nwrite the printer")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if project.Status != models.TaskStatusCompleted {
		t.Fatalf("project status = %s", project.Status)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 executions, got %d", calls.Load())
	}

	for _, task := range o.ProjectTasks(project.ID) {
		if task.Status != models.TaskStatusCompleted {
			t.Errorf("task %s = %s", task.Title, task.Status)
		}
		if !strings.HasPrefix(task.Result, "finished:") {
			t.Errorf("task %s result = %q", task.Title, task.Result)
		}
	}
	for _, agent := range o.Agents() {
		if !agent.Idle() {
			t.Errorf("agent %s still busy", agent.ID)
		}
	}
}

func TestSubmitObjectiveSurfacesPartialFailure(t *testing.T) {
	exec := &stubExecutor{fn: func(ctx context.Context, system, user string, data map[string]string) (string, error) {
		if strings.Contains(user, "explode") {
			return "", errors.New("model refused")
		}
		return "ok", nil
	}}
	o := newTestOrchestrator(t, exec)
	addAgent(t, o, "dev-1", "developer")
	addAgent(t, o, "dev-2", "developer")

	project, err := o.SubmitObjective(context.Background(), "build the thing\nexplode spectacularly")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if project.Status != models.TaskStatusFailed {
		t.Fatalf("a failed subtask must fail the project, got %s", project.Status)
	}

	var completed, failed int
	for _, task := range o.ProjectTasks(project.ID) {
		switch task.Status {
		case models.TaskStatusCompleted:
			completed++
		case models.TaskStatusFailed:
			failed++
			if task.Error == "" {
				t.Error("failed task carries no error")
			}
		}
	}
	if completed != 1 || failed != 1 {
		t.Fatalf("completed=%d failed=%d", completed, failed)
	}
}

func TestSubmitObjectiveFailsStrandedTasks(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	// No agents registered at all.

	project, err := o.SubmitObjective(context.Background(), "do something")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if project.Status != models.TaskStatusFailed {
		t.Fatalf("project status = %s", project.Status)
	}
	tasks := o.ProjectTasks(project.ID)
	if len(tasks) != 1 || tasks[0].Status != models.TaskStatusFailed {
		t.Fatalf("stranded task not failed: %+v", tasks)
	}
	if !strings.Contains(tasks[0].Error, "no eligible agents") {
		t.Fatalf("error = %q", tasks[0].Error)
	}
}

func TestSubmitObjectiveEmpty(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	if _, err := o.SubmitObjective(context.Background(), "  "); !errors.Is(err, ErrNoTasks) {
		t.Fatalf("expected ErrNoTasks, got %v", err)
	}
}

// unanimousAnswerer is an ensemble Answerer that always votes the same way.
type unanimousAnswerer struct{ answer string }

func (a unanimousAnswerer) Answer(ctx context.Context, agent *models.OrgAgent, question string) (string, float64, error) {
	return a.answer, agent.SuccessRate / 100, nil
}

func TestCriticalTaskValidatedByConsensus(t *testing.T) {
	o := newTestOrchestrator(t, nil,
		WithEnsemble(ensemble.NewManager(unanimousAnswerer{answer: "ACCEPT"}, nil, 0), ensemble.NewDetector(nil)))
	addAgent(t, o, "worker", "developer")
	for i := 0; i < 3; i++ {
		addAgent(t, o, fmt.Sprintf("panelist-%d", i), "reviewer")
	}

	project, err := o.SubmitObjective(context.Background(), "critical: patch the auth bypass")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if project.Status != models.TaskStatusCompleted {
		t.Fatalf("project status = %s", project.Status)
	}
	tasks := o.ProjectTasks(project.ID)
	if tasks[0].Status != models.TaskStatusCompleted || tasks[0].Result == "" {
		t.Fatalf("validated task not completed: %+v", tasks[0])
	}
}

func TestCriticalTaskRejectedByConsensus(t *testing.T) {
	o := newTestOrchestrator(t, nil,
		WithEnsemble(ensemble.NewManager(unanimousAnswerer{answer: "REJECT"}, nil, 0), ensemble.NewDetector(nil)))
	addAgent(t, o, "worker", "developer")
	for i := 0; i < 3; i++ {
		addAgent(t, o, fmt.Sprintf("panelist-%d", i), "reviewer")
	}

	project, err := o.SubmitObjective(context.Background(), "critical: patch the auth bypass")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if project.Status != models.TaskStatusFailed {
		t.Fatalf("project status = %s", project.Status)
	}
	tasks := o.ProjectTasks(project.ID)
	if !strings.Contains(tasks[0].Error, "rejected") {
		t.Fatalf("error = %q", tasks[0].Error)
	}
}

func TestCriticalTaskWithoutPanelRaisesDecision(t *testing.T) {
	// No idle panelists exist, so the ensemble cannot form and the call goes
	// to a human. Nobody answers within the broker timeout, so the decision
	// escalates and the task fails. It is never silently approved.
	o := newTestOrchestrator(t, nil,
		WithEnsemble(ensemble.NewManager(unanimousAnswerer{answer: "ACCEPT"}, nil, 0), ensemble.NewDetector(nil)))
	addAgent(t, o, "worker", "developer")

	project, err := o.SubmitObjective(context.Background(), "critical: rotate the signing key")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if project.Status != models.TaskStatusFailed {
		t.Fatalf("project status = %s", project.Status)
	}

	decisions := o.Broker().All()
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].Status != models.DecisionEscalated {
		t.Fatalf("decision status = %s", decisions[0].Status)
	}
}

func TestCriticalTaskApprovedByHuman(t *testing.T) {
	broker, err := NewDecisionBroker(10*time.Second, "", nil, NopLogger())
	if err != nil {
		t.Fatalf("broker: %v", err)
	}
	defer broker.Close()

	exec := &stubExecutor{}
	o, err := New(exec, broker,
		WithEnsemble(ensemble.NewManager(unanimousAnswerer{answer: "ACCEPT"}, nil, 0), ensemble.NewDetector(nil)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	addAgent(t, o, "worker", "developer")

	// Play the approver: grab the decision as soon as it shows up.
	go func() {
		for i := 0; i < 200; i++ {
			if pending := broker.Pending(); len(pending) > 0 {
				broker.Resolve(pending[0].ID, true, "looks right")
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	project, err := o.SubmitObjective(context.Background(), "critical: rotate the signing key")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if project.Status != models.TaskStatusCompleted {
		t.Fatalf("approved task should complete the project, got %s", project.Status)
	}
}

func TestRunProjectStopsOnSignal(t *testing.T) {
	signals, err := NewSignals(t.TempDir())
	if err != nil {
		t.Fatalf("signals: %v", err)
	}
	defer signals.Close()
	if err := signals.SendStop(); err != nil {
		t.Fatalf("send stop: %v", err)
	}

	o := newTestOrchestrator(t, nil, WithSignals(signals))
	addAgent(t, o, "dev", "developer")

	project, err := o.SubmitObjective(context.Background(), "never gets to run")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	tasks := o.ProjectTasks(project.ID)
	if tasks[0].Status != models.TaskStatusCancelled {
		t.Fatalf("expected cancellation on stop, got %s", tasks[0].Status)
	}
}
