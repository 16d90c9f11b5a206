package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/synergyhq/synergy/internal/executor"
	"github.com/synergyhq/synergy/pkg/models"
)

const (
	// pausePollInterval is how often a paused run re-checks the pause signal.
	pausePollInterval = time.Second
	// riskConfidenceFloor marks a winning bid as high-risk when the winner's
	// own confidence falls below it.
	riskConfidenceFloor = 0.4
	// maxPanelSize caps how many agents sit on a validation panel.
	maxPanelSize = 5
)

// ErrNoTasks is returned when an objective decomposes into nothing.
var ErrNoTasks = errors.New("objective produced no tasks")

// SubmitObjective decomposes an objective into tasks under a new project and
// runs them to resolution. The returned project reflects the final aggregate
// state; per-task outcomes (including partial failures) are on the tasks.
func (o *Orchestrator) SubmitObjective(ctx context.Context, objective string) (*models.Project, error) {
	specs := DecomposeObjective(objective)
	if len(specs) == 0 {
		return nil, ErrNoTasks
	}

	project := o.CreateProject(titleOf(objective), objective)
	for _, spec := range specs {
		spec.ProjectID = project.ID
		if _, err := o.CreateTask(spec); err != nil {
			return nil, fmt.Errorf("create task %q: %w", spec.Title, err)
		}
	}

	if err := o.RunProject(ctx, project.ID); err != nil {
		return nil, err
	}
	return o.Project(project.ID), nil
}

// RunProject drives a project's tasks to resolution. Each round schedules
// every ready task through bidding, executes the round's assignments
// concurrently, and repeats as completions unlock dependents. Tasks that can
// never run (a dependency failed, or nobody is eligible) are failed rather
// than left dangling, so the project always settles.
func (o *Orchestrator) RunProject(ctx context.Context, projectID string) error {
	if o.Project(projectID) == nil {
		return fmt.Errorf("unknown project %s", projectID)
	}
	if err := o.validateProjectGraph(projectID); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		for o.signals != nil && o.signals.ShouldPause() && !o.signals.ShouldStop() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pausePollInterval):
			}
		}
		if o.signals != nil && o.signals.ShouldStop() {
			o.cancelUnresolved(projectID, "stopped by operator")
			break
		}

		assignments := o.SchedulePass()
		if len(assignments) == 0 {
			o.failStrandedTasks(projectID)
			break
		}

		var wg sync.WaitGroup
		for _, a := range assignments {
			wg.Add(1)
			go func(a Assignment) {
				defer wg.Done()
				o.executeTask(ctx, a)
			}(a)
		}
		wg.Wait()
	}

	o.finalizeProject(projectID)
	return nil
}

// validateProjectGraph builds the project's dependency graph to reject cycles
// and dangling dependencies before any agent starts work.
func (o *Orchestrator) validateProjectGraph(projectID string) error {
	tasks := o.ProjectTasks(projectID)
	ptrs := make([]*models.Task, len(tasks))
	for i := range tasks {
		ptrs[i] = &tasks[i]
	}
	graph := NewDependencyGraph()
	if err := graph.Build(ptrs); err != nil {
		return fmt.Errorf("project %s: %w", projectID, err)
	}
	return nil
}

// failStrandedTasks fails project tasks that no future round can run: those
// blocked behind a dependency that resolved without completing, and those
// with no eligible agent. Called only when a scheduling round assigned
// nothing, so nothing is in flight.
func (o *Orchestrator) failStrandedTasks(projectID string) {
	o.mu.Lock()
	type stranded struct{ id, reason string }
	var found []stranded
	for _, task := range o.tasks {
		if task.ProjectID != projectID || task.Status != models.TaskStatusPending {
			continue
		}
		reason := "no eligible agents"
		for _, depID := range task.DependsOn {
			dep, ok := o.tasks[depID]
			if ok && dep.Status.Terminal() && dep.Status != models.TaskStatusCompleted {
				reason = fmt.Sprintf("dependency %s resolved as %s", depID, dep.Status)
				break
			}
		}
		found = append(found, stranded{task.ID, reason})
	}
	o.mu.Unlock()

	for _, s := range found {
		o.logger.Log("task %s stranded: %s", s.id, s.reason)
		if err := o.failTask(s.id, s.reason); err != nil {
			o.logger.Log("failing stranded task %s: %v", s.id, err)
		}
	}
}

// cancelUnresolved cancels every non-terminal task in the project.
func (o *Orchestrator) cancelUnresolved(projectID, reason string) {
	for _, task := range o.ProjectTasks(projectID) {
		if !task.Status.Terminal() {
			if err := o.CancelTask(task.ID, reason); err != nil {
				o.logger.Log("cancel task %s: %v", task.ID, err)
			}
		}
	}
}

// executeTask runs one assigned task through its whole lifecycle. Failures
// are absorbed into the task's terminal state so one bad task never takes
// down the round it ran in.
func (o *Orchestrator) executeTask(ctx context.Context, assignment Assignment) {
	taskID := assignment.TaskID

	// Re-validate under the lock: the task must still be assigned to this
	// agent and every dependency still completed before work starts.
	o.mu.Lock()
	task, ok := o.tasks[taskID]
	if !ok || task.Assignee != assignment.AgentID {
		o.mu.Unlock()
		return
	}
	if err := o.transitionLocked(task, models.TaskStatusInProgress); err != nil {
		o.mu.Unlock()
		o.logger.Log("task %s could not start: %v", taskID, err)
		return
	}
	agent := o.agents[assignment.AgentID]
	system := agentSystemPrompt(agent)
	role := agent.Role
	description := task.Description
	if description == "" {
		description = task.Title
	}
	contextData := map[string]string{
		"task_id":  task.ID,
		"title":    task.Title,
		"priority": string(task.Priority),
		"provider": assignment.Provider,
	}
	o.mu.Unlock()

	actorCtx := executor.WithActor(ctx, executor.Actor{
		AgentID: assignment.AgentID,
		Role:    role,
		Trace:   o.toolTracer(taskID),
	})

	result, err := o.agentExec.Execute(actorCtx, system, description, contextData)
	o.recordExchange(assignment.AgentID, description, result)
	if err != nil {
		o.logger.Log("task %s execution error: %v", taskID, err)
		if ferr := o.failTask(taskID, err.Error()); ferr != nil {
			o.logger.Log("fail task %s: %v", taskID, ferr)
		}
		return
	}

	if o.isHighRisk(taskID, assignment) {
		o.validateResult(ctx, taskID, assignment, result)
		return
	}

	if cerr := o.completeTask(taskID, result); cerr != nil {
		o.logger.Log("complete task %s: %v", taskID, cerr)
	}
}

// isHighRisk decides whether a result needs validation before it counts:
// critical-priority work always does, as does work won on a shaky bid.
func (o *Orchestrator) isHighRisk(taskID string, assignment Assignment) bool {
	if o.ensemble == nil {
		return false
	}
	task := o.Task(taskID)
	if task == nil {
		return false
	}
	return task.Priority == models.PriorityCritical || assignment.Bid.Confidence < riskConfidenceFloor
}

// validateResult moves a task into review and runs an ensemble check over the
// proposed result. Consensus acceptance completes the task; consensus
// rejection fails it; anything murkier (split panel, panel too small) raises
// a governance decision and waits for a human verdict. A decision that times
// out escalates and the task fails; it is never auto-approved.
func (o *Orchestrator) validateResult(ctx context.Context, taskID string, assignment Assignment, result string) {
	if err := o.Transition(taskID, models.TaskStatusReview); err != nil {
		o.logger.Log("task %s review transition: %v", taskID, err)
		return
	}

	task := o.Task(taskID)
	panel := o.reviewPanel(assignment.AgentID)
	question := reviewQuestion(task, result)

	ensembleResult, err := o.ensemble.Check(ctx, taskID, question, panel)
	if err != nil {
		if ferr := o.failTask(taskID, fmt.Sprintf("validation aborted: %v", err)); ferr != nil {
			o.logger.Log("fail task %s: %v", taskID, ferr)
		}
		return
	}

	if ensembleResult.Consensus {
		verdict := strings.ToLower(strings.TrimSpace(ensembleResult.Winner))
		if strings.HasPrefix(verdict, "accept") {
			if cerr := o.completeTask(taskID, result); cerr != nil {
				o.logger.Log("complete task %s: %v", taskID, cerr)
			}
			return
		}
		if ferr := o.failTask(taskID, fmt.Sprintf("validation panel rejected the result (agreement %.0f%%)",
			ensembleResult.Agreement*100)); ferr != nil {
			o.logger.Log("fail task %s: %v", taskID, ferr)
		}
		return
	}

	// No consensus. Surface the disagreements, then hand the call to a human.
	subject := fmt.Sprintf("validate result of task %s (%s)", taskID, task.Title)
	if o.detector != nil && len(ensembleResult.Votes) > 1 {
		conflicts := o.detector.Detect(taskID, ensembleResult.Votes)
		if len(conflicts) > 0 {
			subject = fmt.Sprintf("%s: %s", subject, conflicts[0].Explanation)
		}
	}

	decision := o.broker.Raise(models.DecisionStrategic, assignment.AgentID, taskID, subject, task.Priority)
	resolution, err := o.broker.Await(ctx, decision.ID)
	if err != nil {
		if ferr := o.failTask(taskID, fmt.Sprintf("decision %s not resolved: %v", decision.ID, err)); ferr != nil {
			o.logger.Log("fail task %s: %v", taskID, ferr)
		}
		return
	}

	if resolution.Approved {
		if cerr := o.completeTask(taskID, result); cerr != nil {
			o.logger.Log("complete task %s: %v", taskID, cerr)
		}
		return
	}
	reason := fmt.Sprintf("decision %s %s: %s", decision.ID, resolution.Status, resolution.Reason)
	if ferr := o.failTask(taskID, reason); ferr != nil {
		o.logger.Log("fail task %s: %v", taskID, ferr)
	}
}

// reviewPanel picks up to maxPanelSize idle agents, excluding the author of
// the work under review. Panelists are detached copies so voting never races
// with scheduling.
func (o *Orchestrator) reviewPanel(excludeAgentID string) []*models.OrgAgent {
	o.mu.Lock()
	defer o.mu.Unlock()

	var panel []*models.OrgAgent
	for _, agent := range o.agents {
		if agent.ID == excludeAgentID || !agent.Idle() {
			continue
		}
		copy := *agent
		panel = append(panel, &copy)
		if len(panel) == maxPanelSize {
			break
		}
	}
	return panel
}

// reviewQuestion frames a result validation so answers group cleanly: the
// panel must open with ACCEPT or REJECT.
func reviewQuestion(task *models.Task, result string) string {
	return fmt.Sprintf(
		"Task: %s\n\nProposed result:\n%s\n\nDoes this result accomplish the task? Reply with exactly ACCEPT or REJECT.",
		task.Description, result)
}

// toolTracer records gated tool invocations onto the task's trace.
func (o *Orchestrator) toolTracer(taskID string) executor.TraceFunc {
	return func(toolName, resource string, allowed bool) {
		o.mu.Lock()
		defer o.mu.Unlock()
		task, ok := o.tasks[taskID]
		if !ok {
			return
		}
		task.ToolTrace = append(task.ToolTrace, models.ToolUse{
			Tool:     toolName,
			Resource: resource,
			Allowed:  allowed,
			At:       time.Now(),
		})
	}
}

// recordExchange appends the task exchange to the agent's conversation window.
func (o *Orchestrator) recordExchange(agentID, request, response string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	agent, ok := o.agents[agentID]
	if !ok || agent.History == nil {
		return
	}
	now := time.Now()
	agent.History.Append(models.ConversationEntry{Role: "user", Content: request, At: now})
	if response != "" {
		agent.History.Append(models.ConversationEntry{Role: "agent", Content: response, At: now})
	}
}
