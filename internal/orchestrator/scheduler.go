package orchestrator

import (
	"sort"

	"github.com/synergyhq/synergy/internal/bidding"
	"github.com/synergyhq/synergy/pkg/models"
)

// Assignment is the outcome of one task winning a bid.
type Assignment struct {
	TaskID   string
	AgentID  string
	Provider string
	Bid      bidding.Bid
}

// SchedulePass runs one competitive assignment round over every ready task.
// A task is ready when it is pending and all of its dependencies have
// completed. For each ready task the idle, skill-eligible agents bid; the
// winner is bound to the task atomically (task assigned, agent busy) so a
// single pass never double-books an agent. Tasks with no eligible bidder stay
// pending and are picked up by a later pass.
//
// Higher-priority tasks are offered to the pool first, so when agents are
// scarce the scarce capacity goes to the work that matters most.
func (o *Orchestrator) SchedulePass() []Assignment {
	o.mu.Lock()
	defer o.mu.Unlock()

	ready := o.readyTasksLocked()
	sort.SliceStable(ready, func(i, j int) bool {
		pi, pj := priorityRank(ready[i].Priority), priorityRank(ready[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})

	var assignments []Assignment
	for _, task := range ready {
		candidates := o.eligibleAgentsLocked(task)
		if len(candidates) == 0 {
			continue
		}

		bids := bidding.ConductBidding(task, candidates)
		winner := bidding.DetermineWinner(bids, o.helperRank(task))
		if winner == nil {
			continue
		}

		agent := o.agents[winner.AgentID]
		if err := o.transitionLocked(task, models.TaskStatusAssigned); err != nil {
			o.logger.Log("assignment of task %s skipped: %v", task.ID, err)
			continue
		}
		task.Assignee = agent.ID
		agent.CurrentTask = task.ID

		provider := bidding.NegotiateProvider(task, o.providers, o.defaultProvider)
		o.logger.Log("task %s -> agent %s via %s (%s)", task.ID, agent.ID, provider, winner.Rationale)

		assignments = append(assignments, Assignment{
			TaskID:   task.ID,
			AgentID:  agent.ID,
			Provider: provider,
			Bid:      *winner,
		})
	}

	if len(assignments) > 0 {
		o.persistLocked()
	}
	return assignments
}

// readyTasksLocked returns pending tasks whose dependencies all completed.
func (o *Orchestrator) readyTasksLocked() []*models.Task {
	var ready []*models.Task
	for _, task := range o.tasks {
		if task.Status != models.TaskStatusPending {
			continue
		}
		blocked := false
		for _, depID := range task.DependsOn {
			dep, ok := o.tasks[depID]
			if !ok || dep.Status != models.TaskStatusCompleted {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, task)
		}
	}
	return ready
}

// eligibleAgentsLocked returns the idle agents fit to bid on a task: every
// agent must satisfy at least one required skill when the task names any.
// Tasks with no skill requirements are open to any idle agent.
func (o *Orchestrator) eligibleAgentsLocked(task *models.Task) []*models.OrgAgent {
	var eligible []*models.OrgAgent
	for _, agent := range o.agents {
		if !agent.Idle() {
			continue
		}
		if len(task.RequiredSkills) > 0 && !anySkillSatisfied(agent, task.RequiredSkills) {
			continue
		}
		eligible = append(eligible, agent)
	}
	// Deterministic bid order makes the first-seen tiebreak stable.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible
}

// helperRank scores candidates by their recorded success on the task's
// required skills, so equal bids tilt toward agents who have delivered this
// kind of work before. Returns nil when no history can inform the choice.
func (o *Orchestrator) helperRank(task *models.Task) bidding.HelperRank {
	if o.collab == nil || len(task.RequiredSkills) == 0 {
		return nil
	}
	scores := make(map[string]float64)
	for _, skill := range task.RequiredSkills {
		for _, r := range o.collab.BestHelpers(skill) {
			if r.SuccessRate > scores[r.HelperID] {
				scores[r.HelperID] = r.SuccessRate
			}
		}
	}
	if len(scores) == 0 {
		return nil
	}
	return func(agentID string) float64 { return scores[agentID] }
}

func anySkillSatisfied(agent *models.OrgAgent, required []string) bool {
	for _, skill := range required {
		if bidding.SkillSatisfied(agent.Skills, skill) {
			return true
		}
	}
	return false
}

// priorityRank orders priorities for scheduling, most urgent first.
func priorityRank(p models.TaskPriority) int {
	switch p {
	case models.PriorityCritical:
		return 0
	case models.PriorityHigh:
		return 1
	case models.PriorityMedium:
		return 2
	default:
		return 3
	}
}
