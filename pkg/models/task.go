package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not been assigned yet.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusAssigned indicates an agent has been selected but work has not started.
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusReview indicates the task output is under validation.
	TaskStatusReview TaskStatus = "review"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled before completion.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusReview, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the task lifecycle permits moving from s to next.
// The lifecycle is pending → assigned → in_progress → {review → completed};
// failed and cancelled are reachable from any non-terminal state.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case TaskStatusFailed, TaskStatusCancelled:
		return true
	case TaskStatusAssigned:
		return s == TaskStatusPending
	case TaskStatusInProgress:
		return s == TaskStatusAssigned
	case TaskStatusReview:
		return s == TaskStatusInProgress
	case TaskStatusCompleted:
		return s == TaskStatusInProgress || s == TaskStatusReview
	default:
		return false
	}
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	// PriorityCritical is reserved for tasks whose failure blocks the objective.
	PriorityCritical TaskPriority = "critical"
	// PriorityHigh marks important tasks that should be scheduled early.
	PriorityHigh TaskPriority = "high"
	// PriorityMedium is the default priority.
	PriorityMedium TaskPriority = "medium"
	// PriorityLow marks background work.
	PriorityLow TaskPriority = "low"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// ToolUse records a single tool invocation made while executing a task.
type ToolUse struct {
	// Tool is the name of the invoked tool.
	Tool string `json:"tool"`
	// Resource is the policy resource the tool maps to, if any.
	Resource string `json:"resource,omitempty"`
	// Allowed indicates whether the policy gate permitted the invocation.
	Allowed bool `json:"allowed"`
	// At is when the invocation happened.
	At time.Time `json:"at"`
}

// Task represents a unit of work decomposed from an objective.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ProjectID groups the task under a project or objective, if any.
	ProjectID string `json:"project_id,omitempty"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Priority is the urgency of the task.
	Priority TaskPriority `json:"priority"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Assignee is the ID of the agent working on this task.
	Assignee string `json:"assignee,omitempty"`
	// RequiredSkills lists the skills an agent needs to execute this task.
	RequiredSkills []string `json:"required_skills,omitempty"`
	// DependsOn lists task IDs that must complete before this task.
	DependsOn []string `json:"depends_on,omitempty"`
	// ToolTrace records the tool invocations made while executing the task.
	ToolTrace []ToolUse `json:"tool_trace,omitempty"`
	// Result holds the agent's output once the task has run.
	Result string `json:"result,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when execution began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
