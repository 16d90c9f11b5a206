package models

import "time"

// Project groups the tasks decomposed from a single objective.
type Project struct {
	// ID is the unique identifier for this project.
	ID string `json:"id"`
	// Name is the project's display name.
	Name string `json:"name"`
	// Objective is the high-level goal the project was created from.
	Objective string `json:"objective"`
	// TaskIDs lists the tasks belonging to this project.
	TaskIDs []string `json:"task_ids,omitempty"`
	// Status mirrors the aggregate state of the project's tasks.
	Status TaskStatus `json:"status"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when all tasks resolved, if they have.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Goal is a standing objective persisted in the goals store.
type Goal struct {
	// ID is the unique identifier for this goal.
	ID string `json:"id"`
	// Text is the goal statement.
	Text string `json:"text"`
	// ProjectID links the goal to the project executing it, if any.
	ProjectID string `json:"project_id,omitempty"`
	// Done indicates the goal has been achieved.
	Done bool `json:"done"`
	// CreatedAt is when the goal was recorded.
	CreatedAt time.Time `json:"created_at"`
}
