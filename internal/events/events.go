// Package events provides the typed event channel shared by the Synergy core.
// Components publish lifecycle and governance events here; external observers
// (CLI, logging) subscribe read-only. Delivery is at-least-once per subscriber
// with no ordering guarantee across independent topics, and the core never
// blocks on subscriber availability.
package events

import (
	"time"
)

// Type represents the kind of event.
type Type string

const (
	// TaskCreated indicates a task has been created.
	TaskCreated Type = "task_created"
	// TaskAssigned indicates a task has been assigned to an agent.
	TaskAssigned Type = "task_assigned"
	// TaskStarted indicates a task has started execution.
	TaskStarted Type = "task_started"
	// TaskCompleted indicates a task completed successfully.
	TaskCompleted Type = "task_completed"
	// TaskFailed indicates a task failed.
	TaskFailed Type = "task_failed"
	// TaskCancelled indicates a task was cancelled.
	TaskCancelled Type = "task_cancelled"
	// PolicyDecision indicates a policy check was evaluated.
	PolicyDecision Type = "policy_decision"
	// ConflictDetected indicates two agents disagreed on an answer.
	ConflictDetected Type = "conflict_detected"
	// ConsensusReached indicates an ensemble vote met the agreement threshold.
	ConsensusReached Type = "consensus_reached"
	// ConsensusFailed indicates an ensemble vote fell short of the threshold.
	ConsensusFailed Type = "consensus_failed"
	// RollbackPreview indicates a pre-mutation backup was captured.
	RollbackPreview Type = "rollback_preview"
	// RollbackRestored indicates a backup was restored to its target.
	RollbackRestored Type = "rollback_restored"
	// DecisionRaised indicates a governance decision awaits an approver.
	DecisionRaised Type = "decision_raised"
	// DecisionResolved indicates a governance decision was resolved.
	DecisionResolved Type = "decision_resolved"
	// ObjectiveDone indicates all tasks of an objective have resolved.
	ObjectiveDone Type = "objective_done"
)

// Event is a single notification published on the core's event channel.
type Event struct {
	// Type is the kind of event.
	Type Type
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// AgentID is the ID of the related agent, if applicable.
	AgentID string
	// DecisionID is the ID of the related governance decision, if applicable.
	DecisionID string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Metadata carries event-specific details.
	Metadata map[string]interface{}
}
