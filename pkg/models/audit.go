package models

import "time"

// AuditDecision is the outcome recorded for a gated action.
type AuditDecision string

const (
	// AuditAllow records that the action was permitted.
	AuditAllow AuditDecision = "allow"
	// AuditDeny records that the action was refused.
	AuditDeny AuditDecision = "deny"
)

// AuditEntry is an immutable record of a policy decision or state-changing
// action. Entries are never edited after being logged; history only moves
// between files during size-based rotation.
type AuditEntry struct {
	// ID is the unique identifier for this entry.
	ID string `json:"id"`
	// Timestamp is when the recorded action happened.
	Timestamp time.Time `json:"timestamp"`
	// AgentID identifies the acting agent.
	AgentID string `json:"agent_id"`
	// AgentRole is the acting agent's role at the time of the action.
	AgentRole string `json:"agent_role,omitempty"`
	// Action is the operation that was attempted.
	Action string `json:"action"`
	// Resource is the resource class acted on.
	Resource string `json:"resource"`
	// ResourceID identifies the specific resource, if any.
	ResourceID string `json:"resource_id,omitempty"`
	// Decision is the recorded outcome.
	Decision AuditDecision `json:"decision"`
	// RuleID is the ID of the policy rule that matched, if any.
	RuleID string `json:"rule_id,omitempty"`
	// Before is an optional state snapshot taken before the action.
	Before string `json:"before,omitempty"`
	// After is an optional state snapshot taken after the action.
	After string `json:"after,omitempty"`
	// Context carries free-form metadata such as taskId or question.
	Context map[string]string `json:"context,omitempty"`
}
