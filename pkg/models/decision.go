package models

import "time"

// DecisionType categorizes a governance decision.
type DecisionType string

const (
	// DecisionHire requests adding an agent to the organization.
	DecisionHire DecisionType = "hire"
	// DecisionFire requests removing an agent from the organization.
	DecisionFire DecisionType = "fire"
	// DecisionBudget requests a spend or resource allocation.
	DecisionBudget DecisionType = "budget"
	// DecisionStrategic covers direction-setting choices.
	DecisionStrategic DecisionType = "strategic"
	// DecisionSecurity covers risk-bearing actions flagged by policy.
	DecisionSecurity DecisionType = "security"
	// DecisionVaultAccess requests access to protected secrets.
	DecisionVaultAccess DecisionType = "vault_access"
)

// Valid returns true if the type is a known value.
func (t DecisionType) Valid() bool {
	switch t {
	case DecisionHire, DecisionFire, DecisionBudget,
		DecisionStrategic, DecisionSecurity, DecisionVaultAccess:
		return true
	default:
		return false
	}
}

// DecisionStatus represents the resolution state of a decision.
type DecisionStatus string

const (
	// DecisionPending indicates the decision awaits an approver.
	DecisionPending DecisionStatus = "pending"
	// DecisionApproved indicates the approver allowed the request.
	DecisionApproved DecisionStatus = "approved"
	// DecisionRejected indicates the approver denied the request.
	DecisionRejected DecisionStatus = "rejected"
	// DecisionEscalated indicates the decision timed out or was handed upward.
	DecisionEscalated DecisionStatus = "escalated"
)

// Valid returns true if the status is a known value.
func (s DecisionStatus) Valid() bool {
	switch s {
	case DecisionPending, DecisionApproved, DecisionRejected, DecisionEscalated:
		return true
	default:
		return false
	}
}

// Resolved returns true once the decision has left the pending state.
// A resolved decision is immutable.
func (s DecisionStatus) Resolved() bool {
	return s != DecisionPending && s.Valid()
}

// Decision is a governance item requiring human (or designated approver) resolution.
type Decision struct {
	// ID is the unique identifier for this decision.
	ID string `json:"id"`
	// Type categorizes the decision.
	Type DecisionType `json:"type"`
	// Status is the resolution state.
	Status DecisionStatus `json:"status"`
	// Requester is the agent or component that raised the decision.
	Requester string `json:"requester"`
	// TaskID links the decision to the task waiting on it, if any.
	TaskID string `json:"task_id,omitempty"`
	// Subject describes what is being decided.
	Subject string `json:"subject"`
	// Priority is the urgency of the decision.
	Priority TaskPriority `json:"priority"`
	// Reason records the approver's rationale once resolved.
	Reason string `json:"reason,omitempty"`
	// CreatedAt is when the decision was raised.
	CreatedAt time.Time `json:"created_at"`
	// ResolvedAt is when the decision was resolved, if it has been.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
