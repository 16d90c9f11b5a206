package models

import "time"

// ConversationEntry is a single exchange kept in an agent's history window.
type ConversationEntry struct {
	// Role is who produced the entry ("user", "agent", "system").
	Role string `json:"role"`
	// Content is the text of the exchange.
	Content string `json:"content"`
	// At is when the exchange happened.
	At time.Time `json:"at"`
}

// ConversationWindow is a bounded history of conversation entries.
// When the window is full the oldest entry is evicted first.
type ConversationWindow struct {
	capacity int
	entries  []ConversationEntry
}

// NewConversationWindow creates a window holding at most capacity entries.
// A capacity below 1 defaults to 20.
func NewConversationWindow(capacity int) *ConversationWindow {
	if capacity < 1 {
		capacity = 20
	}
	return &ConversationWindow{capacity: capacity}
}

// Append adds an entry, evicting the oldest if the window is full.
func (w *ConversationWindow) Append(e ConversationEntry) {
	if len(w.entries) >= w.capacity {
		w.entries = w.entries[1:]
	}
	w.entries = append(w.entries, e)
}

// Entries returns a copy of the window contents, oldest first.
func (w *ConversationWindow) Entries() []ConversationEntry {
	out := make([]ConversationEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len returns the number of entries currently held.
func (w *ConversationWindow) Len() int {
	return len(w.entries)
}

// Capacity returns the maximum number of entries the window holds.
func (w *ConversationWindow) Capacity() int {
	return w.capacity
}

// OrgAgent represents a worker agent in the organization tree.
type OrgAgent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Name is the agent's display name.
	Name string `json:"name"`
	// Role is the agent's organizational role, used for policy matching.
	Role string `json:"role"`
	// Department groups agents for assignment eligibility.
	Department string `json:"department,omitempty"`
	// Skills is the set of skills this agent offers.
	Skills []string `json:"skills,omitempty"`
	// SuccessRate is the rolling task success rate, 0-100.
	SuccessRate float64 `json:"success_rate"`
	// CurrentTask is the ID of the task the agent is working on, if any.
	CurrentTask string `json:"current_task,omitempty"`
	// ManagerID is the agent's manager in the org tree, if any.
	ManagerID string `json:"manager_id,omitempty"`
	// Reports lists the IDs of the agent's direct reports.
	Reports []string `json:"reports,omitempty"`
	// History is the bounded conversation window. Not persisted.
	History *ConversationWindow `json:"-"`
}

// Idle returns true if the agent has no task assigned.
func (a *OrgAgent) Idle() bool {
	return a.CurrentTask == ""
}

// RecordOutcome folds a task outcome into the rolling success rate.
// The rate moves 10% of the way toward the new sample, so recent
// outcomes dominate without a single failure cratering the score.
func (a *OrgAgent) RecordOutcome(success bool) {
	sample := 0.0
	if success {
		sample = 100.0
	}
	a.SuccessRate = a.SuccessRate*0.9 + sample*0.1
}
