package models

import "time"

// CollaborationRecord captures one requester/helper task outcome.
type CollaborationRecord struct {
	// RequesterID and RequesterName identify the agent that asked for help.
	RequesterID   string `json:"requester_id"`
	RequesterName string `json:"requester_name,omitempty"`
	// HelperID and HelperName identify the agent that did the work.
	HelperID   string `json:"helper_id"`
	HelperName string `json:"helper_name,omitempty"`
	// Skills lists the skills the task required.
	Skills []string `json:"skills,omitempty"`
	// Outcome summarizes the result.
	Outcome string `json:"outcome,omitempty"`
	// Success indicates whether the collaboration succeeded.
	Success bool `json:"success"`
	// Duration is how long the collaboration took.
	Duration time.Duration `json:"duration"`
	// Depth is the delegation recursion depth at which this happened.
	Depth int `json:"depth"`
	// At is when the collaboration finished.
	At time.Time `json:"at"`
}

// Trend describes the direction of a pair's recent success rate.
type Trend string

const (
	// TrendImproving means recent collaborations succeed more often than older ones.
	TrendImproving Trend = "improving"
	// TrendStable means recent and older success rates are comparable.
	TrendStable Trend = "stable"
	// TrendDeclining means recent collaborations succeed less often than older ones.
	TrendDeclining Trend = "declining"
)

// PairMetrics aggregates the collaboration history of one agent pair.
type PairMetrics struct {
	// RequesterID and HelperID identify the pair.
	RequesterID string `json:"requester_id"`
	HelperID    string `json:"helper_id"`
	// Count is the number of recorded collaborations.
	Count int `json:"count"`
	// SuccessRate is the fraction of successful collaborations, in [0,1].
	SuccessRate float64 `json:"success_rate"`
	// AvgDuration is the mean collaboration duration.
	AvgDuration time.Duration `json:"avg_duration"`
	// Trend compares the recent half of the history against the older half.
	Trend Trend `json:"trend"`
}
