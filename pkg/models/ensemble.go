package models

// Vote is one agent's independent answer to an ensemble question.
type Vote struct {
	// AgentID identifies the voting agent.
	AgentID string `json:"agent_id"`
	// Answer is the agent's answer text.
	Answer string `json:"answer"`
	// Confidence is the agent's self-assessed confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Reasoning optionally explains the answer.
	Reasoning string `json:"reasoning,omitempty"`
}

// EnsembleResult aggregates the votes collected for one question.
type EnsembleResult struct {
	// TaskID identifies the task or question voted on.
	TaskID string `json:"task_id"`
	// Consensus is true when the agreement score met the threshold.
	Consensus bool `json:"consensus"`
	// Winner is the representative answer of the largest vote group.
	Winner string `json:"winner,omitempty"`
	// Agreement is |largest group| / |all votes|, in [0,1].
	Agreement float64 `json:"agreement"`
	// Votes is the full vote set considered.
	Votes []Vote `json:"votes"`
}

// ConflictSeverity tiers how serious a detected disagreement is.
type ConflictSeverity string

const (
	// SeverityLow marks disagreement where both agents were unsure.
	SeverityLow ConflictSeverity = "low"
	// SeverityMedium is the default severity.
	SeverityMedium ConflictSeverity = "medium"
	// SeverityHigh marks confident disagreement between both agents.
	SeverityHigh ConflictSeverity = "high"
)

// Conflict is a detected, explained disagreement between two agents' answers.
type Conflict struct {
	// TaskID identifies the task or question the agents disagreed on.
	TaskID string `json:"task_id"`
	// AgentA and AgentB are the disagreeing agents.
	AgentA string `json:"agent_a"`
	AgentB string `json:"agent_b"`
	// Explanation is a generated description of the disagreement.
	Explanation string `json:"explanation"`
	// Severity tiers the disagreement.
	Severity ConflictSeverity `json:"severity"`
	// Similarity is the Jaccard similarity of the two answers.
	Similarity float64 `json:"similarity"`
}
