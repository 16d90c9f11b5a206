// Package bidding implements the competitive resource allocator. Candidate
// agents bid on a task with an estimated token cost and a self-assessed
// confidence; the winner is the bid with the best confidence per token
// (return on investment).
package bidding

import (
	"fmt"
	"strings"

	"github.com/synergyhq/synergy/pkg/models"
)

const (
	// baseTokens is the floor of every token estimate.
	baseTokens = 500
	// descTokenFactor scales the task description length into the estimate.
	descTokenFactor = 2
	// deliberationFactor models less proficient agents needing more
	// deliberation tokens.
	deliberationFactor = 5
)

// Bid is an agent's self-assessed cost/confidence for a task.
// Bids are derived during a scheduling pass and never persisted.
type Bid struct {
	// AgentID identifies the bidding agent.
	AgentID string
	// TokenEstimate is the estimated token/resource cost.
	TokenEstimate int
	// Confidence is the agent's confidence in [0,1].
	Confidence float64
	// Rationale is a human-readable explanation of the bid.
	Rationale string
}

// ROI returns the bid's confidence per estimated token.
func (b Bid) ROI() float64 {
	if b.TokenEstimate <= 0 {
		return 0
	}
	return b.Confidence / float64(b.TokenEstimate)
}

// SkillSatisfied reports whether an agent's skill set satisfies one required
// skill. The match is an intentionally fuzzy case-insensitive substring check
// in either direction ("frontend" satisfies "frontend testing" and vice
// versa); it is isolated here so a stricter matcher can be substituted
// without touching the bidding algorithm.
func SkillSatisfied(agentSkills []string, required string) bool {
	required = strings.ToLower(strings.TrimSpace(required))
	if required == "" {
		return false
	}
	for _, skill := range agentSkills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		if strings.Contains(skill, required) || strings.Contains(required, skill) {
			return true
		}
	}
	return false
}

// skillMatchScore is the fraction of required skills the agent satisfies.
func skillMatchScore(agent *models.OrgAgent, required []string) float64 {
	denom := len(required)
	if denom < 1 {
		denom = 1
	}
	matched := 0
	for _, req := range required {
		if SkillSatisfied(agent.Skills, req) {
			matched++
		}
	}
	return float64(matched) / float64(denom)
}

// ConductBidding computes one bid per candidate agent for the task.
func ConductBidding(task *models.Task, candidates []*models.OrgAgent) []Bid {
	bids := make([]Bid, 0, len(candidates))
	for _, agent := range candidates {
		match := skillMatchScore(agent, task.RequiredSkills)
		estimate := baseTokens +
			descTokenFactor*len(task.Description) +
			deliberationFactor*int(100-agent.SuccessRate)
		confidence := (agent.SuccessRate / 100) * (0.5 + 0.5*match)

		bids = append(bids, Bid{
			AgentID:       agent.ID,
			TokenEstimate: estimate,
			Confidence:    confidence,
			Rationale: fmt.Sprintf("%s: skill match %.0f%%, success rate %.0f%%, est. %d tokens",
				agent.Name, match*100, agent.SuccessRate, estimate),
		})
	}
	return bids
}

// HelperRank scores an agent's recorded standing for the work at hand, used
// to break ties between equal bids. A nil rank skips the history lookup.
type HelperRank func(agentID string) float64

// DetermineWinner returns the bid maximizing confidence per token. Equal-ROI
// bids resolve by rank when one is supplied, then to whichever bid comes
// first in the input order, so selection is stable and deterministic.
// Returns nil for an empty bid set; the caller must escalate or requeue.
func DetermineWinner(bids []Bid, rank HelperRank) *Bid {
	if len(bids) == 0 {
		return nil
	}
	score := func(b Bid) float64 {
		if rank == nil {
			return 0
		}
		return rank(b.AgentID)
	}
	best := 0
	for i := 1; i < len(bids); i++ {
		switch {
		case bids[i].ROI() > bids[best].ROI():
			best = i
		case bids[i].ROI() == bids[best].ROI() && score(bids[i]) > score(bids[best]):
			best = i
		}
	}
	winner := bids[best]
	return &winner
}
