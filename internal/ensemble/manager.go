// Package ensemble validates high-stakes answers by asking several agents the
// same question independently and measuring how much they agree.
package ensemble

import (
	"context"
	"log"
	"strings"

	"github.com/synergyhq/synergy/internal/events"
	"github.com/synergyhq/synergy/pkg/models"
)

const (
	// defaultMinAgents is the smallest panel an ensemble check will run with
	// unless the caller configures otherwise.
	defaultMinAgents = 3
	// consensusThreshold is the agreement score required for consensus.
	consensusThreshold = 0.6
)

// Answerer produces one agent's independent answer to a question.
// Implementations must not share conversation state between agents; each
// answer has to be formed in isolation for the vote to mean anything.
type Answerer interface {
	Answer(ctx context.Context, agent *models.OrgAgent, question string) (answer string, confidence float64, err error)
}

// Manager runs ensemble checks and reports consensus results.
type Manager struct {
	answerer  Answerer
	emitter   *events.Emitter
	minAgents int
}

// NewManager creates an ensemble manager. The emitter may be nil; a minAgents
// below one falls back to the default panel size.
func NewManager(answerer Answerer, emitter *events.Emitter, minAgents int) *Manager {
	if minAgents < 1 {
		minAgents = defaultMinAgents
	}
	return &Manager{answerer: answerer, emitter: emitter, minAgents: minAgents}
}

// Check asks every agent the question independently and aggregates the votes.
// A panel below the configured minimum cannot form a meaningful vote: the
// result reports no consensus with zero votes and no agent is invoked. Agents
// whose answer errors are skipped; their absence lowers the vote count, not
// the score.
func (m *Manager) Check(ctx context.Context, taskID, question string, agents []*models.OrgAgent) (*models.EnsembleResult, error) {
	result := &models.EnsembleResult{TaskID: taskID}

	if len(agents) < m.minAgents {
		m.emitConsensus(result, "panel too small")
		return result, nil
	}

	for _, agent := range agents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		answer, confidence, err := m.answerer.Answer(ctx, agent, question)
		if err != nil {
			log.Printf("[ensemble] agent %s failed to answer, skipping: %v", agent.ID, err)
			continue
		}
		result.Votes = append(result.Votes, models.Vote{
			AgentID:    agent.ID,
			Answer:     answer,
			Confidence: confidence,
		})
	}

	if len(result.Votes) == 0 {
		m.emitConsensus(result, "no usable votes")
		return result, nil
	}

	winner, agreement := tally(result.Votes)
	result.Winner = winner
	result.Agreement = agreement
	result.Consensus = agreement >= consensusThreshold

	m.emitConsensus(result, "")
	return result, nil
}

// tally groups votes by normalized answer and returns the representative
// answer of the largest group plus its share of all votes. The representative
// is the first vote's original (untrimmed-case) answer so the caller sees what
// an agent actually said. Group order follows first appearance, which makes
// the winner deterministic when groups tie.
func tally(votes []models.Vote) (winner string, agreement float64) {
	type group struct {
		representative string
		count          int
	}
	byAnswer := make(map[string]*group)
	var order []string

	for _, v := range votes {
		key := strings.ToLower(strings.TrimSpace(v.Answer))
		g := byAnswer[key]
		if g == nil {
			g = &group{representative: strings.TrimSpace(v.Answer)}
			byAnswer[key] = g
			order = append(order, key)
		}
		g.count++
	}

	best := byAnswer[order[0]]
	for _, key := range order[1:] {
		if byAnswer[key].count > best.count {
			best = byAnswer[key]
		}
	}
	return best.representative, float64(best.count) / float64(len(votes))
}

func (m *Manager) emitConsensus(result *models.EnsembleResult, note string) {
	if m.emitter == nil {
		return
	}
	eventType := events.ConsensusReached
	if !result.Consensus {
		eventType = events.ConsensusFailed
	}
	m.emitter.Emit(events.Event{
		Type:    eventType,
		TaskID:  result.TaskID,
		Message: note,
		Metadata: map[string]interface{}{
			"agreement": result.Agreement,
			"votes":     len(result.Votes),
			"winner":    result.Winner,
		},
	})
}
