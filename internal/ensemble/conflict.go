package ensemble

import (
	"fmt"
	"strings"

	"github.com/synergyhq/synergy/internal/events"
	"github.com/synergyhq/synergy/pkg/models"
)

const (
	// conflictThreshold is the Jaccard similarity below which two answers
	// count as a conflict.
	conflictThreshold = 0.5
	// excerptLen bounds how much of an answer a conflict explanation quotes.
	excerptLen = 60
)

// Detector finds pairwise disagreements in a vote set.
type Detector struct {
	emitter *events.Emitter
}

// NewDetector creates a conflict detector. The emitter may be nil.
func NewDetector(emitter *events.Emitter) *Detector {
	return &Detector{emitter: emitter}
}

// Detect compares every pair of votes and returns one conflict per pair whose
// answers' word-set similarity falls below the conflict threshold. The input
// order is preserved, so the conflict list is deterministic.
func (d *Detector) Detect(taskID string, votes []models.Vote) []models.Conflict {
	var conflicts []models.Conflict
	for i := 0; i < len(votes); i++ {
		for j := i + 1; j < len(votes); j++ {
			a, b := votes[i], votes[j]
			sim := jaccard(a.Answer, b.Answer)
			if sim >= conflictThreshold {
				continue
			}
			conflict := models.Conflict{
				TaskID:      taskID,
				AgentA:      a.AgentID,
				AgentB:      b.AgentID,
				Explanation: explain(a, b, sim),
				Severity:    severityOf(a.Confidence, b.Confidence),
				Similarity:  sim,
			}
			conflicts = append(conflicts, conflict)
			if d.emitter != nil {
				d.emitter.Emit(events.Event{
					Type:    events.ConflictDetected,
					TaskID:  taskID,
					Message: conflict.Explanation,
					Metadata: map[string]interface{}{
						"agent_a":    conflict.AgentA,
						"agent_b":    conflict.AgentB,
						"severity":   string(conflict.Severity),
						"similarity": sim,
					},
				})
			}
		}
	}
	return conflicts
}

// severityOf tiers a conflict by how sure both agents were. Two confident
// agents disagreeing is the dangerous case; two unsure agents disagreeing is
// mostly noise.
func severityOf(confA, confB float64) models.ConflictSeverity {
	switch {
	case confA > 0.8 && confB > 0.8:
		return models.SeverityHigh
	case confA < 0.5 && confB < 0.5:
		return models.SeverityLow
	default:
		return models.SeverityMedium
	}
}

func explain(a, b models.Vote, sim float64) string {
	return fmt.Sprintf("agents %s and %s disagree (similarity %.2f): %q vs %q",
		a.AgentID, b.AgentID, sim, excerpt(a.Answer), excerpt(b.Answer))
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= excerptLen {
		return s
	}
	return s[:excerptLen] + "..."
}

// jaccard computes the Jaccard similarity of the lowercased word sets of two
// answers. Two empty answers are identical; one empty answer shares nothing.
func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}
