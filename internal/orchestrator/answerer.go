package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/synergyhq/synergy/internal/executor"
	"github.com/synergyhq/synergy/pkg/models"
)

// ExecutorAnswerer adapts an AgentExecutor into the ensemble's Answerer.
// Each panelist answers from a fresh prompt built only from its own profile
// and the question, so votes stay independent. The reported confidence is the
// agent's rolling success rate, scaled into [0,1].
type ExecutorAnswerer struct {
	exec executor.AgentExecutor
}

// NewExecutorAnswerer wraps exec for ensemble use.
func NewExecutorAnswerer(exec executor.AgentExecutor) *ExecutorAnswerer {
	return &ExecutorAnswerer{exec: exec}
}

// Answer asks one agent the question in isolation.
func (a *ExecutorAnswerer) Answer(ctx context.Context, agent *models.OrgAgent, question string) (string, float64, error) {
	system := agentSystemPrompt(agent) +
		"\n\nAnswer the following question on your own. Reply with the answer only, no preamble."

	// Panelists vote, they do not act; no actor is attached so every gated
	// tool call is refused.
	answer, err := a.exec.Execute(ctx, system, question, nil)
	if err != nil {
		return "", 0, err
	}
	return strings.TrimSpace(answer), agent.SuccessRate / 100, nil
}

// agentSystemPrompt renders an agent's profile into its system prompt.
func agentSystemPrompt(agent *models.OrgAgent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s", agent.Name, agent.Role)
	if agent.Department != "" {
		fmt.Fprintf(&b, " in the %s department", agent.Department)
	}
	b.WriteString(".")
	if len(agent.Skills) > 0 {
		fmt.Fprintf(&b, " Your skills: %s.", strings.Join(agent.Skills, ", "))
	}
	return b.String()
}
