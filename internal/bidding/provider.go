package bidding

import (
	"strings"

	"github.com/synergyhq/synergy/pkg/models"
)

// PreferredClass is the provider class used for critical and high priority
// tasks when no specialist matches.
const PreferredClass = "premium"

// Provider is one configured LLM provider a task can be routed to.
type Provider struct {
	// Name is the provider's display name, matched against task skills.
	Name string `mapstructure:"name"`
	// Class groups providers by capability tier (e.g. "premium", "standard").
	Class string `mapstructure:"class"`
	// MultiSkill marks providers known to handle multi-skill breadth well.
	MultiSkill bool `mapstructure:"multi_skill"`
}

// NegotiateProvider selects which provider configuration should execute a
// task. Preference order: a specialist whose name matches a required skill,
// then the preferred class for critical/high priority, then a multi-skill
// provider for tasks needing more than three distinct skills, then the
// configured default.
func NegotiateProvider(task *models.Task, providers []Provider, defaultName string) string {
	// Specialist match: provider display name vs required skills.
	for _, p := range providers {
		name := strings.ToLower(p.Name)
		for _, skill := range task.RequiredSkills {
			skill = strings.ToLower(strings.TrimSpace(skill))
			if skill == "" {
				continue
			}
			if strings.Contains(name, skill) || strings.Contains(skill, name) {
				return p.Name
			}
		}
	}

	if task.Priority == models.PriorityCritical || task.Priority == models.PriorityHigh {
		for _, p := range providers {
			if p.Class == PreferredClass {
				return p.Name
			}
		}
	}

	if len(distinctSkills(task.RequiredSkills)) > 3 {
		for _, p := range providers {
			if p.MultiSkill {
				return p.Name
			}
		}
	}

	return defaultName
}

// distinctSkills returns the set of distinct, normalized skills.
func distinctSkills(skills []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
