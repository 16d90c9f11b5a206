package orchestrator

import (
	"strings"

	"github.com/synergyhq/synergy/pkg/models"
)

// titleLimit bounds how much of a subtask line becomes its title.
const titleLimit = 60

// DecomposeObjective splits an objective into independent task specs.
// Each non-empty line (or semicolon-separated clause on a single line)
// becomes one task. Leading bullets and numbering are stripped. A trailing
// bracket names required skills: "migrate the schema [sql, postgres]".
// Priority is inferred from urgency keywords in the line.
//
// Subtasks carry no implicit ordering; anything that must be sequential
// should be expressed as explicit task dependencies after creation.
func DecomposeObjective(objective string) []TaskSpec {
	lines := splitObjective(objective)

	specs := make([]TaskSpec, 0, len(lines))
	for _, line := range lines {
		text, skills := extractSkills(line)
		if text == "" {
			continue
		}
		specs = append(specs, TaskSpec{
			Title:          titleOf(text),
			Description:    text,
			Priority:       inferPriority(text),
			RequiredSkills: skills,
		})
	}
	return specs
}

// splitObjective breaks the objective into candidate subtask lines.
// Multi-line input splits on newlines; single-line input splits on semicolons.
func splitObjective(objective string) []string {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return nil
	}

	var raw []string
	if strings.Contains(objective, "\n") {
		raw = strings.Split(objective, "\n")
	} else {
		raw = strings.Split(objective, ";")
	}

	var lines []string
	for _, line := range raw {
		line = stripBullet(strings.TrimSpace(line))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// stripBullet removes leading list markers: "-", "*", "1.", "2)", etc.
func stripBullet(line string) string {
	line = strings.TrimLeft(line, "-* \t")
	// Numbered prefix: digits followed by "." or ")".
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}

// extractSkills pulls a trailing "[skill, skill]" annotation off the line.
func extractSkills(line string) (text string, skills []string) {
	open := strings.LastIndex(line, "[")
	if open < 0 || !strings.HasSuffix(line, "]") {
		return line, nil
	}
	inner := line[open+1 : len(line)-1]
	for _, s := range strings.Split(inner, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			skills = append(skills, s)
		}
	}
	return strings.TrimSpace(line[:open]), skills
}

// inferPriority scans for urgency keywords. The default is medium.
func inferPriority(text string) models.TaskPriority {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "critical") || strings.Contains(lower, "emergency"):
		return models.PriorityCritical
	case strings.Contains(lower, "urgent") || strings.Contains(lower, "important") || strings.Contains(lower, "asap"):
		return models.PriorityHigh
	case strings.Contains(lower, "eventually") || strings.Contains(lower, "someday") || strings.Contains(lower, "nice to have"):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

// titleOf shortens a subtask line into a display title, breaking on a word
// boundary when possible.
func titleOf(text string) string {
	if len(text) <= titleLimit {
		return text
	}
	cut := text[:titleLimit]
	if idx := strings.LastIndex(cut, " "); idx > titleLimit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
