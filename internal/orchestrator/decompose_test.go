package orchestrator

import (
	"testing"

	"github.com/synergyhq/synergy/pkg/models"
)

func TestDecomposeMultilineObjective(t *testing.T) {
	specs := DecomposeObjective("- set up the database\n- build the API\n- write the docs")
	if len(specs) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(specs))
	}
	if specs[0].Description != "set up the database" {
		t.Fatalf("bullet not stripped: %q", specs[0].Description)
	}
}

func TestDecomposeSemicolonObjective(t *testing.T) {
	specs := DecomposeObjective("set up the database; build the API")
	if len(specs) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(specs))
	}
}

func TestDecomposeNumberedLines(t *testing.T) {
	specs := DecomposeObjective("1. first step\n2) second step")
	if len(specs) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(specs))
	}
	if specs[0].Description != "first step" || specs[1].Description != "second step" {
		t.Fatalf("numbering not stripped: %q, %q", specs[0].Description, specs[1].Description)
	}
}

func TestDecomposeSkillAnnotation(t *testing.T) {
	specs := DecomposeObjective("migrate the schema [sql, postgres]")
	if len(specs) != 1 {
		t.Fatalf("expected 1 task, got %d", len(specs))
	}
	if specs[0].Description != "migrate the schema" {
		t.Fatalf("annotation not removed: %q", specs[0].Description)
	}
	if len(specs[0].RequiredSkills) != 2 || specs[0].RequiredSkills[0] != "sql" || specs[0].RequiredSkills[1] != "postgres" {
		t.Fatalf("skills not parsed: %v", specs[0].RequiredSkills)
	}
}

func TestDecomposePriorityKeywords(t *testing.T) {
	cases := []struct {
		line string
		want models.TaskPriority
	}{
		{"fix the critical login outage", models.PriorityCritical},
		{"urgent: rotate the leaked key", models.PriorityHigh},
		{"tidy up the readme eventually", models.PriorityLow},
		{"add pagination to the list endpoint", models.PriorityMedium},
	}
	for _, tc := range cases {
		specs := DecomposeObjective(tc.line)
		if len(specs) != 1 {
			t.Fatalf("%q: expected 1 task, got %d", tc.line, len(specs))
		}
		if specs[0].Priority != tc.want {
			t.Errorf("%q: priority = %s, want %s", tc.line, specs[0].Priority, tc.want)
		}
	}
}

func TestDecomposeEmptyObjective(t *testing.T) {
	if specs := DecomposeObjective("   \n  \n"); len(specs) != 0 {
		t.Fatalf("expected no tasks, got %d", len(specs))
	}
}

func TestDecomposeLongLineTitle(t *testing.T) {
	long := "implement the full reconciliation pipeline including retries, backoff, and idempotency keys for every downstream consumer"
	specs := DecomposeObjective(long)
	if len(specs) != 1 {
		t.Fatalf("expected 1 task, got %d", len(specs))
	}
	if len(specs[0].Title) > titleLimit+3 {
		t.Fatalf("title too long: %q", specs[0].Title)
	}
	if specs[0].Description != long {
		t.Fatal("description should keep the full line")
	}
}
