package ensemble

import (
	"strings"
	"testing"

	"github.com/synergyhq/synergy/pkg/models"
)

func TestDetectFlagsDissimilarAnswers(t *testing.T) {
	d := NewDetector(nil)
	votes := []models.Vote{
		{AgentID: "a", Answer: "Use React", Confidence: 0.6},
		{AgentID: "b", Answer: "Use Vue and Redux", Confidence: 0.7},
	}

	conflicts := d.Detect("t1", votes)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	// Word sets {use,react} and {use,vue,and,redux}: 1 shared of 5 total.
	if c.Similarity < 0.19 || c.Similarity > 0.21 {
		t.Errorf("expected similarity 0.2, got %f", c.Similarity)
	}
	if c.Severity != models.SeverityMedium {
		t.Errorf("expected medium severity for mixed confidence, got %s", c.Severity)
	}
	if c.AgentA != "a" || c.AgentB != "b" {
		t.Errorf("unexpected pair: %s vs %s", c.AgentA, c.AgentB)
	}
}

func TestDetectIgnoresSimilarAnswers(t *testing.T) {
	d := NewDetector(nil)
	votes := []models.Vote{
		{AgentID: "a", Answer: "use the cache layer", Confidence: 0.9},
		{AgentID: "b", Answer: "use the cache", Confidence: 0.9},
	}
	// {use,the,cache,layer} vs {use,the,cache}: 3 shared of 4 total = 0.75.
	if conflicts := d.Detect("t1", votes); len(conflicts) != 0 {
		t.Errorf("expected no conflicts, got %d", len(conflicts))
	}
}

func TestSeverityTiers(t *testing.T) {
	cases := []struct {
		confA, confB float64
		want         models.ConflictSeverity
	}{
		{0.9, 0.85, models.SeverityHigh},
		{0.4, 0.3, models.SeverityLow},
		{0.9, 0.4, models.SeverityMedium},
		{0.8, 0.8, models.SeverityMedium}, // boundary is exclusive
		{0.5, 0.5, models.SeverityMedium},
	}
	for _, c := range cases {
		if got := severityOf(c.confA, c.confB); got != c.want {
			t.Errorf("severityOf(%v, %v) = %s, want %s", c.confA, c.confB, got, c.want)
		}
	}
}

func TestDetectPairwiseAcrossThreeVotes(t *testing.T) {
	d := NewDetector(nil)
	votes := []models.Vote{
		{AgentID: "a", Answer: "alpha", Confidence: 0.9},
		{AgentID: "b", Answer: "beta", Confidence: 0.9},
		{AgentID: "c", Answer: "gamma", Confidence: 0.9},
	}
	conflicts := d.Detect("t1", votes)
	if len(conflicts) != 3 {
		t.Fatalf("expected 3 pairwise conflicts, got %d", len(conflicts))
	}
	for _, c := range conflicts {
		if c.Severity != models.SeverityHigh {
			t.Errorf("expected high severity, got %s", c.Severity)
		}
	}
}

func TestExplanationTruncatesLongAnswers(t *testing.T) {
	d := NewDetector(nil)
	long := strings.Repeat("x", 200)
	votes := []models.Vote{
		{AgentID: "a", Answer: long, Confidence: 0.6},
		{AgentID: "b", Answer: "short", Confidence: 0.6},
	}
	conflicts := d.Detect("t1", votes)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if !strings.Contains(conflicts[0].Explanation, strings.Repeat("x", excerptLen)+"...") {
		t.Error("expected long answer truncated in explanation")
	}
	if strings.Contains(conflicts[0].Explanation, strings.Repeat("x", excerptLen+1)) {
		t.Error("expected no more than the excerpt length quoted")
	}
}

func TestJaccardEdgeCases(t *testing.T) {
	if sim := jaccard("", ""); sim != 1 {
		t.Errorf("expected identical empty answers, got %f", sim)
	}
	if sim := jaccard("something", ""); sim != 0 {
		t.Errorf("expected no similarity to an empty answer, got %f", sim)
	}
	if sim := jaccard("Same Words", "same words"); sim != 1 {
		t.Errorf("expected case-insensitive identity, got %f", sim)
	}
}
