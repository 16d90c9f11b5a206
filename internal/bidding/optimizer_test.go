package bidding

import (
	"testing"

	"github.com/synergyhq/synergy/pkg/models"
)

func agent(id string, successRate float64, skills ...string) *models.OrgAgent {
	return &models.OrgAgent{ID: id, Name: id, SuccessRate: successRate, Skills: skills}
}

func TestSkillSatisfied(t *testing.T) {
	cases := []struct {
		skills   []string
		required string
		want     bool
	}{
		{[]string{"frontend"}, "Frontend Testing", true},
		{[]string{"frontend testing"}, "frontend", true},
		{[]string{"Go", "sql"}, "golang", false},
		{[]string{"golang"}, "go", true},
		{[]string{}, "go", false},
		{[]string{"go"}, "", false},
	}
	for _, c := range cases {
		if got := SkillSatisfied(c.skills, c.required); got != c.want {
			t.Errorf("SkillSatisfied(%v, %q) = %v, want %v", c.skills, c.required, got, c.want)
		}
	}
}

func TestConductBiddingFormulas(t *testing.T) {
	task := &models.Task{
		Description:    "write handler", // 13 chars
		RequiredSkills: []string{"go", "http"},
	}
	a := agent("a", 80, "golang") // satisfies "go" only

	bids := ConductBidding(task, []*models.OrgAgent{a})
	if len(bids) != 1 {
		t.Fatalf("expected 1 bid, got %d", len(bids))
	}
	b := bids[0]

	// 500 + 2*13 + 5*(100-80) = 626
	if b.TokenEstimate != 626 {
		t.Errorf("expected token estimate 626, got %d", b.TokenEstimate)
	}
	// (80/100) * (0.5 + 0.5*0.5) = 0.6
	if b.Confidence < 0.599 || b.Confidence > 0.601 {
		t.Errorf("expected confidence 0.6, got %f", b.Confidence)
	}
}

func TestConductBiddingNoRequiredSkills(t *testing.T) {
	task := &models.Task{Description: "x"}
	bids := ConductBidding(task, []*models.OrgAgent{agent("a", 100)})

	// With nothing required, skill match contributes zero; confidence
	// collapses to half the success rate.
	if bids[0].Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %f", bids[0].Confidence)
	}
}

func TestDetermineWinnerPrefersROI(t *testing.T) {
	// A cheaper, less confident bid beats an expensive confident one when
	// its confidence per token is higher: 0.4/100 > 0.8/500.
	bids := []Bid{
		{AgentID: "confident", Confidence: 0.8, TokenEstimate: 500},
		{AgentID: "cheap", Confidence: 0.4, TokenEstimate: 100},
	}
	winner := DetermineWinner(bids, nil)
	if winner == nil || winner.AgentID != "cheap" {
		t.Fatalf("expected cheap bid to win, got %+v", winner)
	}
}

func TestDetermineWinnerStableTiebreak(t *testing.T) {
	bids := []Bid{
		{AgentID: "first", Confidence: 0.5, TokenEstimate: 100},
		{AgentID: "second", Confidence: 0.5, TokenEstimate: 100},
	}
	if w := DetermineWinner(bids, nil); w.AgentID != "first" {
		t.Errorf("expected first-seen bid to win the tie, got %s", w.AgentID)
	}
}

func TestDetermineWinnerRankBreaksTies(t *testing.T) {
	bids := []Bid{
		{AgentID: "unproven", Confidence: 0.5, TokenEstimate: 100},
		{AgentID: "proven", Confidence: 0.5, TokenEstimate: 100},
	}
	rank := func(agentID string) float64 {
		if agentID == "proven" {
			return 0.9
		}
		return 0
	}
	if w := DetermineWinner(bids, rank); w.AgentID != "proven" {
		t.Errorf("expected ranked helper to win the tie, got %s", w.AgentID)
	}

	// Rank only arbitrates ties; a better ROI still wins outright.
	bids[0].TokenEstimate = 50
	if w := DetermineWinner(bids, rank); w.AgentID != "unproven" {
		t.Errorf("expected higher ROI to beat rank, got %s", w.AgentID)
	}
}

func TestDetermineWinnerEmpty(t *testing.T) {
	if w := DetermineWinner(nil, nil); w != nil {
		t.Errorf("expected nil winner for empty bids, got %+v", w)
	}
}

func TestNegotiateProvider(t *testing.T) {
	providers := []Provider{
		{Name: "rust-specialist", Class: "standard"},
		{Name: "atlas", Class: "premium"},
		{Name: "hydra", Class: "standard", MultiSkill: true},
	}

	cases := []struct {
		name string
		task *models.Task
		want string
	}{
		{
			name: "specialist name match wins",
			task: &models.Task{Priority: models.PriorityCritical, RequiredSkills: []string{"rust"}},
			want: "rust-specialist",
		},
		{
			name: "critical routes to premium class",
			task: &models.Task{Priority: models.PriorityCritical, RequiredSkills: []string{"go"}},
			want: "atlas",
		},
		{
			name: "broad skill set routes to multi-skill provider",
			task: &models.Task{Priority: models.PriorityLow, RequiredSkills: []string{"go", "sql", "css", "docs"}},
			want: "hydra",
		},
		{
			name: "fallback to default",
			task: &models.Task{Priority: models.PriorityLow, RequiredSkills: []string{"go"}},
			want: "fallback",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := NegotiateProvider(c.task, providers, "fallback"); got != c.want {
				t.Errorf("NegotiateProvider = %q, want %q", got, c.want)
			}
		})
	}
}
