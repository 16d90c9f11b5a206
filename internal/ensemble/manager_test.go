package ensemble

import (
	"context"
	"errors"
	"testing"

	"github.com/synergyhq/synergy/pkg/models"
)

// stubAnswerer returns canned answers keyed by agent ID.
type stubAnswerer struct {
	answers map[string]string
	conf    map[string]float64
	fail    map[string]bool
	calls   int
}

func (s *stubAnswerer) Answer(_ context.Context, agent *models.OrgAgent, _ string) (string, float64, error) {
	s.calls++
	if s.fail[agent.ID] {
		return "", 0, errors.New("provider unavailable")
	}
	conf := s.conf[agent.ID]
	if conf == 0 {
		conf = 0.9
	}
	return s.answers[agent.ID], conf, nil
}

func panel(ids ...string) []*models.OrgAgent {
	agents := make([]*models.OrgAgent, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, &models.OrgAgent{ID: id, Name: id})
	}
	return agents
}

func TestCheckMajorityConsensus(t *testing.T) {
	stub := &stubAnswerer{answers: map[string]string{"a": "yes", "b": "Yes ", "c": "no"}}
	m := NewManager(stub, nil, 0)

	result, err := m.Check(context.Background(), "t1", "ship it?", panel("a", "b", "c"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Consensus {
		t.Error("expected consensus at 2/3 agreement")
	}
	if result.Agreement < 0.66 || result.Agreement > 0.67 {
		t.Errorf("expected agreement 0.667, got %f", result.Agreement)
	}
	if result.Winner != "yes" {
		t.Errorf("expected winner yes, got %q", result.Winner)
	}
	if len(result.Votes) != 3 {
		t.Errorf("expected 3 votes, got %d", len(result.Votes))
	}
}

func TestCheckThreeWaySplitFails(t *testing.T) {
	stub := &stubAnswerer{answers: map[string]string{"a": "red", "b": "green", "c": "blue"}}
	m := NewManager(stub, nil, 0)

	result, err := m.Check(context.Background(), "t1", "pick a color", panel("a", "b", "c"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Consensus {
		t.Error("expected no consensus at 1/3 agreement")
	}
}

func TestCheckPanelTooSmall(t *testing.T) {
	stub := &stubAnswerer{answers: map[string]string{"a": "yes", "b": "yes"}}
	m := NewManager(stub, nil, 0)

	result, err := m.Check(context.Background(), "t1", "ship it?", panel("a", "b"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Consensus {
		t.Error("expected no consensus for an undersized panel")
	}
	if len(result.Votes) != 0 {
		t.Errorf("expected zero votes, got %d", len(result.Votes))
	}
	if stub.calls != 0 {
		t.Errorf("expected no agents invoked, got %d calls", stub.calls)
	}
}

func TestCheckConfigurableMinimumPanel(t *testing.T) {
	stub := &stubAnswerer{answers: map[string]string{"a": "yes", "b": "yes"}}

	// A two-agent panel is enough when the minimum is lowered to two.
	m := NewManager(stub, nil, 2)
	result, err := m.Check(context.Background(), "t1", "ship it?", panel("a", "b"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Consensus || len(result.Votes) != 2 {
		t.Errorf("two-agent panel with min 2 should vote, got %+v", result)
	}

	// Raising the minimum above the panel size refuses the vote.
	strict := NewManager(stub, nil, 5)
	result, err = strict.Check(context.Background(), "t1", "ship it?", panel("a", "b", "c"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Consensus || len(result.Votes) != 0 {
		t.Errorf("three-agent panel with min 5 should not vote, got %+v", result)
	}
}

func TestCheckSkipsFailedAgents(t *testing.T) {
	stub := &stubAnswerer{
		answers: map[string]string{"a": "yes", "b": "yes"},
		fail:    map[string]bool{"c": true},
	}
	m := NewManager(stub, nil, 0)

	result, err := m.Check(context.Background(), "t1", "ship it?", panel("a", "b", "c"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(result.Votes) != 2 {
		t.Fatalf("expected 2 votes with one agent down, got %d", len(result.Votes))
	}
	// 2/2 remaining votes agree.
	if !result.Consensus || result.Agreement != 1.0 {
		t.Errorf("expected full agreement of surviving votes, got %+v", result)
	}
}

func TestCheckAllAgentsFail(t *testing.T) {
	stub := &stubAnswerer{fail: map[string]bool{"a": true, "b": true, "c": true}}
	m := NewManager(stub, nil, 0)

	result, err := m.Check(context.Background(), "t1", "ship it?", panel("a", "b", "c"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Consensus || len(result.Votes) != 0 {
		t.Errorf("expected empty no-consensus result, got %+v", result)
	}
}

func TestCheckHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(&stubAnswerer{}, nil, 0)
	if _, err := m.Check(ctx, "t1", "q", panel("a", "b", "c")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
