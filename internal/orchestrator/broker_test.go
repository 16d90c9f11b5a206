package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/synergyhq/synergy/pkg/models"
)

func newTestBroker(t *testing.T, timeout time.Duration) *DecisionBroker {
	t.Helper()
	b, err := NewDecisionBroker(timeout, t.TempDir(), nil, NopLogger())
	if err != nil {
		t.Fatalf("new broker: %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

func TestBrokerResolveWakesWaiter(t *testing.T) {
	b := newTestBroker(t, 10*time.Second)
	d := b.Raise(models.DecisionBudget, "agent-1", "task-1", "buy more tokens", models.PriorityHigh)

	done := make(chan Resolution, 1)
	go func() {
		res, err := b.Await(context.Background(), d.ID)
		if err != nil {
			t.Errorf("await: %v", err)
		}
		done <- res
	}()

	// Await returns the stored resolution even if we win this race.
	time.Sleep(20 * time.Millisecond)
	if err := b.Resolve(d.ID, true, "approved by cfo"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	select {
	case res := <-done:
		if !res.Approved || res.Status != models.DecisionApproved {
			t.Fatalf("unexpected resolution: %+v", res)
		}
		if res.Reason != "approved by cfo" {
			t.Fatalf("reason = %q", res.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestBrokerTimeoutEscalatesNeverApproves(t *testing.T) {
	b := newTestBroker(t, 50*time.Millisecond)
	d := b.Raise(models.DecisionSecurity, "agent-1", "task-1", "delete production data", models.PriorityCritical)

	res, err := b.Await(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if res.Approved {
		t.Fatal("timed-out decision must not be approved")
	}
	if res.Status != models.DecisionEscalated {
		t.Fatalf("status = %s, want escalated", res.Status)
	}

	stored := b.Get(d.ID)
	if stored.Status != models.DecisionEscalated || stored.ResolvedAt == nil {
		t.Fatalf("stored decision not escalated: %+v", stored)
	}
}

func TestBrokerResolvedDecisionIsImmutable(t *testing.T) {
	b := newTestBroker(t, time.Second)
	d := b.Raise(models.DecisionHire, "agent-1", "", "hire a reviewer", models.PriorityMedium)

	if err := b.Resolve(d.ID, false, "headcount frozen"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	err := b.Resolve(d.ID, true, "changed my mind")
	if !errors.Is(err, ErrDecisionResolved) {
		t.Fatalf("expected ErrDecisionResolved, got %v", err)
	}
	if got := b.Get(d.ID); got.Status != models.DecisionRejected || got.Reason != "headcount frozen" {
		t.Fatalf("resolution mutated: %+v", got)
	}
}

func TestBrokerAwaitAfterResolution(t *testing.T) {
	b := newTestBroker(t, time.Second)
	d := b.Raise(models.DecisionStrategic, "agent-1", "task-9", "switch framework", models.PriorityLow)
	if err := b.Resolve(d.ID, true, "go ahead"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	res, err := b.Await(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if !res.Approved {
		t.Fatalf("expected approved resolution, got %+v", res)
	}
}

func TestBrokerSecondWaiterRejected(t *testing.T) {
	b := newTestBroker(t, 10*time.Second)
	d := b.Raise(models.DecisionBudget, "agent-1", "task-1", "spend", models.PriorityMedium)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	go func() {
		close(started)
		b.Await(ctx, d.ID)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	_, err := b.Await(context.Background(), d.ID)
	if !errors.Is(err, ErrWaiterRegistered) {
		t.Fatalf("expected ErrWaiterRegistered, got %v", err)
	}
}

func TestBrokerUnknownDecision(t *testing.T) {
	b := newTestBroker(t, time.Second)
	if err := b.Resolve("nope", true, ""); !errors.Is(err, ErrDecisionNotFound) {
		t.Fatalf("expected ErrDecisionNotFound, got %v", err)
	}
	if _, err := b.Await(context.Background(), "nope"); !errors.Is(err, ErrDecisionNotFound) {
		t.Fatalf("expected ErrDecisionNotFound, got %v", err)
	}
}

func TestBrokerSpoolFileResolvesDecision(t *testing.T) {
	spool := t.TempDir()
	b, err := NewDecisionBroker(10*time.Second, spool, nil, NopLogger())
	if err != nil {
		t.Fatalf("new broker: %v", err)
	}
	defer b.Close()

	d := b.Raise(models.DecisionVaultAccess, "agent-2", "task-3", "read deploy key", models.PriorityHigh)

	done := make(chan Resolution, 1)
	go func() {
		res, err := b.Await(context.Background(), d.ID)
		if err != nil {
			t.Errorf("await: %v", err)
		}
		done <- res
	}()
	time.Sleep(20 * time.Millisecond)

	path := filepath.Join(spool, d.ID+".approve")
	if err := os.WriteFile(path, []byte("verified by oncall"), 0644); err != nil {
		t.Fatalf("write spool file: %v", err)
	}

	select {
	case res := <-done:
		if !res.Approved {
			t.Fatalf("expected approval, got %+v", res)
		}
		if res.Reason != "verified by oncall" {
			t.Fatalf("reason = %q", res.Reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("spool resolution never arrived")
	}

	// The consumed file must be gone so it cannot resolve twice.
	waitFor(t, 2*time.Second, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	})
}

func TestBrokerPendingSortedOldestFirst(t *testing.T) {
	b := newTestBroker(t, time.Second)
	first := b.Raise(models.DecisionBudget, "a", "", "first", models.PriorityLow)
	time.Sleep(2 * time.Millisecond)
	b.Raise(models.DecisionBudget, "a", "", "second", models.PriorityLow)

	pending := b.Pending()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].ID != first.ID {
		t.Fatal("pending not sorted oldest first")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}
