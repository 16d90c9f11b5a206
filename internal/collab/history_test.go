package collab

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/synergyhq/synergy/pkg/models"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := NewHistory(filepath.Join(t.TempDir(), "collab.json"))
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	return h
}

func rec(req, helper string, success bool, at time.Time) models.CollaborationRecord {
	return models.CollaborationRecord{
		RequesterID: req,
		HelperID:    helper,
		Success:     success,
		Duration:    time.Minute,
		At:          at,
	}
}

func TestPairMetricsEmpty(t *testing.T) {
	h := newTestHistory(t)

	m := h.PairMetrics("a", "b")
	if m.Count != 0 || m.SuccessRate != 0 {
		t.Errorf("expected zero metrics, got %+v", m)
	}
	if m.Trend != models.TrendStable {
		t.Errorf("expected stable trend for empty pair, got %s", m.Trend)
	}
}

func TestPairMetricsAggregation(t *testing.T) {
	h := newTestHistory(t)
	base := time.Now().Add(-time.Hour)

	for i, success := range []bool{true, true, false, true} {
		if err := h.Record(rec("a", "b", success, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	// A different pair must not pollute the metrics.
	if err := h.Record(rec("a", "c", false, base)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	m := h.PairMetrics("a", "b")
	if m.Count != 4 {
		t.Fatalf("expected 4 records, got %d", m.Count)
	}
	if m.SuccessRate != 0.75 {
		t.Errorf("expected success rate 0.75, got %f", m.SuccessRate)
	}
	if m.AvgDuration != time.Minute {
		t.Errorf("expected avg duration 1m, got %s", m.AvgDuration)
	}
}

func TestTrendImproving(t *testing.T) {
	h := newTestHistory(t)
	base := time.Now().Add(-time.Hour)

	// Older half fails, recent half succeeds.
	outcomes := []bool{false, false, true, true}
	for i, success := range outcomes {
		if err := h.Record(rec("a", "b", success, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	m := h.PairMetrics("a", "b")
	if m.Trend != models.TrendImproving {
		t.Errorf("expected improving trend, got %s", m.Trend)
	}
}

func TestTrendDeclining(t *testing.T) {
	h := newTestHistory(t)
	base := time.Now().Add(-time.Hour)

	outcomes := []bool{true, true, false, false}
	for i, success := range outcomes {
		if err := h.Record(rec("a", "b", success, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	m := h.PairMetrics("a", "b")
	if m.Trend != models.TrendDeclining {
		t.Errorf("expected declining trend, got %s", m.Trend)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collab.json")
	h, err := NewHistory(path)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	if err := h.Record(rec("a", "b", true, time.Now())); err != nil {
		t.Fatalf("Record: %v", err)
	}

	reopened, err := NewHistory(path)
	if err != nil {
		t.Fatalf("reopen NewHistory: %v", err)
	}
	if reopened.Count() != 1 {
		t.Errorf("expected 1 record after reopen, got %d", reopened.Count())
	}
}

func TestBestHelpers(t *testing.T) {
	h := newTestHistory(t)
	now := time.Now()

	add := func(helper string, skill string, success bool) {
		r := rec("a", helper, success, now)
		r.Skills = []string{skill}
		if err := h.Record(r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	add("b", "Go", true)
	add("b", "go", true)
	add("c", "go", false)
	add("d", "rust", true)

	rankings := h.BestHelpers("GO")
	if len(rankings) != 2 {
		t.Fatalf("expected 2 helpers for skill go, got %d", len(rankings))
	}
	if rankings[0].HelperID != "b" || rankings[0].SuccessRate != 1.0 {
		t.Errorf("expected helper b ranked first, got %+v", rankings[0])
	}
}
