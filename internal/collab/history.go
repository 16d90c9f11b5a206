// Package collab records agent-pair task outcomes and computes routing-quality
// metrics from them. The store is a plain JSON file, independently readable.
package collab

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/synergyhq/synergy/pkg/models"
)

// History is the collaboration-history store.
type History struct {
	mu      sync.Mutex
	path    string
	records []models.CollaborationRecord
}

// NewHistory opens (or creates) the collaboration store at path.
func NewHistory(path string) (*History, error) {
	h := &History{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, fmt.Errorf("read collaboration store: %w", err)
	}
	if err := json.Unmarshal(data, &h.records); err != nil {
		return nil, fmt.Errorf("parse collaboration store: %w", err)
	}
	return h, nil
}

// Record appends one collaboration outcome and persists the store.
func (h *History) Record(rec models.CollaborationRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return h.saveLocked()
}

// saveLocked persists the store atomically. Caller must hold h.mu.
func (h *History) saveLocked() error {
	data, err := json.MarshalIndent(h.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collaboration store: %w", err)
	}
	if dir := filepath.Dir(h.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write collaboration store: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		return fmt.Errorf("replace collaboration store: %w", err)
	}
	return nil
}

// Count returns the number of recorded collaborations.
func (h *History) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// PairMetrics aggregates the history of one requester/helper pair.
// A pair with no history returns zero-valued metrics with a stable trend.
func (h *History) PairMetrics(requesterID, helperID string) models.PairMetrics {
	h.mu.Lock()
	defer h.mu.Unlock()

	var pair []models.CollaborationRecord
	for _, r := range h.records {
		if r.RequesterID == requesterID && r.HelperID == helperID {
			pair = append(pair, r)
		}
	}

	metrics := models.PairMetrics{
		RequesterID: requesterID,
		HelperID:    helperID,
		Count:       len(pair),
		Trend:       models.TrendStable,
	}
	if len(pair) == 0 {
		return metrics
	}

	sort.SliceStable(pair, func(i, j int) bool { return pair[i].At.Before(pair[j].At) })

	var successes int
	var total time.Duration
	for _, r := range pair {
		if r.Success {
			successes++
		}
		total += r.Duration
	}
	metrics.SuccessRate = float64(successes) / float64(len(pair))
	metrics.AvgDuration = total / time.Duration(len(pair))
	metrics.Trend = trendOf(pair)

	return metrics
}

// trendOf compares the success rate of the recent half of the history against
// the older half. Fewer than four records is always stable.
func trendOf(pair []models.CollaborationRecord) models.Trend {
	if len(pair) < 4 {
		return models.TrendStable
	}

	mid := len(pair) / 2
	older, recent := pair[:mid], pair[mid:]

	rate := func(rs []models.CollaborationRecord) float64 {
		var ok int
		for _, r := range rs {
			if r.Success {
				ok++
			}
		}
		return float64(ok) / float64(len(rs))
	}

	diff := rate(recent) - rate(older)
	switch {
	case diff > 0.1:
		return models.TrendImproving
	case diff < -0.1:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// HelperRanking is one helper's aggregate standing for a skill.
type HelperRanking struct {
	HelperID    string
	Count       int
	SuccessRate float64
}

// BestHelpers ranks helpers that have worked on tasks requiring the given
// skill, best success rate first. Skill matching is case-insensitive.
func (h *History) BestHelpers(skill string) []HelperRanking {
	h.mu.Lock()
	defer h.mu.Unlock()

	skill = strings.ToLower(skill)
	type agg struct{ count, ok int }
	byHelper := make(map[string]*agg)
	for _, r := range h.records {
		matched := false
		for _, s := range r.Skills {
			if strings.ToLower(s) == skill {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		a := byHelper[r.HelperID]
		if a == nil {
			a = &agg{}
			byHelper[r.HelperID] = a
		}
		a.count++
		if r.Success {
			a.ok++
		}
	}

	rankings := make([]HelperRanking, 0, len(byHelper))
	for id, a := range byHelper {
		rankings = append(rankings, HelperRanking{
			HelperID:    id,
			Count:       a.count,
			SuccessRate: float64(a.ok) / float64(a.count),
		})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].SuccessRate != rankings[j].SuccessRate {
			return rankings[i].SuccessRate > rankings[j].SuccessRate
		}
		return rankings[i].Count > rankings[j].Count
	})
	return rankings
}
