package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synergyhq/synergy/pkg/models"
)

// GoalStore persists standing objectives as one JSON file.
type GoalStore struct {
	mu   sync.Mutex
	path string
}

// NewGoalStore creates a store backed by the file at path.
func NewGoalStore(path string) *GoalStore {
	return &GoalStore{path: path}
}

// Load returns all persisted goals. A missing file yields an empty slice.
func (s *GoalStore) Load() ([]models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var goals []models.Goal
	if _, err := readJSON(s.path, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// Add records a new goal and persists the store.
func (s *GoalStore) Add(text, projectID string) (models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var goals []models.Goal
	if _, err := readJSON(s.path, &goals); err != nil {
		return models.Goal{}, err
	}

	goal := models.Goal{
		ID:        uuid.New().String()[:8],
		Text:      text,
		ProjectID: projectID,
		CreatedAt: time.Now(),
	}
	goals = append(goals, goal)
	if err := writeJSON(s.path, goals); err != nil {
		return models.Goal{}, err
	}
	return goal, nil
}

// MarkDone flags a goal as achieved and persists the store.
func (s *GoalStore) MarkDone(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var goals []models.Goal
	if _, err := readJSON(s.path, &goals); err != nil {
		return err
	}
	for i := range goals {
		if goals[i].ID == id {
			goals[i].Done = true
			return writeJSON(s.path, goals)
		}
	}
	return nil
}
