package store

import (
	"sync"

	"github.com/synergyhq/synergy/pkg/models"
)

// ProjectSnapshot is the on-disk shape of the tasks/projects store.
type ProjectSnapshot struct {
	Projects []*models.Project `json:"projects"`
	Tasks    []*models.Task    `json:"tasks"`
}

// ProjectStore persists projects and their tasks as one JSON file.
type ProjectStore struct {
	mu   sync.Mutex
	path string
}

// NewProjectStore creates a store backed by the file at path.
func NewProjectStore(path string) *ProjectStore {
	return &ProjectStore{path: path}
}

// Load returns the persisted snapshot. A missing file yields an empty one.
func (s *ProjectStore) Load() (*ProjectSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &ProjectSnapshot{}
	if _, err := readJSON(s.path, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save replaces the persisted snapshot.
func (s *ProjectStore) Save(snap *ProjectSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path, snap)
}
