package store

import (
	"sync"

	"github.com/synergyhq/synergy/pkg/models"
)

// AgentStore persists the organization's agents as one JSON file.
type AgentStore struct {
	mu   sync.Mutex
	path string
}

// NewAgentStore creates a store backed by the file at path.
func NewAgentStore(path string) *AgentStore {
	return &AgentStore{path: path}
}

// Load returns all persisted agents. A missing file yields an empty slice.
func (s *AgentStore) Load() ([]*models.OrgAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var agents []*models.OrgAgent
	if _, err := readJSON(s.path, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// Save replaces the persisted agent set.
func (s *AgentStore) Save(agents []*models.OrgAgent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path, agents)
}
