// Package rollback backs up file content before mutation and restores it on
// demand. Backups live in a dedicated directory with a JSON index; the captured
// content is also stored inline in each entry, so a rollback does not require
// the backup file to still exist.
package rollback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synergyhq/synergy/internal/events"
	"github.com/synergyhq/synergy/pkg/models"
)

const (
	// maxBackupSize caps a single backup; oversized files are rejected
	// rather than silently truncated.
	maxBackupSize = 100 * 1024 * 1024
	// retention is how long entries and backup files are kept.
	retention = 7 * 24 * time.Hour
	// indexFile is the name of the JSON index within the backup directory.
	indexFile = "index.json"
)

// ErrBackupTooLarge is returned when a file exceeds the backup size cap.
var ErrBackupTooLarge = errors.New("file exceeds backup size limit")

// ErrAlreadyRolledBack is returned when an entry has already been restored.
var ErrAlreadyRolledBack = errors.New("entry already rolled back")

// ErrNotEligible is returned when an entry is not flagged for rollback.
var ErrNotEligible = errors.New("entry not eligible for rollback")

// ErrEntryNotFound is returned when no entry has the requested ID.
var ErrEntryNotFound = errors.New("rollback entry not found")

// Manager captures pre-mutation snapshots and restores them on demand.
type Manager struct {
	mu      sync.Mutex
	dir     string
	entries []*models.RollbackEntry
	emitter *events.Emitter

	// now is injectable for tests.
	now func() time.Time
}

// NewManager creates a Manager storing backups under dir and immediately runs
// TTL cleanup of entries left over from previous runs.
func NewManager(dir string, emitter *events.Emitter) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	m := &Manager{
		dir:     dir,
		emitter: emitter,
		now:     time.Now,
	}
	if err := m.loadIndex(); err != nil {
		return nil, err
	}
	if err := m.Cleanup(); err != nil {
		return nil, err
	}
	return m, nil
}

// loadIndex reads the persisted entry index, if present.
func (m *Manager) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(m.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read rollback index: %w", err)
	}
	if err := json.Unmarshal(data, &m.entries); err != nil {
		return fmt.Errorf("parse rollback index: %w", err)
	}
	return nil
}

// saveIndexLocked persists the entry index. Caller must hold m.mu.
func (m *Manager) saveIndexLocked() error {
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rollback index: %w", err)
	}
	tmp := filepath.Join(m.dir, indexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write rollback index: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(m.dir, indexFile)); err != nil {
		return fmt.Errorf("replace rollback index: %w", err)
	}
	return nil
}

// BackupFile snapshots the current content of path before a known mutation.
// The action parameter records what kind of mutation the backup precedes.
func (m *Manager) BackupFile(path, action string) (*models.RollbackEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > maxBackupSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, info.Size(), ErrBackupTooLarge)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	now := m.now()
	id := uuid.New().String()[:8]
	backupName := fmt.Sprintf("%s-%s%s", now.Format("20060102-150405"), id, filepath.Ext(path))
	backupPath := filepath.Join(m.dir, backupName)
	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}

	entry := &models.RollbackEntry{
		ID:          id,
		Timestamp:   now,
		Action:      action,
		Path:        path,
		BackupPath:  backupPath,
		Original:    string(content),
		CanRollback: true,
	}

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	err = m.saveIndexLocked()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if m.emitter != nil {
		m.emitter.Emit(events.Event{
			Type:    events.RollbackPreview,
			Message: fmt.Sprintf("backed up %s before %s", path, action),
			Metadata: map[string]interface{}{
				"entry_id":    entry.ID,
				"backup_path": backupPath,
			},
		})
	}

	return entry, nil
}

// Rollback restores the captured original content of an entry to its target
// path. An entry can be restored at most once from the same snapshot.
func (m *Manager) Rollback(entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entry *models.RollbackEntry
	for _, e := range m.entries {
		if e.ID == entryID {
			entry = e
			break
		}
	}
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	if !entry.CanRollback {
		return fmt.Errorf("%w: %s", ErrNotEligible, entryID)
	}
	if entry.RolledBack {
		return fmt.Errorf("%w: %s", ErrAlreadyRolledBack, entryID)
	}

	if err := os.WriteFile(entry.Path, []byte(entry.Original), 0644); err != nil {
		return fmt.Errorf("restore %s: %w", entry.Path, err)
	}

	entry.RolledBack = true
	if err := m.saveIndexLocked(); err != nil {
		return err
	}

	if m.emitter != nil {
		m.emitter.Emit(events.Event{
			Type:    events.RollbackRestored,
			Message: fmt.Sprintf("restored %s from backup %s", entry.Path, entry.ID),
			Metadata: map[string]interface{}{
				"entry_id": entry.ID,
			},
		})
	}

	return nil
}

// Get returns the entry with the given ID, or nil.
func (m *Manager) Get(entryID string) *models.RollbackEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == entryID {
			copy := *e
			return &copy
		}
	}
	return nil
}

// List returns copies of all entries, newest first.
func (m *Manager) List() []models.RollbackEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RollbackEntry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		out = append(out, *m.entries[i])
	}
	return out
}

// Cleanup removes entries and backup files older than the retention window.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-retention)
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Timestamp.Before(cutoff) {
			// Backup file may already be gone; the index entry is authoritative.
			_ = os.Remove(e.BackupPath)
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == len(m.entries) {
		m.entries = kept
		return nil
	}
	m.entries = kept
	return m.saveIndexLocked()
}
