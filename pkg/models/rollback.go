package models

import "time"

// RollbackEntry is a captured pre-mutation snapshot enabling exact content
// restoration. Once RolledBack is set, the entry cannot be replayed from the
// same snapshot.
type RollbackEntry struct {
	// ID is the unique identifier for this entry.
	ID string `json:"id"`
	// Timestamp is when the backup was taken.
	Timestamp time.Time `json:"timestamp"`
	// Action is the kind of mutation the backup preceded.
	Action string `json:"action"`
	// Path is the target file the backup protects.
	Path string `json:"path"`
	// BackupPath is where the backup copy was written.
	BackupPath string `json:"backup_path"`
	// Original is the captured content, kept inline so rollback does not
	// depend on the backup file still existing.
	Original string `json:"original"`
	// CanRollback indicates whether the entry is eligible for restoration.
	CanRollback bool `json:"can_rollback"`
	// RolledBack is set once the entry has been restored.
	RolledBack bool `json:"rolled_back"`
}
