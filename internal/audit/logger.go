// Package audit provides the append-only audit trail for policy decisions and
// state-changing actions. Entries are buffered in memory, flushed as
// newline-delimited JSON to a daily log file, and rotated by size. History is
// never rewritten; rotation only renames a full file to an archive.
package audit

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synergyhq/synergy/internal/events"
	"github.com/synergyhq/synergy/pkg/models"
)

const (
	// bufferSize is the number of entries held before an automatic flush.
	bufferSize = 10
	// maxFileSize is the rotation threshold for the active log file.
	maxFileSize = 10 * 1024 * 1024
	// defaultQueryLimit caps query results when no limit is given.
	defaultQueryLimit = 1000
)

// Logger is the append-only audit logger. One instance is constructed per
// process and passed by reference to the components that record checks.
type Logger struct {
	mu      sync.Mutex
	dir     string
	buffer  []models.AuditEntry
	emitter *events.Emitter

	// now is injectable for tests.
	now func() time.Time
}

// NewLogger creates a Logger writing daily NDJSON files under dir.
// Failure to create the directory is fatal to the caller; it is the one
// storage-initialization error the core does not tolerate.
func NewLogger(dir string, emitter *events.Emitter) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	return &Logger{
		dir:     dir,
		emitter: emitter,
		now:     time.Now,
	}, nil
}

// Dir returns the audit directory.
func (l *Logger) Dir() string {
	return l.dir
}

// Log appends an entry to the in-memory buffer and publishes it for live
// observers. Missing ID and Timestamp fields are filled in. When the buffer
// reaches capacity it is flushed; a flush failure keeps the entries buffered
// for retry and is not surfaced to the logging caller.
func (l *Logger) Log(entry models.AuditEntry) {
	l.mu.Lock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	l.buffer = append(l.buffer, entry)
	needFlush := len(l.buffer) >= bufferSize
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.Emit(events.Event{
			Type:    events.PolicyDecision,
			AgentID: entry.AgentID,
			Message: fmt.Sprintf("%s %s %s: %s", entry.Action, entry.Resource, entry.ResourceID, entry.Decision),
			Metadata: map[string]interface{}{
				"entry_id": entry.ID,
				"decision": string(entry.Decision),
				"rule_id":  entry.RuleID,
			},
		})
	}

	if needFlush {
		// Best effort; entries stay buffered on failure.
		_ = l.Flush()
	}
}

// Flush serializes buffered entries as NDJSON and appends them to the current
// day's log file. On write failure the buffer is preserved so entries are
// retried on the next flush; nothing is silently dropped.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

func (l *Logger) flushLocked() error {
	if len(l.buffer) == 0 {
		return nil
	}

	if err := l.rotateIfNeededLocked(); err != nil {
		return err
	}

	var sb strings.Builder
	for _, entry := range l.buffer {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal audit entry %s: %w", entry.ID, err)
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}

	path := l.activeFileLocked()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}

	// Only clear the buffer once the write is durable.
	l.buffer = l.buffer[:0]
	return nil
}

// activeFileLocked returns the path of the current day's log file.
func (l *Logger) activeFileLocked() string {
	return filepath.Join(l.dir, fmt.Sprintf("audit-%s.log", l.now().Format("2006-01-02")))
}

// rotateIfNeededLocked renames the active file to a timestamped archive once
// it exceeds the size threshold. Rotation never rewrites entry contents.
func (l *Logger) rotateIfNeededLocked() error {
	path := l.activeFileLocked()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat audit log: %w", err)
	}
	if info.Size() < maxFileSize {
		return nil
	}

	archive := fmt.Sprintf("%s.%s", path, l.now().Format("150405.000"))
	if err := os.Rename(path, archive); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}
	return nil
}

// Filter selects audit entries for Query.
type Filter struct {
	// AgentID restricts results to one agent when non-empty.
	AgentID string
	// Decision restricts results to allow or deny when non-empty.
	Decision models.AuditDecision
	// Since and Until bound the timestamp range when non-zero.
	Since time.Time
	Until time.Time
	// Limit caps the number of returned entries; 0 means the default (1000).
	Limit int
}

// Query merges unflushed buffer entries with on-disk entries, applies the
// filter, and returns at most Limit entries in chronological order.
func (l *Logger) Query(f Filter) ([]models.AuditEntry, error) {
	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	var matched []models.AuditEntry
	for _, e := range entries {
		if f.AgentID != "" && e.AgentID != f.AgentID {
			continue
		}
		if f.Decision != "" && e.Decision != f.Decision {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		matched = append(matched, e)
	}

	// Newest first to apply the limit, then back to chronological order.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	return matched, nil
}

// readAll returns every entry on disk plus the unflushed buffer.
func (l *Logger) readAll() ([]models.AuditEntry, error) {
	paths, err := filepath.Glob(filepath.Join(l.dir, "audit-*.log*"))
	if err != nil {
		return nil, fmt.Errorf("list audit files: %w", err)
	}
	sort.Strings(paths)

	var entries []models.AuditEntry
	for _, path := range paths {
		fileEntries, err := readLogFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}

	l.mu.Lock()
	entries = append(entries, l.buffer...)
	l.mu.Unlock()

	return entries, nil
}

// readLogFile parses one NDJSON log file. Unparseable lines are skipped so a
// torn final write cannot make the whole history unreadable.
func readLogFile(path string) ([]models.AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var entries []models.AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e models.AuditEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

// GenerateTranscript renders a human-readable chronological narrative of all
// entries whose ResourceID, or context taskId/question, matches resourceID.
// State-change snapshots are rendered as before/after diff blocks.
func (l *Logger) GenerateTranscript(resourceID string) (string, error) {
	entries, err := l.readAll()
	if err != nil {
		return "", err
	}

	var matched []models.AuditEntry
	for _, e := range entries {
		if e.ResourceID == resourceID ||
			e.Context["taskId"] == resourceID ||
			e.Context["question"] == resourceID {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	if len(matched) == 0 {
		return fmt.Sprintf("No audit entries for %q.\n", resourceID), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transcript for %s (%d entries)\n\n", resourceID, len(matched))
	for _, e := range matched {
		fmt.Fprintf(&sb, "%s  %s(%s)  %s %s", e.Timestamp.Format(time.RFC3339), e.AgentID, e.AgentRole, e.Action, e.Resource)
		if e.ResourceID != "" {
			fmt.Fprintf(&sb, " %s", e.ResourceID)
		}
		fmt.Fprintf(&sb, "  -> %s", e.Decision)
		if e.RuleID != "" {
			fmt.Fprintf(&sb, " (rule %s)", e.RuleID)
		}
		sb.WriteByte('\n')
		if e.Before != "" || e.After != "" {
			fmt.Fprintf(&sb, "    before: %s\n    after:  %s\n", e.Before, e.After)
		}
		if note := e.Context["note"]; note != "" {
			fmt.Fprintf(&sb, "    note: %s\n", note)
		}
	}
	return sb.String(), nil
}

// Stats aggregates totals over the full audit history.
type Stats struct {
	// Total is the number of recorded entries.
	Total int `json:"total"`
	// Allowed and Denied count entries by decision.
	Allowed int `json:"allowed"`
	Denied  int `json:"denied"`
	// ByAgent counts entries per acting agent.
	ByAgent map[string]int `json:"by_agent"`
}

// GetStats aggregates totals, allow/deny counts, and per-agent counts.
func (l *Logger) GetStats() (Stats, error) {
	entries, err := l.readAll()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{ByAgent: make(map[string]int)}
	for _, e := range entries {
		stats.Total++
		switch e.Decision {
		case models.AuditAllow:
			stats.Allowed++
		case models.AuditDeny:
			stats.Denied++
		}
		stats.ByAgent[e.AgentID]++
	}
	return stats, nil
}

// ExportCSV writes a flat file of all entries for compliance review.
func (l *Logger) ExportCSV(path string) error {
	entries, err := l.readAll()
	if err != nil {
		return err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "timestamp", "agent_id", "agent_role", "action", "resource", "resource_id", "decision", "rule_id"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.ID, e.Timestamp.Format(time.RFC3339),
			e.AgentID, e.AgentRole,
			e.Action, e.Resource, e.ResourceID,
			string(e.Decision), e.RuleID,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
