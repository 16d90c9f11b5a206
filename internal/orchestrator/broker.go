package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/synergyhq/synergy/internal/events"
	"github.com/synergyhq/synergy/pkg/models"
)

// spoolPollInterval is the fallback scan cadence when the filesystem watcher
// misses a resolution file.
const spoolPollInterval = 2 * time.Second

// ErrDecisionNotFound is returned when no decision has the requested ID.
var ErrDecisionNotFound = errors.New("decision not found")

// ErrDecisionResolved is returned when resolving an already-resolved decision.
// Resolved decisions are immutable.
var ErrDecisionResolved = errors.New("decision already resolved")

// ErrWaiterRegistered is returned when a second waiter tries to attach to a
// pending decision; each decision has at most one outstanding continuation.
var ErrWaiterRegistered = errors.New("decision already has a waiter")

// Resolution is the outcome delivered to a task waiting on a decision.
type Resolution struct {
	// Approved is true only for an explicit approval.
	Approved bool
	// Status is the decision's final state.
	Status models.DecisionStatus
	// Reason is the approver's rationale, or the escalation cause.
	Reason string
}

// DecisionBroker owns governance decisions and the continuations of tasks
// waiting on them. Approvers resolve decisions out-of-band, either through
// Resolve (same process) or by dropping a resolution file into the spool
// directory, correlated by decision ID in the filename. A pending decision
// that nobody resolves within the timeout is escalated, never auto-approved.
type DecisionBroker struct {
	mu        sync.Mutex
	decisions map[string]*models.Decision
	waiters   map[string]chan Resolution

	timeout  time.Duration
	emitter  *events.Emitter
	logger   *DebugLogger
	spoolDir string

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewDecisionBroker creates a broker with the given wait timeout. When
// spoolDir is non-empty it is created and watched for resolution files; if
// the watcher cannot be started the broker falls back to polling alone.
func NewDecisionBroker(timeout time.Duration, spoolDir string, emitter *events.Emitter, logger *DebugLogger) (*DecisionBroker, error) {
	b := &DecisionBroker{
		decisions: make(map[string]*models.Decision),
		waiters:   make(map[string]chan Resolution),
		timeout:   timeout,
		emitter:   emitter,
		logger:    logger,
		spoolDir:  spoolDir,
		done:      make(chan struct{}),
	}

	if spoolDir != "" {
		if err := os.MkdirAll(spoolDir, 0755); err != nil {
			return nil, fmt.Errorf("create decision spool: %w", err)
		}
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			if err := watcher.Add(spoolDir); err == nil {
				b.watcher = watcher
				go b.watchSpool()
			} else {
				watcher.Close()
			}
		}
	}

	return b, nil
}

// Close stops the spool watcher. Pending waiters are not interrupted.
func (b *DecisionBroker) Close() {
	b.once.Do(func() { close(b.done) })
	if b.watcher != nil {
		b.watcher.Close()
	}
}

// Raise registers a new pending decision and announces it.
func (b *DecisionBroker) Raise(dtype models.DecisionType, requester, taskID, subject string, priority models.TaskPriority) *models.Decision {
	d := &models.Decision{
		ID:        uuid.New().String()[:8],
		Type:      dtype,
		Status:    models.DecisionPending,
		Requester: requester,
		TaskID:    taskID,
		Subject:   subject,
		Priority:  priority,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	b.decisions[d.ID] = d
	b.mu.Unlock()

	b.logger.Log("decision %s raised: %s (%s)", d.ID, subject, dtype)
	if b.emitter != nil {
		b.emitter.Emit(events.Event{
			Type:       events.DecisionRaised,
			TaskID:     taskID,
			DecisionID: d.ID,
			Message:    subject,
			Metadata:   map[string]interface{}{"type": string(dtype), "priority": string(priority)},
		})
	}

	copy := *d
	return &copy
}

// Await blocks until the decision is resolved, the timeout passes, or ctx is
// cancelled. On timeout the decision is escalated and the returned resolution
// carries the escalated status with Approved=false. Only one waiter may be
// registered per decision.
func (b *DecisionBroker) Await(ctx context.Context, decisionID string) (Resolution, error) {
	b.mu.Lock()
	d, ok := b.decisions[decisionID]
	if !ok {
		b.mu.Unlock()
		return Resolution{}, fmt.Errorf("%w: %s", ErrDecisionNotFound, decisionID)
	}
	if d.Status.Resolved() {
		b.mu.Unlock()
		return resolutionOf(d), nil
	}
	if _, exists := b.waiters[decisionID]; exists {
		b.mu.Unlock()
		return Resolution{}, fmt.Errorf("%w: %s", ErrWaiterRegistered, decisionID)
	}
	ch := make(chan Resolution, 1)
	b.waiters[decisionID] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.waiters, decisionID)
		b.mu.Unlock()
	}()

	// The spool may already hold a resolution dropped before we registered.
	b.scanSpool()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	poll := time.NewTicker(spoolPollInterval)
	defer poll.Stop()

	for {
		select {
		case res := <-ch:
			return res, nil
		case <-poll.C:
			b.scanSpool()
		case <-timer.C:
			return b.escalate(decisionID, "approval timeout")
		case <-ctx.Done():
			return Resolution{}, ctx.Err()
		}
	}
}

// Resolve records an approver's verdict and wakes the waiting task, if any.
// A resolved decision is immutable; resolving it again fails.
func (b *DecisionBroker) Resolve(decisionID string, approved bool, reason string) error {
	status := models.DecisionRejected
	if approved {
		status = models.DecisionApproved
	}
	return b.finalize(decisionID, status, reason)
}

// escalate moves a pending decision to escalated and returns its resolution.
func (b *DecisionBroker) escalate(decisionID, reason string) (Resolution, error) {
	if err := b.finalize(decisionID, models.DecisionEscalated, reason); err != nil {
		// A racing out-of-band resolution won; report what it decided.
		if errors.Is(err, ErrDecisionResolved) {
			b.mu.Lock()
			d := b.decisions[decisionID]
			res := resolutionOf(d)
			b.mu.Unlock()
			return res, nil
		}
		return Resolution{}, err
	}
	b.mu.Lock()
	res := resolutionOf(b.decisions[decisionID])
	b.mu.Unlock()
	return res, nil
}

// finalize is the single path that moves a decision out of pending.
func (b *DecisionBroker) finalize(decisionID string, status models.DecisionStatus, reason string) error {
	b.mu.Lock()
	d, ok := b.decisions[decisionID]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDecisionNotFound, decisionID)
	}
	if d.Status.Resolved() {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDecisionResolved, decisionID)
	}

	now := time.Now()
	d.Status = status
	d.Reason = reason
	d.ResolvedAt = &now
	res := resolutionOf(d)

	ch := b.waiters[decisionID]
	b.mu.Unlock()

	if ch != nil {
		select {
		case ch <- res:
		default:
			// Waiter already gone; the stored decision is authoritative.
		}
	}

	b.logger.Log("decision %s resolved: %s (%s)", decisionID, status, reason)
	if b.emitter != nil {
		b.emitter.Emit(events.Event{
			Type:       events.DecisionResolved,
			TaskID:     d.TaskID,
			DecisionID: decisionID,
			Message:    reason,
			Metadata:   map[string]interface{}{"status": string(status)},
		})
	}
	return nil
}

// Get returns a copy of the decision, or nil.
func (b *DecisionBroker) Get(decisionID string) *models.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.decisions[decisionID]
	if !ok {
		return nil
	}
	copy := *d
	return &copy
}

// Pending returns copies of all unresolved decisions, oldest first.
func (b *DecisionBroker) Pending() []models.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	var pending []models.Decision
	for _, d := range b.decisions {
		if !d.Status.Resolved() {
			pending = append(pending, *d)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending
}

// All returns copies of every decision the broker has seen, oldest first.
func (b *DecisionBroker) All() []models.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Decision, 0, len(b.decisions))
	for _, d := range b.decisions {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// watchSpool reacts to resolution files the moment they appear.
func (b *DecisionBroker) watchSpool() {
	for {
		select {
		case <-b.done:
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				b.consumeSpoolFile(event.Name)
			}
		case <-b.watcher.Errors:
			// Keep watching; the poll fallback covers missed events.
		}
	}
}

// scanSpool processes any resolution files already sitting in the spool.
func (b *DecisionBroker) scanSpool() {
	if b.spoolDir == "" {
		return
	}
	entries, err := os.ReadDir(b.spoolDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		b.consumeSpoolFile(filepath.Join(b.spoolDir, entry.Name()))
	}
}

// consumeSpoolFile applies one resolution file named <decisionID>.approve or
// <decisionID>.reject; the file body is the approver's reason. The file is
// removed once applied so a resolution is consumed exactly once.
func (b *DecisionBroker) consumeSpoolFile(path string) {
	name := filepath.Base(path)
	var approved bool
	var id string
	switch {
	case strings.HasSuffix(name, ".approve"):
		approved = true
		id = strings.TrimSuffix(name, ".approve")
	case strings.HasSuffix(name, ".reject"):
		id = strings.TrimSuffix(name, ".reject")
	default:
		return
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return
	}
	reason := strings.TrimSpace(string(body))
	if reason == "" {
		reason = "resolved via spool"
	}

	if err := b.Resolve(id, approved, reason); err != nil {
		b.logger.Log("spool file %s not applied: %v", name, err)
	}
	os.Remove(path)
}

func resolutionOf(d *models.Decision) Resolution {
	return Resolution{
		Approved: d.Status == models.DecisionApproved,
		Status:   d.Status,
		Reason:   d.Reason,
	}
}
