// Package policy implements the rule-based permission gate for agent actions.
// Rules are evaluated in registration order, temporary grants before permanent
// ones; the first matching rule wins and no match is a default deny. Every
// check, allow or deny, is recorded in the audit log.
package policy

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synergyhq/synergy/internal/audit"
	"github.com/synergyhq/synergy/pkg/models"
)

// Result is the outcome of a permission check.
type Result struct {
	// Allowed is the decision.
	Allowed bool
	// RuleID is the rule that matched, or empty on default deny.
	RuleID string
	// Reason is a human-readable explanation of the decision.
	Reason string
}

// DenialError is returned by gated executors when a policy check denies an
// action. It is expected and non-fatal; callers surface the structured reason.
type DenialError struct {
	Role     string
	Action   models.Action
	Resource models.ResourceType
	RuleID   string
	Reason   string
}

// Error implements the error interface.
func (e *DenialError) Error() string {
	return fmt.Sprintf("policy denied %s %s for role %s: %s", e.Action, e.Resource, e.Role, e.Reason)
}

// Engine is the policy engine. One instance is constructed per process and
// passed by reference to the orchestrator and executors.
type Engine struct {
	mu        sync.Mutex
	permanent []*models.Permission
	temporary []*models.Permission
	// patterns holds compiled resource-id regexps keyed by rule ID.
	patterns map[string]*regexp.Regexp
	// timers holds the scheduled removals for temporary rules.
	timers map[string]*time.Timer

	audit *audit.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewEngine creates an Engine that records every check through logger.
func NewEngine(logger *audit.Logger) *Engine {
	return &Engine{
		patterns: make(map[string]*regexp.Regexp),
		timers:   make(map[string]*time.Timer),
		audit:    logger,
		now:      time.Now,
	}
}

// AddRule registers a permanent rule. Rules are evaluated in registration
// order. An invalid resource pattern rejects the rule.
func (e *Engine) AddRule(rule models.Permission) (string, error) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()[:8]
	}
	if !rule.Action.Valid() || !rule.Resource.Valid() {
		return "", fmt.Errorf("invalid rule %s: action=%q resource=%q", rule.ID, rule.Action, rule.Resource)
	}
	rule.ExpiresAt = nil

	re, err := compilePattern(rule.ResourcePattern)
	if err != nil {
		return "", fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if re != nil {
		e.patterns[rule.ID] = re
	}
	e.permanent = append(e.permanent, &rule)
	return rule.ID, nil
}

// GrantTemporary installs a rule with an absolute expiry and schedules its own
// removal. Expiry is enforced both eagerly on the next check and by the
// scheduled removal, whichever comes first.
func (e *Engine) GrantTemporary(rule models.Permission, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("temporary grant requires a positive ttl")
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()[:8]
	}
	if !rule.Action.Valid() || !rule.Resource.Valid() {
		return "", fmt.Errorf("invalid rule %s: action=%q resource=%q", rule.ID, rule.Action, rule.Resource)
	}

	re, err := compilePattern(rule.ResourcePattern)
	if err != nil {
		return "", fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	expiry := e.now().Add(ttl)
	rule.ExpiresAt = &expiry

	e.mu.Lock()
	if re != nil {
		e.patterns[rule.ID] = re
	}
	e.temporary = append(e.temporary, &rule)
	id := rule.ID
	e.timers[id] = time.AfterFunc(ttl, func() {
		e.removeTemporary(id)
	})
	e.mu.Unlock()

	return id, nil
}

// removeTemporary drops a temporary rule by ID.
func (e *Engine) removeTemporary(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.temporary {
		if r.ID == id {
			e.temporary = append(e.temporary[:i], e.temporary[i+1:]...)
			delete(e.patterns, id)
			break
		}
	}
	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
}

// CheckPermission evaluates (role, action, resource, resourceID) against the
// rule sets. Temporary rules are checked first; each check purges expired
// temporary rules as a side effect, so results stay consistent even when a
// removal timer has not fired yet. The check is always audited.
func (e *Engine) CheckPermission(agentID, role string, action models.Action, resource models.ResourceType, resourceID string) Result {
	e.mu.Lock()
	e.purgeExpiredLocked()

	result := Result{Allowed: false, Reason: "no matching rule"}
	for _, rule := range e.temporary {
		if e.ruleMatchesLocked(rule, role, action, resource, resourceID) {
			result = e.resultFromRule(rule)
			break
		}
	}
	if result.RuleID == "" {
		for _, rule := range e.permanent {
			if e.ruleMatchesLocked(rule, role, action, resource, resourceID) {
				result = e.resultFromRule(rule)
				break
			}
		}
	}
	e.mu.Unlock()

	decision := models.AuditDeny
	if result.Allowed {
		decision = models.AuditAllow
	}
	if e.audit != nil {
		e.audit.Log(models.AuditEntry{
			AgentID:    agentID,
			AgentRole:  role,
			Action:     string(action),
			Resource:   string(resource),
			ResourceID: resourceID,
			Decision:   decision,
			RuleID:     result.RuleID,
			Context:    map[string]string{"note": result.Reason},
		})
	}

	return result
}

// resultFromRule builds a Result for a matched rule.
func (e *Engine) resultFromRule(rule *models.Permission) Result {
	reason := fmt.Sprintf("denied by rule %s", rule.ID)
	if rule.Allow {
		reason = fmt.Sprintf("allowed by rule %s", rule.ID)
	}
	return Result{Allowed: rule.Allow, RuleID: rule.ID, Reason: reason}
}

// purgeExpiredLocked drops expired temporary rules. Caller must hold e.mu.
func (e *Engine) purgeExpiredLocked() {
	now := e.now()
	kept := e.temporary[:0]
	for _, rule := range e.temporary {
		if rule.Expired(now) {
			delete(e.patterns, rule.ID)
			if t, ok := e.timers[rule.ID]; ok {
				t.Stop()
				delete(e.timers, rule.ID)
			}
			continue
		}
		kept = append(kept, rule)
	}
	e.temporary = kept
}

// ruleMatchesLocked reports whether a rule matches the query.
// Caller must hold e.mu.
func (e *Engine) ruleMatchesLocked(rule *models.Permission, role string, action models.Action, resource models.ResourceType, resourceID string) bool {
	if rule.Role != models.Wildcard && rule.Role != role {
		return false
	}
	if string(rule.Action) != models.Wildcard && rule.Action != action {
		return false
	}
	if string(rule.Resource) != models.Wildcard && rule.Resource != resource {
		return false
	}
	if re := e.patterns[rule.ID]; re != nil {
		if !re.MatchString(resourceID) {
			return false
		}
	}
	return true
}

// TemporaryCount returns the number of live temporary rules.
func (e *Engine) TemporaryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.purgeExpiredLocked()
	return len(e.temporary)
}

// Rules returns copies of the permanent rules in registration order.
func (e *Engine) Rules() []models.Permission {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Permission, 0, len(e.permanent))
	for _, r := range e.permanent {
		out = append(out, *r)
	}
	return out
}

// Close stops all scheduled removal timers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}

// compilePattern compiles a resource-id pattern, or returns nil for none.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid resource pattern %q: %w", pattern, err)
	}
	return re, nil
}
