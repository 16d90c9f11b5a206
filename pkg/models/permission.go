package models

import "time"

// Wildcard matches any value in a permission rule field.
const Wildcard = "*"

// Action is the kind of operation a permission rule governs.
type Action string

const (
	// ActionRead covers reads of files, memory, and settings.
	ActionRead Action = "read"
	// ActionWrite covers mutations of files, memory, and settings.
	ActionWrite Action = "write"
	// ActionExecute covers command and script execution.
	ActionExecute Action = "execute"
	// ActionDelete covers destructive removals.
	ActionDelete Action = "delete"
	// ActionNetwork covers outbound network access.
	ActionNetwork Action = "network"
)

// Valid returns true if the action is a known value or the wildcard.
func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionExecute, ActionDelete, ActionNetwork, Wildcard:
		return true
	default:
		return false
	}
}

// ResourceType is the class of resource a permission rule governs.
type ResourceType string

const (
	// ResourceFile covers filesystem paths.
	ResourceFile ResourceType = "file"
	// ResourceMemory covers the agents' shared memory store.
	ResourceMemory ResourceType = "memory"
	// ResourceSettings covers configuration values.
	ResourceSettings ResourceType = "settings"
	// ResourceSystem covers shell commands and processes.
	ResourceSystem ResourceType = "system"
	// ResourceWeb covers network endpoints.
	ResourceWeb ResourceType = "web"
)

// Valid returns true if the resource type is a known value or the wildcard.
func (r ResourceType) Valid() bool {
	switch r {
	case ResourceFile, ResourceMemory, ResourceSettings, ResourceSystem, ResourceWeb, Wildcard:
		return true
	default:
		return false
	}
}

// Permission is a single policy rule. Fields equal to Wildcard match any query
// value. A nil ExpiresAt marks a permanent rule; temporary rules are removed at
// or after their expiry.
type Permission struct {
	// ID is the unique identifier for this rule.
	ID string `json:"id" yaml:"id"`
	// Role is the agent role this rule applies to, or the wildcard.
	Role string `json:"role" yaml:"role"`
	// Action is the operation this rule applies to, or the wildcard.
	Action Action `json:"action" yaml:"action"`
	// Resource is the resource class this rule applies to, or the wildcard.
	Resource ResourceType `json:"resource" yaml:"resource"`
	// ResourcePattern optionally restricts the rule to resource IDs matching
	// this regular expression.
	ResourcePattern string `json:"resource_pattern,omitempty" yaml:"resource_pattern,omitempty"`
	// Allow is the effect of the rule when it matches.
	Allow bool `json:"allow" yaml:"allow"`
	// ExpiresAt is the absolute expiry for temporary rules. Nil means permanent.
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Permanent returns true if the rule never expires.
func (p *Permission) Permanent() bool {
	return p.ExpiresAt == nil
}

// Expired returns true if the rule has a TTL that has passed at now.
func (p *Permission) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}
