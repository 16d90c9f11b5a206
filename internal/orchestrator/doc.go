// Package orchestrator is the Synergy core: it owns tasks, agents, projects,
// and governance decisions. Objectives are decomposed into dependency-gated
// tasks, assigned to agents through competitive bidding, executed as a
// concurrent fan-out with per-task failure isolation, validated by ensemble
// voting when the stakes are high, and escalated to a human approver when the
// outcome is ambiguous or risky.
//
// Shared state (the task map, agent map, project map) is guarded by a single
// mutex; anything that reads an entity, awaits an external call, and writes
// it back re-validates its assumptions after the await, since the entity may
// have changed while waiting.
package orchestrator
