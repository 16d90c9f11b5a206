package executor

import (
	"context"
	"fmt"
	"os"

	"github.com/synergyhq/synergy/internal/policy"
	"github.com/synergyhq/synergy/internal/rollback"
)

// Gate wraps a ToolExecutor with the policy check, audit trail, and
// pre-mutation backup every risk-bearing tool call must pass through.
// Tools the policy table does not know execute unconditionally.
type Gate struct {
	policy   *policy.Engine
	rollback *rollback.Manager
	inner    ToolExecutor
}

// NewGate creates a Gate delegating permitted calls to inner.
// The rollback manager may be nil when file backups are not wanted.
func NewGate(engine *policy.Engine, rb *rollback.Manager, inner ToolExecutor) *Gate {
	return &Gate{policy: engine, rollback: rb, inner: inner}
}

// PathResolver maps a tool's path argument to the filesystem location the
// executor will actually touch. Executors rooted somewhere other than the
// process working directory implement this so the gate snapshots the same
// file the mutation hits.
type PathResolver interface {
	ResolvePath(path string) string
}

// TraceFunc observes each gated tool invocation after its policy check.
type TraceFunc func(toolName, resource string, allowed bool)

// Actor identifies who a tool invocation is performed for. Trace may be nil.
type Actor struct {
	AgentID string
	Role    string
	Trace   TraceFunc
}

type actorKey struct{}

// WithActor returns a context carrying the acting agent's identity. An
// AgentExecutor passes its call context through to the tool layer, so the
// gate learns the actor without the executor being rebuilt per agent.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext extracts the acting agent, if one was attached.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// Execute implements ToolExecutor, taking the actor from the context.
// A call with no actor attached is checked under an empty role, which the
// default-deny policy refuses for every gated tool.
func (g *Gate) Execute(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error) {
	actor, _ := ActorFromContext(ctx)
	return g.For(actor.AgentID, actor.Role, actor.Trace).Execute(ctx, toolName, args)
}

// For returns a ToolExecutor bound to one acting agent. The returned executor
// checks each invocation against the policy engine under the agent's role;
// trace may be nil.
func (g *Gate) For(agentID, role string, trace TraceFunc) ToolExecutor {
	return &gatedExecutor{gate: g, agentID: agentID, role: role, trace: trace}
}

// gatedExecutor is a Gate bound to one actor.
type gatedExecutor struct {
	gate    *Gate
	agentID string
	role    string
	trace   TraceFunc
}

// Execute runs one tool invocation through the gate. The order is fixed:
// match the tool to a policy triple, check the permission (which audits the
// decision), back up the target of a file mutation, then delegate. A denial
// returns a *policy.DenialError and an error ToolResult so the agent loop can
// report the refusal back to the model instead of dying.
func (e *gatedExecutor) Execute(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error) {
	match := policy.MatchTool(toolName, args)
	if match == nil {
		// Outside the policy's concern; executes unconditionally.
		return e.gate.inner.Execute(ctx, toolName, args)
	}

	result := e.gate.policy.CheckPermission(e.agentID, e.role, match.Action, match.Resource, match.ResourceID)
	if e.trace != nil {
		e.trace(toolName, string(match.Resource), result.Allowed)
	}
	if !result.Allowed {
		err := &policy.DenialError{
			Role:     e.role,
			Action:   match.Action,
			Resource: match.Resource,
			RuleID:   result.RuleID,
			Reason:   result.Reason,
		}
		return ToolResult{Content: err.Error(), IsError: true}, err
	}

	if match.MutatesFile() && e.gate.rollback != nil {
		target := match.ResourceID
		if r, ok := e.gate.inner.(PathResolver); ok {
			target = r.ResolvePath(target)
		}
		if _, err := os.Stat(target); err == nil {
			if _, err := e.gate.rollback.BackupFile(target, string(match.Action)); err != nil {
				return ToolResult{Content: err.Error(), IsError: true},
					fmt.Errorf("backup before %s: %w", toolName, err)
			}
		}
		// A missing target means the mutation creates the file; there is
		// nothing to snapshot.
	}

	return e.gate.inner.Execute(ctx, toolName, args)
}
