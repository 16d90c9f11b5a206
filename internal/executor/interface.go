// Package executor defines the external execution interfaces the core
// consumes and the policy gate that wraps them. An AgentExecutor turns a
// prompt into generated text and may emit tool invocations while doing so; a
// ToolExecutor performs one side-effecting action. The core never calls a
// raw ToolExecutor directly: every invocation flows through the gate so
// risk-bearing actions are policy-checked, audited, and backed up first.
package executor

import "context"

// AgentExecutor runs one agent turn: given a system prompt, a user message,
// and key/value context, it returns the generated text. Tool invocations the
// agent emits while working are routed through whatever ToolExecutor the
// implementation was constructed with, before their side effects happen.
type AgentExecutor interface {
	Execute(ctx context.Context, systemPrompt, userMessage string, contextData map[string]string) (string, error)
}

// ToolResult is the outcome of a single tool invocation.
type ToolResult struct {
	// Content is the tool's output, or the error text when IsError is set.
	Content string
	// IsError marks a failed invocation.
	IsError bool
}

// ToolExecutor performs one named, side-effecting action.
type ToolExecutor interface {
	Execute(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error)
}

// ToolFunc adapts a function to the ToolExecutor interface.
type ToolFunc func(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error)

// Execute implements ToolExecutor.
func (f ToolFunc) Execute(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error) {
	return f(ctx, toolName, args)
}
