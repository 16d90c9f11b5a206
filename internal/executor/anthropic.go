package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// defaultMaxIterations bounds the tool-use loop of one agent turn.
const defaultMaxIterations = 20

// AnthropicConfig contains configuration for the Anthropic-backed executor.
type AnthropicConfig struct {
	// Model is the Claude model to use. Empty selects a sensible default.
	Model string
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxIterations caps API round trips per Execute call (0 = default).
	MaxIterations int
}

// AnthropicExecutor is the default AgentExecutor. It drives the Messages API
// tool-use loop, routing every emitted tool call through the provided
// ToolExecutor (normally a policy gate) before its side effect happens.
type AnthropicExecutor struct {
	client        anthropic.Client
	model         anthropic.Model
	tools         ToolExecutor
	maxIterations int
}

// NewAnthropicExecutor creates an executor calling the Anthropic API directly
// or via AWS Bedrock, depending on the config.
func NewAnthropicExecutor(cfg AnthropicConfig, tools ToolExecutor) (*AnthropicExecutor, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	return &AnthropicExecutor{
		client:        anthropic.NewClient(opts...),
		model:         model,
		tools:         tools,
		maxIterations: maxIter,
	}, nil
}

// Execute runs one agent turn. Context data is appended to the system prompt
// in a stable order so identical inputs produce identical prompts.
func (e *AnthropicExecutor) Execute(ctx context.Context, systemPrompt, userMessage string, contextData map[string]string) (string, error) {
	if len(contextData) > 0 {
		keys := make([]string, 0, len(contextData))
		for k := range contextData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		systemPrompt += "\n\n## Context\n"
		for _, k := range keys {
			systemPrompt += fmt.Sprintf("- %s: %s\n", k, contextData[k])
		}
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
	}

	for i := 0; i < e.maxIterations; i++ {
		resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     e.model,
			MaxTokens: 8192,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: messages,
			Tools:    toolDefinitions(),
		})
		if err != nil {
			return "", fmt.Errorf("API call failed: %w", err)
		}

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion
		var textOutput string

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				textOutput += variant.Text
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))

				result := e.runTool(ctx, variant.Name, variant.Input)
				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, result.Content, result.IsError))
			}
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			return textOutput, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return "", fmt.Errorf("max iterations (%d) reached", e.maxIterations)
}

// runTool decodes the model's tool input and delegates to the ToolExecutor.
// Failures become error tool results so the model can recover; they never
// abort the turn.
func (e *AnthropicExecutor) runTool(ctx context.Context, name string, input json.RawMessage) ToolResult {
	var args map[string]interface{}
	if err := json.Unmarshal(input, &args); err != nil {
		return ToolResult{Content: fmt.Sprintf("invalid tool input: %v", err), IsError: true}
	}

	result, err := e.tools.Execute(ctx, name, args)
	if err != nil && !result.IsError {
		return ToolResult{Content: err.Error(), IsError: true}
	}
	return result
}

// toolDefinitions returns the tool schemas exposed to the model. The names
// line up with the policy engine's tool table so the gate can classify them.
func toolDefinitions() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		{
			OfTool: &anthropic.ToolParam{
				Name:        "read_file",
				Description: anthropic.String("Read a file and return its contents."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"path": map[string]interface{}{
							"type":        "string",
							"description": "Path to the file to read",
						},
					},
					Required: []string{"path"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "write_file",
				Description: anthropic.String("Write content to a file, creating parent directories if needed."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"path": map[string]interface{}{
							"type":        "string",
							"description": "Path to the file to write",
						},
						"content": map[string]interface{}{
							"type":        "string",
							"description": "Content to write",
						},
					},
					Required: []string{"path", "content"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "append_file",
				Description: anthropic.String("Append content to the end of a file."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"path": map[string]interface{}{
							"type":        "string",
							"description": "Path to the file to append to",
						},
						"content": map[string]interface{}{
							"type":        "string",
							"description": "Content to append",
						},
					},
					Required: []string{"path", "content"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "delete_file",
				Description: anthropic.String("Delete a file."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"path": map[string]interface{}{
							"type":        "string",
							"description": "Path to the file to delete",
						},
					},
					Required: []string{"path"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "execute_command",
				Description: anthropic.String("Execute a shell command and return its output."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"command": map[string]interface{}{
							"type":        "string",
							"description": "The shell command to execute",
						},
					},
					Required: []string{"command"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "list_files",
				Description: anthropic.String("List the entries of a directory."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"path": map[string]interface{}{
							"type":        "string",
							"description": "Directory to list (optional, defaults to the working directory)",
						},
					},
				},
			},
		},
	}
}
