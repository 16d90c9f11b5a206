package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// commandTimeout bounds execute_command invocations.
const commandTimeout = 2 * time.Minute

// LocalToolExecutor performs tool invocations against the local filesystem
// and shell, rooted at a working directory. It implements the side-effecting
// half of the tool surface; policy gating happens in the Gate wrapping it.
type LocalToolExecutor struct {
	workDir string
}

// NewLocalToolExecutor creates an executor resolving relative paths under workDir.
func NewLocalToolExecutor(workDir string) *LocalToolExecutor {
	return &LocalToolExecutor{workDir: workDir}
}

// Execute dispatches one tool invocation.
func (e *LocalToolExecutor) Execute(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error) {
	switch toolName {
	case "read_file":
		return e.readFile(args)
	case "write_file":
		return e.writeFile(args, false)
	case "append_file":
		return e.writeFile(args, true)
	case "delete_file":
		return e.deleteFile(args)
	case "execute_command":
		return e.executeCommand(ctx, args)
	case "list_files":
		return e.listFiles(args)
	default:
		err := fmt.Errorf("unknown tool: %s", toolName)
		return ToolResult{Content: err.Error(), IsError: true}, err
	}
}

// ResolvePath turns a tool path argument into an absolute path under workDir.
// The gate uses it to locate a mutation target before snapshotting.
func (e *LocalToolExecutor) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workDir, path)
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

func (e *LocalToolExecutor) readFile(args map[string]interface{}) (ToolResult, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}
	data, err := os.ReadFile(e.ResolvePath(path))
	if err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}
	return ToolResult{Content: string(data)}, nil
}

func (e *LocalToolExecutor) writeFile(args map[string]interface{}, appendMode bool) (ToolResult, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}

	full := e.ResolvePath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}

	if appendMode {
		f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return ToolResult{Content: err.Error(), IsError: true}, err
		}
		defer f.Close()
		if _, err := f.WriteString(content); err != nil {
			return ToolResult{Content: err.Error(), IsError: true}, err
		}
	} else {
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return ToolResult{Content: err.Error(), IsError: true}, err
		}
	}
	return ToolResult{Content: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}, nil
}

func (e *LocalToolExecutor) deleteFile(args map[string]interface{}) (ToolResult, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}
	if err := os.Remove(e.ResolvePath(path)); err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}
	return ToolResult{Content: fmt.Sprintf("deleted %s", path)}, nil
}

func (e *LocalToolExecutor) executeCommand(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	command, err := stringArg(args, "command")
	if err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("%s\n%s", err, out), IsError: true}, err
	}
	return ToolResult{Content: string(out)}, nil
}

func (e *LocalToolExecutor) listFiles(args map[string]interface{}) (ToolResult, error) {
	dir := e.workDir
	if v, ok := args["path"].(string); ok && v != "" {
		dir = e.ResolvePath(v)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ToolResult{Content: err.Error(), IsError: true}, err
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return ToolResult{Content: strings.Join(names, "\n")}, nil
}
