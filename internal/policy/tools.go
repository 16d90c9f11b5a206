package policy

import (
	"fmt"

	"github.com/synergyhq/synergy/pkg/models"
)

// ToolMatch is the policy triple a tool invocation maps to.
type ToolMatch struct {
	Action     models.Action
	Resource   models.ResourceType
	ResourceID string
}

// toolTable maps tool names to their policy action/resource pair and the
// argument that identifies the concrete resource.
var toolTable = map[string]struct {
	action   models.Action
	resource models.ResourceType
	idArg    string
}{
	"read_file":       {models.ActionRead, models.ResourceFile, "path"},
	"write_file":      {models.ActionWrite, models.ResourceFile, "path"},
	"append_file":     {models.ActionWrite, models.ResourceFile, "path"},
	"delete_file":     {models.ActionDelete, models.ResourceFile, "path"},
	"execute_command": {models.ActionExecute, models.ResourceSystem, "command"},
	"http_request":    {models.ActionNetwork, models.ResourceWeb, "url"},
	"web_search":      {models.ActionNetwork, models.ResourceWeb, "query"},
	"read_memory":     {models.ActionRead, models.ResourceMemory, "key"},
	"write_memory":    {models.ActionWrite, models.ResourceMemory, "key"},
	"update_settings": {models.ActionWrite, models.ResourceSettings, "key"},
}

// MatchTool maps a tool invocation to the policy triple it must be checked
// against, or nil for tools outside the policy's concern. Safe internal tools
// bypass the gate entirely; that is a deliberate scope boundary.
func MatchTool(toolName string, args map[string]interface{}) *ToolMatch {
	entry, ok := toolTable[toolName]
	if !ok {
		return nil
	}

	resourceID := ""
	if v, ok := args[entry.idArg]; ok {
		resourceID = fmt.Sprintf("%v", v)
	}

	return &ToolMatch{
		Action:     entry.action,
		Resource:   entry.resource,
		ResourceID: resourceID,
	}
}

// MutatesFile reports whether the matched action rewrites file content and so
// needs a rollback backup before execution.
func (m *ToolMatch) MutatesFile() bool {
	if m == nil || m.Resource != models.ResourceFile {
		return false
	}
	return m.Action == models.ActionWrite || m.Action == models.ActionDelete
}
