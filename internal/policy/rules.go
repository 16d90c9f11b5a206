package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/synergyhq/synergy/pkg/models"
)

// rulesFile is the on-disk shape of a policy rules file.
type rulesFile struct {
	Rules []models.Permission `yaml:"rules"`
}

// LoadRules reads permanent rules from a YAML file and registers them in file
// order. The file wins or loses checks by ordering, exactly like AddRule.
func (e *Engine) LoadRules(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read rules file: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return 0, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	for i, rule := range rf.Rules {
		if _, err := e.AddRule(rule); err != nil {
			return i, fmt.Errorf("rules file %s entry %d: %w", path, i, err)
		}
	}
	return len(rf.Rules), nil
}

// RegisterDefaultRules installs the built-in role capability sets. Each role
// gets an explicit, enumerable set of allows instead of a wildcard-role rule,
// so the full permission surface is statically inspectable.
func (e *Engine) RegisterDefaultRules() error {
	defaults := []models.Permission{
		// Workers: read anywhere, write inside the workspace, no deletes.
		{ID: "worker-read", Role: "worker", Action: models.ActionRead, Resource: models.Wildcard, Allow: true},
		{ID: "worker-write-ws", Role: "worker", Action: models.ActionWrite, Resource: models.ResourceFile, ResourcePattern: `^workspace/`, Allow: true},
		{ID: "worker-memory", Role: "worker", Action: models.ActionWrite, Resource: models.ResourceMemory, Allow: true},

		// Researchers: read plus outbound network.
		{ID: "researcher-read", Role: "researcher", Action: models.ActionRead, Resource: models.Wildcard, Allow: true},
		{ID: "researcher-web", Role: "researcher", Action: models.ActionNetwork, Resource: models.ResourceWeb, Allow: true},
		{ID: "researcher-memory", Role: "researcher", Action: models.ActionWrite, Resource: models.ResourceMemory, Allow: true},

		// Operators: execute and mutate files, still no settings writes.
		{ID: "operator-read", Role: "operator", Action: models.ActionRead, Resource: models.Wildcard, Allow: true},
		{ID: "operator-write", Role: "operator", Action: models.ActionWrite, Resource: models.ResourceFile, Allow: true},
		{ID: "operator-exec", Role: "operator", Action: models.ActionExecute, Resource: models.ResourceSystem, Allow: true},
		{ID: "operator-delete-ws", Role: "operator", Action: models.ActionDelete, Resource: models.ResourceFile, ResourcePattern: `^workspace/`, Allow: true},

		// Managers: everything workers and operators can, plus settings.
		{ID: "manager-read", Role: "manager", Action: models.ActionRead, Resource: models.Wildcard, Allow: true},
		{ID: "manager-write", Role: "manager", Action: models.ActionWrite, Resource: models.Wildcard, Allow: true},
		{ID: "manager-exec", Role: "manager", Action: models.ActionExecute, Resource: models.ResourceSystem, Allow: true},
		{ID: "manager-web", Role: "manager", Action: models.ActionNetwork, Resource: models.ResourceWeb, Allow: true},
	}

	for _, rule := range defaults {
		if _, err := e.AddRule(rule); err != nil {
			return err
		}
	}
	return nil
}
