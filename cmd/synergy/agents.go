package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/internal/store"
	"github.com/synergyhq/synergy/pkg/models"
)

var (
	agentName       string
	agentRole       string
	agentDepartment string
	agentSkills     []string
	agentManager    string
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage the agent roster",
	Long: `Manage the team of agents that bid on tasks.

Each agent has a role (matched against policy rules), a skill set (matched
against task requirements), and an optional manager in the organization tree.
The roster is stored in the project's agents.json.`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		agents, err := loadRoster()
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			fmt.Println("No agents registered. Add one with 'synergy agents add'.")
			return nil
		}

		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s\n", bold("Agents:"))
		for _, a := range agents {
			line := fmt.Sprintf("  %s  %s (%s)", a.ID, a.Name, a.Role)
			if a.Department != "" {
				line += " / " + a.Department
			}
			if len(a.Skills) > 0 {
				line += "  skills: " + strings.Join(a.Skills, ", ")
			}
			line += fmt.Sprintf("  success: %.0f%%", a.SuccessRate)
			if a.ManagerID != "" {
				line += "  reports to " + a.ManagerID
			}
			fmt.Println(line)
		}
		return nil
	},
}

var agentsAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Register a new agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if agentRole == "" {
			return fmt.Errorf("--role is required")
		}

		agents, err := loadRoster()
		if err != nil {
			return err
		}
		var manager *models.OrgAgent
		for _, a := range agents {
			if a.ID == id {
				return fmt.Errorf("agent %s already registered", id)
			}
			if a.ID == agentManager {
				manager = a
			}
		}
		if agentManager != "" && manager == nil {
			return fmt.Errorf("manager %s not found", agentManager)
		}

		name := agentName
		if name == "" {
			name = id
		}
		agent := &models.OrgAgent{
			ID:          id,
			Name:        name,
			Role:        agentRole,
			Department:  agentDepartment,
			Skills:      agentSkills,
			SuccessRate: 50, // unproven agents start in the middle
			ManagerID:   agentManager,
		}
		if manager != nil {
			manager.Reports = append(manager.Reports, id)
		}
		agents = append(agents, agent)

		if err := saveRoster(agents); err != nil {
			return err
		}
		fmt.Printf("Agent %s (%s) registered.\n", id, agentRole)
		return nil
	},
}

var agentsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an agent from the roster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		agents, err := loadRoster()
		if err != nil {
			return err
		}
		var removed *models.OrgAgent
		kept := agents[:0]
		for _, a := range agents {
			if a.ID == id {
				removed = a
				continue
			}
			kept = append(kept, a)
		}
		if removed == nil {
			return fmt.Errorf("agent %s not found", id)
		}

		// Re-parent the removed agent's reports and unlink it everywhere.
		for _, a := range kept {
			if a.ID == removed.ManagerID {
				a.Reports = removeFromList(a.Reports, id)
			}
			if a.ManagerID == id {
				a.ManagerID = removed.ManagerID
				if removed.ManagerID != "" {
					for _, m := range kept {
						if m.ID == removed.ManagerID {
							m.Reports = append(m.Reports, a.ID)
						}
					}
				}
			}
		}

		if err := saveRoster(kept); err != nil {
			return err
		}
		fmt.Printf("Agent %s removed.\n", id)
		return nil
	},
}

func init() {
	agentsAddCmd.Flags().StringVar(&agentName, "name", "", "Display name (defaults to the ID)")
	agentsAddCmd.Flags().StringVar(&agentRole, "role", "", "Organizational role, matched against policy rules")
	agentsAddCmd.Flags().StringVar(&agentDepartment, "department", "", "Department")
	agentsAddCmd.Flags().StringSliceVar(&agentSkills, "skills", nil, "Comma-separated skills")
	agentsAddCmd.Flags().StringVar(&agentManager, "manager", "", "Manager agent ID")

	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsAddCmd)
	agentsCmd.AddCommand(agentsRemoveCmd)
}

func loadRoster() ([]*models.OrgAgent, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	agents, err := store.NewAgentStore(cfg.AgentsStorePath()).Load()
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	return agents, nil
}

func saveRoster(agents []*models.OrgAgent) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := store.NewAgentStore(cfg.AgentsStorePath()).Save(agents); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	return nil
}

func removeFromList(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
