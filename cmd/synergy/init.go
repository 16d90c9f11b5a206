package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/internal/store"
	"github.com/synergyhq/synergy/pkg/models"
)

var (
	initForce    bool
	initNoAgents bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a Synergy workspace",
	Long: `Initialize a directory for use with Synergy.

This command sets up everything needed to run objectives:
  - Creates the .synergy data directory (audit, backups, decisions, signals)
  - Creates a .synergy.yaml configuration template
  - Seeds a starter agent team (skip with --no-agents)

The directory argument is optional and defaults to the current directory.

Examples:
  synergy init              # Initialize current directory
  synergy init ./myproject  # Initialize specific directory
  synergy init --force      # Reinitialize even if already set up`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initNoAgents, "no-agents", false, "Skip seeding the starter agent team")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}
	if err := os.Chdir(absPath); err != nil {
		return fmt.Errorf("changing to directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing Synergy in %s...\n\n", absPath)

	cfg := config.Default()
	dataDir := filepath.Join(absPath, cfg.Paths.DataDir)
	if _, err := os.Stat(dataDir); err == nil && !initForce {
		fmt.Println("Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("!", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("+", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, dir := range []string{
		cfg.AuditDir(),
		cfg.BackupDir(),
		cfg.DecisionSpoolDir(),
		cfg.SignalsDir(),
		filepath.Join(cfg.Paths.DataDir, "logs"),
	} {
		if err := os.MkdirAll(filepath.Join(absPath, dir), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	printStatus("+", "Created .synergy directory structure", color.FgGreen)

	if err := createProjectConfig(absPath); err != nil {
		return fmt.Errorf("creating project config: %w", err)
	}
	printStatus("+", "Created .synergy.yaml template", color.FgGreen)

	if !initNoAgents {
		seeded, err := seedStarterTeam(cfg)
		if err != nil {
			return fmt.Errorf("seeding agent team: %w", err)
		}
		if seeded {
			printStatus("+", "Seeded starter agent team", color.FgGreen)
		} else {
			printStatus("+", "Agent roster already exists, left untouched", color.FgGreen)
		}
	}

	fmt.Printf("\n%s Synergy initialization complete!\n\n", color.GreenString("+"))
	fmt.Println("Next steps:")
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Println("  1. Set your API key:")
		fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
		fmt.Println()
	}
	fmt.Println("  2. Review the team:")
	fmt.Println("     synergy agents list")
	fmt.Println()
	fmt.Println("  3. Run an objective:")
	fmt.Println("     synergy run \"your objective here\"")

	return nil
}

// createProjectConfig creates a .synergy.yaml template unless one exists.
func createProjectConfig(repoPath string) error {
	configPath := filepath.Join(repoPath, ".synergy.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	template := `# Synergy Project Configuration
# This file overrides defaults from ~/.config/synergy/config.yaml

# anthropic:
#   model: claude-sonnet-4-20250514
#   use_aws_bedrock: false

# decisions:
#   timeout: 30m

# ensemble:
#   min_agents: 3

# providers:
#   default: general
#   catalog:
#     - name: general
#       class: standard
#     - name: premium-reasoner
#       class: premium
#     - name: generalist-plus
#       class: standard
#       multi_skill: true
`
	return os.WriteFile(configPath, []byte(template), 0644)
}

// seedStarterTeam writes a default roster unless agents are already stored.
// Returns true when it seeded.
func seedStarterTeam(cfg *config.Config) (bool, error) {
	agentStore := store.NewAgentStore(cfg.AgentsStorePath())
	existing, err := agentStore.Load()
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	team := []*models.OrgAgent{
		{ID: "lead", Name: "Lead", Role: "lead", Department: "engineering", Skills: []string{"planning", "review"}, SuccessRate: 70},
		{ID: "dev-1", Name: "Dev One", Role: "developer", Department: "engineering", Skills: []string{"coding", "testing"}, SuccessRate: 60, ManagerID: "lead"},
		{ID: "dev-2", Name: "Dev Two", Role: "developer", Department: "engineering", Skills: []string{"coding", "documentation"}, SuccessRate: 60, ManagerID: "lead"},
		{ID: "researcher", Name: "Researcher", Role: "researcher", Department: "research", Skills: []string{"research", "analysis"}, SuccessRate: 60, ManagerID: "lead"},
	}
	team[0].Reports = []string{"dev-1", "dev-2", "researcher"}

	if err := agentStore.Save(team); err != nil {
		return false, err
	}
	return true, nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
