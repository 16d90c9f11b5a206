package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history and pending decisions",
	Long: `Display the state of recent orchestration runs.

Shows the active run if one is live, recent finished runs with their task
counts, and any decisions still waiting for a human.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.StateDBPath()); os.IsNotExist(err) {
		fmt.Println("No runs yet. Start one with 'synergy run \"<objective>\"'.")
		return nil
	}

	db, err := state.Open(cfg.StateDBPath())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate state database: %w", err)
	}

	active, err := db.GetActiveRun()
	if err != nil {
		return fmt.Errorf("get active run: %w", err)
	}
	if active != nil {
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %s: %s (started %s ago)\n",
			green("Active run"), active.ID, active.Objective,
			formatDuration(time.Since(active.StartedAt)))
	} else {
		fmt.Println("No active run.")
	}

	runs, err := db.ListRuns(nil)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	var recent []state.Run
	for _, r := range runs {
		if r.Status != state.RunActive {
			recent = append(recent, r)
			if len(recent) >= 5 {
				break
			}
		}
	}
	if len(recent) > 0 {
		fmt.Println("\nRecent runs:")
		for _, r := range recent {
			fmt.Printf("  %s  %-11s %d/%d tasks ok  %s  (%s ago)\n",
				r.ID, r.Status, r.TasksCompleted, r.TasksTotal,
				truncate(r.Objective, 50), formatDuration(time.Since(r.StartedAt)))
		}
	}

	pending, err := db.PendingDecisions()
	if err != nil {
		return fmt.Errorf("list pending decisions: %w", err)
	}
	if len(pending) > 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s\n", yellow("Pending decisions:"))
		for _, d := range pending {
			fmt.Printf("  %s  [%s] %s (raised %s ago)\n",
				d.ID, d.Type, d.Subject, formatDuration(time.Since(d.CreatedAt)))
		}
		fmt.Println("Resolve with 'synergy decisions approve <id>' or 'reject <id>'.")
	}

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// truncate shortens a string to maxLen characters, adding ellipsis if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
