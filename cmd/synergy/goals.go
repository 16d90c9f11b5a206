package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/internal/store"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Track standing objectives",
	Long: `Track standing objectives across runs.

'synergy run' records each objective as a goal and marks it done when the run
completes; goals can also be managed by hand.`,
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		goals, err := openGoals()
		if err != nil {
			return err
		}
		list, err := goals.Load()
		if err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No goals recorded.")
			return nil
		}
		for _, g := range list {
			mark := " "
			if g.Done {
				mark = "x"
			}
			line := fmt.Sprintf("  [%s] %s  %s", mark, g.ID, g.Text)
			if g.ProjectID != "" {
				line += fmt.Sprintf(" (project %s)", g.ProjectID)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var goalsAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Record a goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goals, err := openGoals()
		if err != nil {
			return err
		}
		text := args[0]
		for _, extra := range args[1:] {
			text += " " + extra
		}
		goal, err := goals.Add(text, "")
		if err != nil {
			return fmt.Errorf("add goal: %w", err)
		}
		fmt.Printf("Goal %s recorded.\n", goal.ID)
		return nil
	},
}

var goalsDoneCmd = &cobra.Command{
	Use:   "done <goal-id>",
	Short: "Mark a goal as achieved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goals, err := openGoals()
		if err != nil {
			return err
		}
		if err := goals.MarkDone(args[0]); err != nil {
			return fmt.Errorf("mark done: %w", err)
		}
		fmt.Printf("Goal %s done.\n", args[0])
		return nil
	},
}

func init() {
	goalsCmd.AddCommand(goalsListCmd)
	goalsCmd.AddCommand(goalsAddCmd)
	goalsCmd.AddCommand(goalsDoneCmd)
}

func openGoals() (*store.GoalStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return store.NewGoalStore(cfg.GoalsStorePath()), nil
}
