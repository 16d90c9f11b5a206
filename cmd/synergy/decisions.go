package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/internal/state"
)

var (
	decisionsAll    bool
	decisionsReason string
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Review and resolve governance decisions",
	Long: `Review and resolve the decisions a running objective is waiting on.

A decision raised during 'synergy run' blocks its task until someone approves
or rejects it. Approvals are delivered through the decision spool directory,
so they work from a second terminal while the run is live. A decision nobody
resolves within the timeout escalates and its task fails; it is never
approved by default.`,
}

var decisionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List decisions (pending by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if _, err := os.Stat(cfg.StateDBPath()); os.IsNotExist(err) {
			fmt.Println("No decisions recorded yet.")
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

		var decisions []state.DecisionRecord
		if decisionsAll {
			decisions, err = db.ListDecisions("")
		} else {
			decisions, err = db.PendingDecisions()
		}
		if err != nil {
			return err
		}
		if len(decisions) == 0 {
			if decisionsAll {
				fmt.Println("No decisions recorded.")
			} else {
				fmt.Println("No pending decisions.")
			}
			return nil
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		for _, d := range decisions {
			age := time.Since(d.CreatedAt).Round(time.Second)
			status := d.Status
			if status == "pending" {
				status = yellow(status)
			}
			fmt.Printf("  %s  [%s] %s  (%s, raised %s ago)\n", d.ID, d.Type, d.Subject, status, age)
		}
		return nil
	},
}

var decisionsApproveCmd = &cobra.Command{
	Use:   "approve <decision-id>",
	Short: "Approve a pending decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return spoolResolution(args[0], true)
	},
}

var decisionsRejectCmd = &cobra.Command{
	Use:   "reject <decision-id>",
	Short: "Reject a pending decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return spoolResolution(args[0], false)
	},
}

func init() {
	decisionsListCmd.Flags().BoolVar(&decisionsAll, "all", false, "Include resolved decisions")
	decisionsApproveCmd.Flags().StringVarP(&decisionsReason, "reason", "m", "", "Rationale recorded with the resolution")
	decisionsRejectCmd.Flags().StringVarP(&decisionsReason, "reason", "m", "", "Rationale recorded with the resolution")

	decisionsCmd.AddCommand(decisionsListCmd)
	decisionsCmd.AddCommand(decisionsApproveCmd)
	decisionsCmd.AddCommand(decisionsRejectCmd)
}

// spoolResolution drops a resolution file into the decision spool. The
// decision ID in the filename correlates it; the running broker consumes the
// file exactly once.
func spoolResolution(decisionID string, approved bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	spool := cfg.DecisionSpoolDir()
	if err := os.MkdirAll(spool, 0755); err != nil {
		return fmt.Errorf("create decision spool: %w", err)
	}

	verb, past := "reject", "rejected"
	if approved {
		verb, past = "approve", "approved"
	}
	reason := decisionsReason
	if reason == "" {
		reason = past + " via cli"
	}

	path := filepath.Join(spool, decisionID+"."+verb)
	if err := os.WriteFile(path, []byte(reason), 0644); err != nil {
		return fmt.Errorf("write resolution: %w", err)
	}
	fmt.Printf("Decision %s %s.\n", decisionID, past)
	return nil
}
