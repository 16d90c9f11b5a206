package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/internal/rollback"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Inspect and restore pre-mutation backups",
	Long: `Inspect and restore the backups taken before agents mutated files.

Every policy-gated file mutation snapshots the original content first.
Backups expire after seven days; each can be restored once.`,
}

var rollbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List restorable backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openRollback()
		if err != nil {
			return err
		}
		entries := manager.List()
		if len(entries) == 0 {
			fmt.Println("No backups recorded.")
			return nil
		}
		for _, e := range entries {
			state := "restorable"
			if e.RolledBack {
				state = "already restored"
			} else if time.Since(e.Timestamp) > 7*24*time.Hour {
				state = "expired"
			}
			fmt.Printf("  %s  %s (%s, %s, %s ago)\n",
				e.ID, e.Path, e.Action, state, time.Since(e.Timestamp).Round(time.Second))
		}
		return nil
	},
}

var rollbackRestoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore a file to its backed-up content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openRollback()
		if err != nil {
			return err
		}
		entry := manager.Get(args[0])
		if entry == nil {
			return fmt.Errorf("backup %s not found", args[0])
		}
		if err := manager.Rollback(args[0]); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		fmt.Printf("Restored %s from backup %s.\n", entry.Path, args[0])
		return nil
	},
}

var rollbackCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop expired and consumed backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openRollback()
		if err != nil {
			return err
		}
		before := len(manager.List())
		if err := manager.Cleanup(); err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		fmt.Printf("Removed %d backup(s).\n", before-len(manager.List()))
		return nil
	},
}

func init() {
	rollbackCmd.AddCommand(rollbackListCmd)
	rollbackCmd.AddCommand(rollbackRestoreCmd)
	rollbackCmd.AddCommand(rollbackCleanupCmd)
}

func openRollback() (*rollback.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	manager, err := rollback.NewManager(cfg.BackupDir(), nil)
	if err != nil {
		return nil, fmt.Errorf("open rollback store: %w", err)
	}
	return manager, nil
}
