package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "synergy",
	Short: "Autonomous multi-agent task orchestration",
	Long: `Synergy coordinates a team of autonomous agents on shared objectives.

An objective is decomposed into tasks, agents bid competitively for each one,
and results flow through governance: policy checks on every risky action,
ensemble validation of high-stakes output, pre-mutation backups, and human
approval for decisions no agent should make alone.

Start with 'synergy init' to scaffold a workspace, then
'synergy run "<objective>"' to put the team to work.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(decisionsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(signalCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
