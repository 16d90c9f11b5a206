package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/audit"
	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/pkg/models"
)

var (
	auditAgent    string
	auditDecision string
	auditSince    string
	auditLimit    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the tamper-evident action trail",
	Long: `Inspect the audit trail of every gated action agents attempted.

Each policy check is recorded whether it was allowed or denied. The trail is
written as one JSON object per line into daily files, so it stays readable
without Synergy.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := openAudit()
		if err != nil {
			return err
		}

		filter := audit.Filter{
			AgentID: auditAgent,
			Limit:   auditLimit,
		}
		switch auditDecision {
		case "":
		case "allow":
			filter.Decision = models.AuditAllow
		case "deny":
			filter.Decision = models.AuditDeny
		default:
			return fmt.Errorf("unknown decision %q (want allow or deny)", auditDecision)
		}
		if auditSince != "" {
			d, err := time.ParseDuration(auditSince)
			if err != nil {
				return fmt.Errorf("parse --since: %w", err)
			}
			filter.Since = time.Now().Add(-d)
		}

		entries, err := logger.Query(filter)
		if err != nil {
			return fmt.Errorf("query audit log: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No matching audit entries.")
			return nil
		}
		for _, e := range entries {
			target := e.Resource
			if e.ResourceID != "" {
				target += " " + e.ResourceID
			}
			fmt.Printf("%s  %-6s %s (%s): %s %s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Decision, e.AgentID, e.AgentRole, e.Action, target)
		}
		return nil
	},
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := openAudit()
		if err != nil {
			return err
		}
		stats, err := logger.GetStats()
		if err != nil {
			return fmt.Errorf("audit stats: %w", err)
		}

		fmt.Printf("Entries: %d (%d allowed, %d denied)\n", stats.Total, stats.Allowed, stats.Denied)
		if len(stats.ByAgent) > 0 {
			agents := make([]string, 0, len(stats.ByAgent))
			for id := range stats.ByAgent {
				agents = append(agents, id)
			}
			sort.Strings(agents)
			fmt.Println("By agent:")
			for _, id := range agents {
				fmt.Printf("  %s: %d\n", id, stats.ByAgent[id])
			}
		}
		return nil
	},
}

var auditTranscriptCmd = &cobra.Command{
	Use:   "transcript <resource-id>",
	Short: "Show everything that happened to one resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := openAudit()
		if err != nil {
			return err
		}
		transcript, err := logger.GenerateTranscript(args[0])
		if err != nil {
			return fmt.Errorf("generate transcript: %w", err)
		}
		fmt.Print(transcript)
		return nil
	},
}

var auditExportCmd = &cobra.Command{
	Use:   "export <file.csv>",
	Short: "Export the audit trail as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := openAudit()
		if err != nil {
			return err
		}
		if err := logger.ExportCSV(args[0]); err != nil {
			return fmt.Errorf("export audit log: %w", err)
		}
		fmt.Printf("Audit trail exported to %s.\n", args[0])
		return nil
	},
}

func init() {
	auditQueryCmd.Flags().StringVar(&auditAgent, "agent", "", "Filter by acting agent ID")
	auditQueryCmd.Flags().StringVar(&auditDecision, "decision", "", "Filter by decision: allow or deny")
	auditQueryCmd.Flags().StringVar(&auditSince, "since", "", "Only entries newer than this duration (e.g. 24h)")
	auditQueryCmd.Flags().IntVar(&auditLimit, "limit", 0, "Maximum entries to return")

	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditStatsCmd)
	auditCmd.AddCommand(auditTranscriptCmd)
	auditCmd.AddCommand(auditExportCmd)
}

func openAudit() (*audit.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := audit.NewLogger(cfg.AuditDir(), nil)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return logger, nil
}
