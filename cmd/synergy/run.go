package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/synergyhq/synergy/internal/audit"
	"github.com/synergyhq/synergy/internal/collab"
	"github.com/synergyhq/synergy/internal/config"
	"github.com/synergyhq/synergy/internal/ensemble"
	"github.com/synergyhq/synergy/internal/events"
	"github.com/synergyhq/synergy/internal/executor"
	"github.com/synergyhq/synergy/internal/orchestrator"
	"github.com/synergyhq/synergy/internal/policy"
	"github.com/synergyhq/synergy/internal/rollback"
	"github.com/synergyhq/synergy/internal/state"
	"github.com/synergyhq/synergy/internal/store"
	"github.com/synergyhq/synergy/pkg/models"
)

var (
	runDryRun          bool
	runDecisionTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <objective>",
	Short: "Run an objective through the agent team",
	Long: `Decompose an objective into tasks and run them to resolution.

Each line (or semicolon-separated clause) of the objective becomes one task.
A trailing bracket names required skills:

  synergy run "migrate the schema [sql]; update the docs"

Idle agents bid on every ready task; the best confidence-per-token bid wins.
Critical work is validated by an agent panel before it counts, and anything
the panel cannot settle waits for a human verdict:

  synergy decisions approve <id>

Progress is streamed as it happens. Ctrl-C interrupts the run; pending tasks
are recorded as interrupted and the next run starts clean.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Decompose the objective and print the task plan without running it")
	runCmd.Flags().DurationVar(&runDecisionTimeout, "decision-timeout", 0, "Override how long tasks wait on a human decision before it escalates")
}

func runRun(cmd *cobra.Command, args []string) error {
	objective := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runDecisionTimeout > 0 {
		cfg.Decisions.Timeout = runDecisionTimeout
	}

	if runDryRun {
		return printPlan(objective)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Ambient plumbing: events, audit trail, policy, rollback.
	emitter := events.NewEmitter(256)

	auditLogger, err := audit.NewLogger(cfg.AuditDir(), emitter)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer auditLogger.Flush()

	engine := policy.NewEngine(auditLogger)
	defer engine.Close()
	if err := engine.RegisterDefaultRules(); err != nil {
		return fmt.Errorf("register default policy rules: %w", err)
	}
	if _, err := os.Stat(cfg.PolicyRulesPath()); err == nil {
		n, err := engine.LoadRules(cfg.PolicyRulesPath())
		if err != nil {
			return fmt.Errorf("load policy rules: %w", err)
		}
		fmt.Printf("Loaded %d policy rules from %s\n", n, cfg.PolicyRulesPath())
	}

	rb, err := rollback.NewManager(cfg.BackupDir(), emitter)
	if err != nil {
		return fmt.Errorf("open rollback store: %w", err)
	}
	if err := rb.Cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: rollback cleanup: %v\n", err)
	}

	// Execution path: local tools behind the policy gate, behind the model.
	gate := executor.NewGate(engine, rb, executor.NewLocalToolExecutor(cwd))

	apiKey, err := config.GetAPIKey(cfg)
	if err != nil && !cfg.Anthropic.UseAWSBedrock {
		return fmt.Errorf("%w (set ANTHROPIC_API_KEY or anthropic.api_key)", err)
	}
	agentExec, err := executor.NewAnthropicExecutor(executor.AnthropicConfig{
		Model:         cfg.Anthropic.Model,
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	}, gate)
	if err != nil {
		return fmt.Errorf("create agent executor: %w", err)
	}

	// Governance and coordination.
	debugLogger := orchestrator.NewDebugLoggerForDir(cfg.Paths.DataDir)
	defer debugLogger.Close()

	broker, err := orchestrator.NewDecisionBroker(cfg.Decisions.Timeout, cfg.DecisionSpoolDir(), emitter, debugLogger)
	if err != nil {
		return fmt.Errorf("create decision broker: %w", err)
	}
	defer broker.Close()

	signals, err := orchestrator.NewSignals(cfg.SignalsDir())
	if err != nil {
		return fmt.Errorf("create signal monitor: %w", err)
	}
	signals.Clear()
	defer signals.Close()

	collabHistory, err := collab.NewHistory(cfg.CollabStorePath())
	if err != nil {
		return fmt.Errorf("open collaboration history: %w", err)
	}

	answerer := orchestrator.NewExecutorAnswerer(agentExec)
	orch, err := orchestrator.New(agentExec, broker,
		orchestrator.WithEmitter(emitter),
		orchestrator.WithCollabHistory(collabHistory),
		orchestrator.WithEnsemble(ensemble.NewManager(answerer, emitter, cfg.Ensemble.MinAgents), ensemble.NewDetector(emitter)),
		orchestrator.WithLogger(debugLogger),
		orchestrator.WithSignals(signals),
		orchestrator.WithProviders(cfg.Providers.Catalog, cfg.Providers.Default),
		orchestrator.WithStores(store.NewAgentStore(cfg.AgentsStorePath()), store.NewProjectStore(cfg.ProjectsStorePath())),
	)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}
	if err := orch.LoadState(); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if len(orch.Agents()) == 0 {
		return fmt.Errorf("no agents registered; run 'synergy init' to seed a team or 'synergy agents add'")
	}

	// Run accounting.
	db, err := state.Open(cfg.StateDBPath())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate state database: %w", err)
	}
	if n, err := db.MarkInterrupted(); err == nil && n > 0 {
		fmt.Printf("Marked %d stale run(s) as interrupted.\n", n)
	}

	run := &state.Run{
		ID:        uuid.New().String()[:8],
		Objective: objective,
		Status:    state.RunActive,
		StartedAt: time.Now(),
	}
	if err := db.CreateRun(run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	goalStore := store.NewGoalStore(cfg.GoalsStorePath())

	// Stream events until the run finishes.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		streamEvents(emitter.Events())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Run %s: %s\n\n", run.ID, objective)
	project, runErr := orch.SubmitObjective(ctx, objective)

	// Settle the run record whatever happened.
	finished := time.Now()
	run.FinishedAt = &finished
	switch {
	case runErr != nil && ctx.Err() != nil:
		run.Status = state.RunInterrupted
	case runErr != nil:
		run.Status = state.RunFailed
	case project.Status == models.TaskStatusCompleted:
		run.Status = state.RunCompleted
	default:
		run.Status = state.RunFailed
	}
	if project != nil {
		for _, task := range orch.ProjectTasks(project.ID) {
			run.TasksTotal++
			switch task.Status {
			case models.TaskStatusCompleted:
				run.TasksCompleted++
			case models.TaskStatusFailed:
				run.TasksFailed++
			}
		}
	}
	decisions := broker.All()
	run.DecisionsRaised = len(decisions)
	if err := db.UpdateRun(run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: update run record: %v\n", err)
	}
	for _, d := range decisions {
		if err := db.RecordDecision(run.ID, d.ID, string(d.Type), string(d.Status), d.Subject, d.CreatedAt, d.ResolvedAt); err != nil {
			fmt.Fprintf(os.Stderr, "warning: record decision %s: %v\n", d.ID, err)
		}
	}

	if project != nil {
		goal, gerr := goalStore.Add(objective, project.ID)
		if gerr == nil && run.Status == state.RunCompleted {
			if derr := goalStore.MarkDone(goal.ID); derr != nil {
				fmt.Fprintf(os.Stderr, "warning: mark goal done: %v\n", derr)
			}
		}
	}

	emitter.Close()
	wg.Wait()

	if err := auditLogger.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: flush audit log: %v\n", err)
	}

	if runErr != nil {
		return runErr
	}
	printSummary(orch, project, run)
	return nil
}

// printPlan decomposes the objective and shows what would run.
func printPlan(objective string) error {
	specs := orchestrator.DecomposeObjective(objective)
	if len(specs) == 0 {
		return fmt.Errorf("objective produced no tasks")
	}
	fmt.Printf("Plan: %d task(s)\n", len(specs))
	for i, spec := range specs {
		line := fmt.Sprintf("  %d. [%s] %s", i+1, spec.Priority, spec.Title)
		if len(spec.RequiredSkills) > 0 {
			line += fmt.Sprintf(" (skills: %s)", strings.Join(spec.RequiredSkills, ", "))
		}
		fmt.Println(line)
	}
	return nil
}

// streamEvents prints the run's event feed until the channel closes.
func streamEvents(ch <-chan events.Event) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	for event := range ch {
		ts := event.Timestamp.Format("15:04:05")
		switch event.Type {
		case events.TaskAssigned:
			fmt.Printf("%s %s task %s -> %s\n", ts, cyan("assign"), event.TaskID, event.AgentID)
		case events.TaskStarted:
			fmt.Printf("%s %s task %s: %s\n", ts, cyan("start"), event.TaskID, event.Message)
		case events.TaskCompleted:
			fmt.Printf("%s %s task %s: %s\n", ts, green("done"), event.TaskID, event.Message)
		case events.TaskFailed:
			fmt.Printf("%s %s task %s: %s\n", ts, red("failed"), event.TaskID, event.Message)
		case events.TaskCancelled:
			fmt.Printf("%s %s task %s\n", ts, yellow("cancelled"), event.TaskID)
		case events.PolicyDecision:
			// Denials matter on the console; approvals only clutter it.
			if event.Metadata != nil && event.Metadata["decision"] == "deny" {
				fmt.Printf("%s %s %s\n", ts, red("denied"), event.Message)
			}
		case events.ConflictDetected:
			fmt.Printf("%s %s %s\n", ts, yellow("conflict"), event.Message)
		case events.ConsensusReached:
			fmt.Printf("%s %s task %s validated\n", ts, green("consensus"), event.TaskID)
		case events.ConsensusFailed:
			fmt.Printf("%s %s task %s needs review\n", ts, yellow("no consensus"), event.TaskID)
		case events.DecisionRaised:
			fmt.Printf("%s %s %s: %s\n", ts, yellow("DECISION"), event.DecisionID, event.Message)
			fmt.Printf("           resolve with: synergy decisions approve %s\n", event.DecisionID)
		case events.DecisionResolved:
			fmt.Printf("%s %s %s: %s\n", ts, cyan("resolved"), event.DecisionID, event.Message)
		case events.RollbackPreview:
			fmt.Printf("%s %s %s\n", ts, cyan("backup"), event.Message)
		case events.ObjectiveDone:
			fmt.Printf("%s %s %s\n", ts, green("objective done"), event.Message)
		}
	}
}

// printSummary prints the final per-task outcomes.
func printSummary(orch *orchestrator.Orchestrator, project *models.Project, run *state.Run) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Println()
	if run.Status == state.RunCompleted {
		fmt.Printf("%s %d/%d task(s) completed\n", green("Run completed:"), run.TasksCompleted, run.TasksTotal)
	} else {
		fmt.Printf("%s %d completed, %d failed of %d\n", red("Run "+string(run.Status)+":"),
			run.TasksCompleted, run.TasksFailed, run.TasksTotal)
	}

	for _, task := range orch.ProjectTasks(project.ID) {
		mark := green("+")
		detail := task.Result
		if task.Status != models.TaskStatusCompleted {
			mark = red("-")
			detail = task.Error
		}
		detail = strings.ReplaceAll(strings.TrimSpace(detail), "\n", " ")
		if len(detail) > 120 {
			detail = detail[:117] + "..."
		}
		fmt.Printf("  %s %s (%s): %s\n", mark, task.Title, task.Status, detail)
	}
	if run.DecisionsRaised > 0 {
		fmt.Printf("  %d decision(s) raised; see 'synergy decisions list'\n", run.DecisionsRaised)
	}
}
