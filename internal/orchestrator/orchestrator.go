package orchestrator

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synergyhq/synergy/internal/bidding"
	"github.com/synergyhq/synergy/internal/collab"
	"github.com/synergyhq/synergy/internal/ensemble"
	"github.com/synergyhq/synergy/internal/events"
	"github.com/synergyhq/synergy/internal/executor"
	"github.com/synergyhq/synergy/internal/store"
	"github.com/synergyhq/synergy/pkg/models"
)

var (
	// ErrTaskNotFound is returned when no task has the requested ID.
	ErrTaskNotFound = errors.New("task not found")
	// ErrAgentNotFound is returned when no agent has the requested ID.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrAgentExists is returned when registering a duplicate agent ID.
	ErrAgentExists = errors.New("agent already registered")
	// ErrAgentBusy is returned when removing an agent that holds a task.
	ErrAgentBusy = errors.New("agent has a task in flight")
	// ErrInvalidTransition is returned for a move the task lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid task transition")
	// ErrDependencyIncomplete is returned when starting a task whose
	// dependencies have not all completed.
	ErrDependencyIncomplete = errors.New("task has incomplete dependencies")
	// ErrManagerCycle is returned when a manager assignment would make the
	// organization tree circular.
	ErrManagerCycle = errors.New("manager assignment creates a cycle")
)

// TaskSpec is the caller-facing shape of a new task.
type TaskSpec struct {
	Title          string
	Description    string
	Priority       models.TaskPriority
	RequiredSkills []string
	DependsOn      []string
	ProjectID      string
}

// Orchestrator owns the organization's agents, tasks, and projects, and
// coordinates scheduling, execution, and governance around them. All entity
// state is guarded by one mutex; anything that awaits an external outcome
// (model call, governance decision) releases the lock first and re-validates
// the entity's state after the await.
type Orchestrator struct {
	mu       sync.Mutex
	tasks    map[string]*models.Task
	agents   map[string]*models.OrgAgent
	projects map[string]*models.Project

	broker    *DecisionBroker
	agentExec executor.AgentExecutor

	emitter  *events.Emitter
	collab   *collab.History
	ensemble *ensemble.Manager
	detector *ensemble.Detector
	logger   *DebugLogger
	signals  *Signals

	providers       []bidding.Provider
	defaultProvider string

	agentStore   *store.AgentStore
	projectStore *store.ProjectStore
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithEmitter attaches the core event channel.
func WithEmitter(e *events.Emitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

// WithCollabHistory attaches the collaboration-history store.
func WithCollabHistory(h *collab.History) Option {
	return func(o *Orchestrator) { o.collab = h }
}

// WithEnsemble attaches the ensemble manager and conflict detector used to
// validate high-risk task results.
func WithEnsemble(m *ensemble.Manager, d *ensemble.Detector) Option {
	return func(o *Orchestrator) { o.ensemble = m; o.detector = d }
}

// WithLogger attaches a debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSignals attaches the out-of-band stop/pause monitor.
func WithSignals(s *Signals) Option {
	return func(o *Orchestrator) { o.signals = s }
}

// WithProviders configures the provider catalog used for per-task provider
// negotiation.
func WithProviders(catalog []bidding.Provider, defaultName string) Option {
	return func(o *Orchestrator) {
		o.providers = catalog
		o.defaultProvider = defaultName
	}
}

// WithStores attaches the JSON persistence for agents and projects/tasks.
// State is saved best-effort after mutations; LoadState restores it.
func WithStores(agents *store.AgentStore, projects *store.ProjectStore) Option {
	return func(o *Orchestrator) {
		o.agentStore = agents
		o.projectStore = projects
	}
}

// New creates an orchestrator. The agent executor and decision broker are
// required; everything else is optional.
func New(agentExec executor.AgentExecutor, broker *DecisionBroker, opts ...Option) (*Orchestrator, error) {
	if agentExec == nil {
		return nil, errors.New("agent executor is required")
	}
	if broker == nil {
		return nil, errors.New("decision broker is required")
	}

	o := &Orchestrator{
		tasks:     make(map[string]*models.Task),
		agents:    make(map[string]*models.OrgAgent),
		projects:  make(map[string]*models.Project),
		broker:    broker,
		agentExec: agentExec,
		logger:    NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// LoadState restores agents, projects, and tasks from the configured stores.
// In-flight statuses from a previous run are reset: assigned and in_progress
// tasks return to pending and every agent is idled, since whatever work was
// running did not survive the process.
func (o *Orchestrator) LoadState() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.agentStore != nil {
		agents, err := o.agentStore.Load()
		if err != nil {
			return fmt.Errorf("load agents: %w", err)
		}
		for _, a := range agents {
			a.CurrentTask = ""
			if a.History == nil {
				a.History = models.NewConversationWindow(0)
			}
			o.agents[a.ID] = a
		}
	}

	if o.projectStore != nil {
		snap, err := o.projectStore.Load()
		if err != nil {
			return fmt.Errorf("load projects: %w", err)
		}
		for _, p := range snap.Projects {
			o.projects[p.ID] = p
		}
		for _, t := range snap.Tasks {
			if t.Status == models.TaskStatusAssigned || t.Status == models.TaskStatusInProgress || t.Status == models.TaskStatusReview {
				t.Status = models.TaskStatusPending
				t.Assignee = ""
				t.StartedAt = nil
			}
			o.tasks[t.ID] = t
		}
	}
	return nil
}

// SaveState persists agents, projects, and tasks to the configured stores.
func (o *Orchestrator) SaveState() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.saveStateLocked()
}

func (o *Orchestrator) saveStateLocked() error {
	if o.agentStore != nil {
		agents := make([]*models.OrgAgent, 0, len(o.agents))
		for _, a := range o.agents {
			agents = append(agents, a)
		}
		sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
		if err := o.agentStore.Save(agents); err != nil {
			return fmt.Errorf("save agents: %w", err)
		}
	}
	if o.projectStore != nil {
		snap := &store.ProjectSnapshot{}
		for _, p := range o.projects {
			snap.Projects = append(snap.Projects, p)
		}
		for _, t := range o.tasks {
			snap.Tasks = append(snap.Tasks, t)
		}
		sort.Slice(snap.Projects, func(i, j int) bool { return snap.Projects[i].ID < snap.Projects[j].ID })
		sort.Slice(snap.Tasks, func(i, j int) bool { return snap.Tasks[i].ID < snap.Tasks[j].ID })
		if err := o.projectStore.Save(snap); err != nil {
			return fmt.Errorf("save projects: %w", err)
		}
	}
	return nil
}

// persistLocked saves state best-effort after a mutation. Persistence errors
// never fail the mutation; they are logged and the next save retries.
func (o *Orchestrator) persistLocked() {
	if err := o.saveStateLocked(); err != nil {
		o.logger.Log("state persistence failed: %v", err)
	}
}

// Broker exposes the governance decision broker.
func (o *Orchestrator) Broker() *DecisionBroker {
	return o.broker
}

// --- agents ---

// AddAgent registers a worker agent. The manager, if named, must already be
// registered; the new agent is linked into the manager's reports.
func (o *Orchestrator) AddAgent(agent *models.OrgAgent) error {
	if agent == nil || agent.ID == "" {
		return errors.New("agent needs an ID")
	}
	if agent.Role == "" {
		return errors.New("agent needs a role")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.agents[agent.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, agent.ID)
	}
	if agent.ManagerID != "" {
		manager, ok := o.agents[agent.ManagerID]
		if !ok {
			return fmt.Errorf("%w: manager %s", ErrAgentNotFound, agent.ManagerID)
		}
		manager.Reports = append(manager.Reports, agent.ID)
	}
	if agent.History == nil {
		agent.History = models.NewConversationWindow(0)
	}

	o.agents[agent.ID] = agent
	o.logger.Log("agent %s (%s) registered", agent.ID, agent.Role)
	o.persistLocked()
	return nil
}

// SetManager reassigns an agent's manager, keeping the org tree acyclic.
// An empty managerID detaches the agent from its current manager.
func (o *Orchestrator) SetManager(agentID, managerID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	agent, ok := o.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	if managerID != "" {
		if _, ok := o.agents[managerID]; !ok {
			return fmt.Errorf("%w: manager %s", ErrAgentNotFound, managerID)
		}
		// Walking up from the proposed manager must never reach the agent.
		for cursor := managerID; cursor != ""; {
			if cursor == agentID {
				return fmt.Errorf("%w: %s under %s", ErrManagerCycle, agentID, managerID)
			}
			next, ok := o.agents[cursor]
			if !ok {
				break
			}
			cursor = next.ManagerID
		}
	}

	if agent.ManagerID != "" {
		if old, ok := o.agents[agent.ManagerID]; ok {
			old.Reports = removeString(old.Reports, agentID)
		}
	}
	agent.ManagerID = managerID
	if managerID != "" {
		o.agents[managerID].Reports = append(o.agents[managerID].Reports, agentID)
	}
	o.persistLocked()
	return nil
}

// RemoveAgent deregisters an idle agent. Its direct reports are re-parented
// to the removed agent's manager.
func (o *Orchestrator) RemoveAgent(agentID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	agent, ok := o.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	if !agent.Idle() {
		return fmt.Errorf("%w: %s on task %s", ErrAgentBusy, agentID, agent.CurrentTask)
	}

	if agent.ManagerID != "" {
		if m, ok := o.agents[agent.ManagerID]; ok {
			m.Reports = removeString(m.Reports, agentID)
		}
	}
	for _, reportID := range agent.Reports {
		report, ok := o.agents[reportID]
		if !ok {
			continue
		}
		report.ManagerID = agent.ManagerID
		if agent.ManagerID != "" {
			o.agents[agent.ManagerID].Reports = append(o.agents[agent.ManagerID].Reports, reportID)
		}
	}

	delete(o.agents, agentID)
	o.persistLocked()
	return nil
}

// Agent returns a copy of the agent, or nil.
func (o *Orchestrator) Agent(agentID string) *models.OrgAgent {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.agents[agentID]
	if !ok {
		return nil
	}
	copy := *a
	return &copy
}

// Agents returns copies of all registered agents, sorted by ID.
func (o *Orchestrator) Agents() []models.OrgAgent {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.OrgAgent, 0, len(o.agents))
	for _, a := range o.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- tasks ---

// CreateTask registers a new pending task. Every dependency must already
// exist; a task can depend on work in any state, it just cannot start until
// that work completes.
func (o *Orchestrator) CreateTask(spec TaskSpec) (*models.Task, error) {
	if spec.Title == "" {
		return nil, errors.New("task needs a title")
	}
	if spec.Priority == "" {
		spec.Priority = models.PriorityMedium
	}
	if !spec.Priority.Valid() {
		return nil, fmt.Errorf("unknown priority %q", spec.Priority)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, depID := range spec.DependsOn {
		if _, ok := o.tasks[depID]; !ok {
			return nil, fmt.Errorf("%w: dependency %s", ErrTaskNotFound, depID)
		}
	}
	if spec.ProjectID != "" {
		if _, ok := o.projects[spec.ProjectID]; !ok {
			return nil, fmt.Errorf("unknown project %s", spec.ProjectID)
		}
	}

	task := &models.Task{
		ID:             uuid.New().String()[:8],
		ProjectID:      spec.ProjectID,
		Title:          spec.Title,
		Description:    spec.Description,
		Priority:       spec.Priority,
		Status:         models.TaskStatusPending,
		RequiredSkills: spec.RequiredSkills,
		DependsOn:      spec.DependsOn,
		CreatedAt:      time.Now(),
	}
	o.tasks[task.ID] = task
	if spec.ProjectID != "" {
		project := o.projects[spec.ProjectID]
		project.TaskIDs = append(project.TaskIDs, task.ID)
	}

	o.logger.Log("task %s created: %s (priority %s)", task.ID, task.Title, task.Priority)
	o.emit(events.Event{Type: events.TaskCreated, TaskID: task.ID, Message: task.Title})
	o.persistLocked()

	copy := *task
	return &copy, nil
}

// Task returns a copy of the task, or nil.
func (o *Orchestrator) Task(taskID string) *models.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tasks[taskID]
	if !ok {
		return nil
	}
	copy := *t
	return &copy
}

// Tasks returns copies of all tasks, oldest first.
func (o *Orchestrator) Tasks() []models.Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.Task, 0, len(o.tasks))
	for _, t := range o.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ProjectTasks returns copies of the tasks belonging to a project, oldest first.
func (o *Orchestrator) ProjectTasks(projectID string) []models.Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []models.Task
	for _, t := range o.tasks {
		if t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Transition moves a task to the next lifecycle state, enforcing both the
// state machine and the dependency gate.
func (o *Orchestrator) Transition(taskID string, next models.TaskStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	task, ok := o.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return o.transitionLocked(task, next)
}

// transitionLocked is the single place a task's status changes. It rejects
// moves the lifecycle forbids and refuses to start a task while any of its
// dependencies is not completed. Caller must hold o.mu.
func (o *Orchestrator) transitionLocked(task *models.Task, next models.TaskStatus) error {
	if !task.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s (task %s)", ErrInvalidTransition, task.Status, next, task.ID)
	}
	if next == models.TaskStatusInProgress {
		for _, depID := range task.DependsOn {
			dep, ok := o.tasks[depID]
			if !ok || dep.Status != models.TaskStatusCompleted {
				return fmt.Errorf("%w: task %s waits on %s", ErrDependencyIncomplete, task.ID, depID)
			}
		}
	}

	prev := task.Status
	task.Status = next
	now := time.Now()
	switch next {
	case models.TaskStatusInProgress:
		task.StartedAt = &now
	case models.TaskStatusCompleted, models.TaskStatusFailed, models.TaskStatusCancelled:
		task.CompletedAt = &now
		o.releaseAssigneeLocked(task)
	}

	o.logger.Log("task %s: %s -> %s", task.ID, prev, next)
	if eventType, ok := statusEvent(next); ok {
		o.emit(events.Event{Type: eventType, TaskID: task.ID, AgentID: task.Assignee, Message: task.Title})
	}
	return nil
}

// releaseAssigneeLocked idles the agent holding the task, if any.
func (o *Orchestrator) releaseAssigneeLocked(task *models.Task) {
	if task.Assignee == "" {
		return
	}
	if agent, ok := o.agents[task.Assignee]; ok && agent.CurrentTask == task.ID {
		agent.CurrentTask = ""
	}
}

// CancelTask cancels a non-terminal task and records the reason.
func (o *Orchestrator) CancelTask(taskID, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	task, ok := o.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err := o.transitionLocked(task, models.TaskStatusCancelled); err != nil {
		return err
	}
	task.Error = reason
	o.persistLocked()
	return nil
}

// completeTask finishes a task successfully: stores the result, frees the
// agent, folds the outcome into the agent's success rate, and records the
// collaboration.
func (o *Orchestrator) completeTask(taskID, result string) error {
	return o.finishTask(taskID, models.TaskStatusCompleted, result, "")
}

// failTask finishes a task unsuccessfully with the given error message.
func (o *Orchestrator) failTask(taskID, errMsg string) error {
	return o.finishTask(taskID, models.TaskStatusFailed, "", errMsg)
}

func (o *Orchestrator) finishTask(taskID string, status models.TaskStatus, result, errMsg string) error {
	o.mu.Lock()
	task, ok := o.tasks[taskID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	assigneeID := task.Assignee
	started := task.StartedAt

	if err := o.transitionLocked(task, status); err != nil {
		o.mu.Unlock()
		return err
	}
	task.Result = result
	task.Error = errMsg

	success := status == models.TaskStatusCompleted
	var record *models.CollaborationRecord
	if agent, ok := o.agents[assigneeID]; ok {
		agent.RecordOutcome(success)
		duration := time.Duration(0)
		if started != nil {
			duration = time.Since(*started)
		}
		record = &models.CollaborationRecord{
			RequesterID: "orchestrator",
			HelperID:    agent.ID,
			HelperName:  agent.Name,
			Skills:      task.RequiredSkills,
			Outcome:     task.Title,
			Success:     success,
			Duration:    duration,
		}
	}
	o.persistLocked()
	o.mu.Unlock()

	if record != nil && o.collab != nil {
		if err := o.collab.Record(*record); err != nil {
			o.logger.Log("collaboration record for task %s failed: %v", taskID, err)
		}
	}
	return nil
}

// --- projects ---

// CreateProject registers a project for an objective.
func (o *Orchestrator) CreateProject(name, objective string) *models.Project {
	project := &models.Project{
		ID:        uuid.New().String()[:8],
		Name:      name,
		Objective: objective,
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now(),
	}

	o.mu.Lock()
	o.projects[project.ID] = project
	o.persistLocked()
	o.mu.Unlock()

	copy := *project
	return &copy
}

// Project returns a copy of the project, or nil.
func (o *Orchestrator) Project(projectID string) *models.Project {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.projects[projectID]
	if !ok {
		return nil
	}
	copy := *p
	return &copy
}

// Projects returns copies of all projects, oldest first.
func (o *Orchestrator) Projects() []models.Project {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.Project, 0, len(o.projects))
	for _, p := range o.projects {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// finalizeProject settles a project's aggregate status once every child task
// has resolved. Partial failures surface per-task; the project itself is
// failed only if at least one child failed. Returns true once settled.
func (o *Orchestrator) finalizeProject(projectID string) bool {
	o.mu.Lock()

	project, ok := o.projects[projectID]
	if !ok {
		o.mu.Unlock()
		return false
	}

	allResolved := true
	anyFailed := false
	for _, taskID := range project.TaskIDs {
		task, ok := o.tasks[taskID]
		if !ok {
			continue
		}
		if !task.Status.Terminal() {
			allResolved = false
			break
		}
		if task.Status != models.TaskStatusCompleted {
			anyFailed = true
		}
	}
	if !allResolved || project.Status.Terminal() {
		o.mu.Unlock()
		return false
	}

	now := time.Now()
	project.CompletedAt = &now
	if anyFailed {
		project.Status = models.TaskStatusFailed
	} else {
		project.Status = models.TaskStatusCompleted
	}
	status := project.Status
	objective := project.Objective
	o.persistLocked()
	o.mu.Unlock()

	o.logger.Log("project %s settled: %s", projectID, status)
	o.emit(events.Event{
		Type:     events.ObjectiveDone,
		Message:  objective,
		Metadata: map[string]interface{}{"project_id": projectID, "status": string(status)},
	})
	return true
}

// emit publishes an event if an emitter is attached.
func (o *Orchestrator) emit(event events.Event) {
	if o.emitter != nil {
		o.emitter.Emit(event)
	}
}

// statusEvent maps a task status to its lifecycle event, if one exists.
func statusEvent(status models.TaskStatus) (events.Type, bool) {
	switch status {
	case models.TaskStatusAssigned:
		return events.TaskAssigned, true
	case models.TaskStatusInProgress:
		return events.TaskStarted, true
	case models.TaskStatusCompleted:
		return events.TaskCompleted, true
	case models.TaskStatusFailed:
		return events.TaskFailed, true
	case models.TaskStatusCancelled:
		return events.TaskCancelled, true
	default:
		return "", false
	}
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
