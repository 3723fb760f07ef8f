package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"switchboard/internal/domain"
	"switchboard/internal/infra/tracer"
)

// AgentSwitchSubscriber is notified synchronously after the session's
// current agent changes. Subscribers run in registration order; one
// subscriber's panic does not stop the others.
type AgentSwitchSubscriber func(from, to domain.Agent)

// TurnResult is what one user turn produces, beyond the reply text.
type TurnResult struct {
	Response   string
	AgentID    string
	AgentName  string
	TaskCount  int
	ToolsUsed  []domain.ToolKind
	AgentsUsed []string
}

// OrchestratorConfig tunes per-turn execution.
type OrchestratorConfig struct {
	ToolTimeout time.Duration
	MaxParallel int
	MaxTokens   int
	Temperature float64
}

// Orchestrator is the session façade. It owns the per-session agent state
// and its own tool-client handles, decides between the single-task and
// parallel paths, and exposes per-turn usage for the history sink.
//
// An Orchestrator serves exactly one session and is not safe for concurrent
// turns; the session loop calls ProcessTurn serially.
type Orchestrator struct {
	sessionID string

	agents     []domain.Agent
	agentsByID map[string]domain.Agent

	router     *KeywordRouter
	decomposer *TaskDecomposer
	selector   CapabilitySelector
	executor   *ToolExecutor
	dispatcher *ParallelDispatcher
	aggregator ResponseAggregator

	generator domain.Generator
	bus       domain.EventBus
	cfg       OrchestratorConfig
	logger    *slog.Logger

	current     domain.Agent
	hasCurrent  bool
	subscribers []AgentSwitchSubscriber

	lastToolsUsed  []domain.ToolKind
	lastAgentsUsed []string
}

// NewOrchestrator wires the orchestration pipeline for one session. The
// tool clients are owned by this instance; nothing is shared across
// sessions. The bus may be nil when no observer is attached.
func NewOrchestrator(
	agents []domain.Agent,
	clients ToolClients,
	generator domain.Generator,
	bus domain.EventBus,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) (*Orchestrator, error) {
	router, err := NewKeywordRouter(agents, logger)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}

	return &Orchestrator{
		agents:     agents,
		agentsByID: byID,
		router:     router,
		decomposer: NewTaskDecomposer(router, logger),
		executor:   NewToolExecutor(clients, cfg.ToolTimeout, logger),
		dispatcher: NewParallelDispatcher(cfg.MaxParallel, logger),
		generator:  generator,
		bus:        bus,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// OnAgentSwitch registers a subscriber for agent-identity changes.
func (o *Orchestrator) OnAgentSwitch(sub AgentSwitchSubscriber) {
	o.subscribers = append(o.subscribers, sub)
}

// CurrentAgent returns the session's current agent, if one has been set.
func (o *Orchestrator) CurrentAgent() (domain.Agent, bool) {
	return o.current, o.hasCurrent
}

// Agents returns the session's configured agents.
func (o *Orchestrator) Agents() []domain.Agent {
	return o.agents
}

// LastToolsUsed returns the tool kinds that contributed in the last turn.
func (o *Orchestrator) LastToolsUsed() []domain.ToolKind {
	return o.lastToolsUsed
}

// LastAgentsUsed returns the agent names that served the last turn.
func (o *Orchestrator) LastAgentsUsed() []string {
	return o.lastAgentsUsed
}

// ProcessTurn runs one user turn: decompose when the query spans multiple
// task classes, otherwise route the whole query to one agent. The reply is
// always a safe string; per-task failures are absorbed by aggregation.
func (o *Orchestrator) ProcessTurn(ctx context.Context, query string, history []domain.Message) (*TurnResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	ctx, span := tracer.StartSpan(ctx, "orchestrator.turn",
		trace.WithAttributes(tracer.StringAttr("session.id", o.sessionID)),
	)
	defer span.End()

	if o.decomposer.NeedsParallelExecution(query) {
		tasks := o.decomposer.Decompose(query)
		if len(tasks) > 1 {
			result := o.runParallel(ctx, tasks, history)
			span.SetAttributes(tracer.IntAttr("turn.tasks", result.TaskCount))
			tracer.SetOK(span)
			return result, nil
		}
	}

	result := o.runSingle(ctx, query, history)
	tracer.SetOK(span)
	return result, nil
}

// runSingle routes the whole query to one agent and runs its pipeline. The
// single-task path reuses the same task runner as the parallel path.
func (o *Orchestrator) runSingle(ctx context.Context, query string, history []domain.Message) *TurnResult {
	agent := o.router.Route(query)
	o.setCurrentAgent(ctx, agent)

	task := domain.Task{
		Query:     query,
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Index:     0,
	}
	results := []domain.TaskResult{o.runTask(ctx, task, history)}

	o.lastToolsUsed = AllToolsUsed(results)
	o.lastAgentsUsed = AllAgentsUsed(results)

	return &TurnResult{
		Response:   o.aggregator.Aggregate(results),
		AgentID:    agent.ID,
		AgentName:  agent.Name,
		TaskCount:  1,
		ToolsUsed:  o.lastToolsUsed,
		AgentsUsed: o.lastAgentsUsed,
	}
}

// runParallel dispatches decomposed tasks concurrently and aggregates. The
// displayed current agent becomes the first task's agent; that is
// bookkeeping only, not a claim that it answered the whole query.
func (o *Orchestrator) runParallel(ctx context.Context, tasks []domain.Task, history []domain.Message) *TurnResult {
	if first, ok := o.agentsByID[tasks[0].AgentID]; ok {
		o.setCurrentAgent(ctx, first)
	}

	results := o.dispatcher.Execute(ctx, tasks, func(ctx context.Context, t domain.Task) domain.TaskResult {
		return o.runTask(ctx, t, history)
	})

	o.lastToolsUsed = AllToolsUsed(results)
	o.lastAgentsUsed = AllAgentsUsed(results)

	return &TurnResult{
		Response:   o.aggregator.Aggregate(results),
		AgentID:    tasks[0].AgentID,
		AgentName:  tasks[0].AgentName,
		TaskCount:  len(tasks),
		ToolsUsed:  o.lastToolsUsed,
		AgentsUsed: o.lastAgentsUsed,
	}
}

// runTask performs the full per-task pipeline: capability selection, tool
// fan-out, generation. Tool failures reduce the grounding context but never
// stop generation; a generation failure fails only this task.
func (o *Orchestrator) runTask(ctx context.Context, task domain.Task, history []domain.Message) domain.TaskResult {
	agent, ok := o.agentsByID[task.AgentID]
	if !ok {
		agent = o.agents[0]
	}

	kinds := o.selector.Select(task.Query, agent.Capabilities)
	toolContext, invocations := o.executor.Execute(ctx, task.Query, agent, kinds)

	var used []domain.ToolKind
	for _, inv := range invocations {
		o.publishToolInvoked(ctx, inv)
		if inv.Contributed() {
			used = append(used, inv.Kind)
		}
	}

	req := domain.GenerationRequest{
		Model:       agent.Model,
		Messages:    buildMessages(agent, toolContext, history, task.Query),
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}
	genCtx, genSpan := tracer.StartSpan(ctx, "generation.request",
		trace.WithAttributes(tracer.StringAttr("generation.agent", agent.Name)),
	)
	resp, err := o.generator.Generate(genCtx, req)
	if err != nil {
		tracer.RecordError(genSpan, err)
		genSpan.End()
		o.logger.Error("generation failed", "agent", agent.Name, "error", err)
		return domain.TaskResult{Task: task, ToolsUsed: used, Err: err.Error()}
	}
	tracer.SetOK(genSpan)
	genSpan.End()

	return domain.TaskResult{
		Task:      task,
		Response:  strings.TrimSpace(resp.Text),
		ToolsUsed: used,
		Success:   true,
	}
}

// setCurrentAgent updates session agent identity and, on change, notifies
// switch subscribers synchronously in registration order.
func (o *Orchestrator) setCurrentAgent(ctx context.Context, agent domain.Agent) {
	if o.hasCurrent && o.current.ID == agent.ID {
		return
	}

	from := o.current
	o.current = agent
	o.hasCurrent = true

	if from.ID != "" {
		o.logger.Info("agent switched", "from", from.Name, "to", agent.Name)
	}
	for _, sub := range o.subscribers {
		o.notifySubscriber(sub, from, agent)
	}
	o.publishAgentSwitched(ctx, from, agent)
}

func (o *Orchestrator) notifySubscriber(sub AgentSwitchSubscriber, from, to domain.Agent) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("agent switch subscriber panicked", "panic", r)
		}
	}()
	sub(from, to)
}

func (o *Orchestrator) publishAgentSwitched(ctx context.Context, from, to domain.Agent) {
	if o.bus == nil {
		return
	}
	payload, err := json.Marshal(domain.AgentSwitchPayload{
		FromAgent: from.Name,
		ToAgent:   to.Name,
	})
	if err != nil {
		return
	}
	o.bus.Publish(ctx, domain.Event{
		Type:      domain.EventAgentSwitched,
		Timestamp: time.Now(),
		SessionID: o.sessionID,
		Payload:   payload,
	})
}

func (o *Orchestrator) publishToolInvoked(ctx context.Context, inv domain.ToolInvocationResult) {
	if o.bus == nil {
		return
	}
	payload, err := json.Marshal(inv)
	if err != nil {
		return
	}
	o.bus.Publish(ctx, domain.Event{
		Type:      domain.EventToolInvoked,
		Timestamp: time.Now(),
		SessionID: o.sessionID,
		Payload:   payload,
	})
}

// buildMessages assembles the generation request. When tool context exists
// the system prompt pins the answer to it; otherwise the agent's own prompt
// is used.
func buildMessages(agent domain.Agent, toolContext string, history []domain.Message, query string) []domain.Message {
	var prompt string
	if toolContext != "" {
		prompt = fmt.Sprintf(`You are %s. Answer in 1-2 sentences only.

CRITICAL INSTRUCTION: You MUST use ONLY the information below to answer. This is LIVE DATA from today (%s). DO NOT use your training data. Your training data is OUTDATED.

LIVE DATA:
%s

Answer based ONLY on the LIVE DATA above. If it says someone is president, that's the current president. Do not contradict it.`,
			agent.Name, time.Now().Format("2006-01-02"), toolContext)
	} else {
		prompt = fmt.Sprintf("%s: %s\n\nBe concise. 1-2 sentences max.", agent.Name, agent.SystemPrompt)
	}

	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: prompt})
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: query})
	return messages
}
