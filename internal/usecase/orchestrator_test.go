package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"switchboard/internal/domain"
)

func newTestOrchestrator(t *testing.T, clients ToolClients, gen domain.Generator) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(testAgents(), clients, gen, nil, OrchestratorConfig{}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func TestProcessTurnSinglePath(t *testing.T) {
	gen := echoGenerator()
	o := newTestOrchestrator(t, ToolClients{}, gen)

	result, err := o.ProcessTurn(context.Background(), "recommend a nice cafe", nil)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	if result.AgentID != "concierge" {
		t.Errorf("agent = %s, want concierge (default)", result.AgentID)
	}
	if result.TaskCount != 1 {
		t.Errorf("tasks = %d, want 1", result.TaskCount)
	}
	if result.Response != "Answer to: recommend a nice cafe" {
		t.Errorf("response = %q", result.Response)
	}
	if current, ok := o.CurrentAgent(); !ok || current.ID != "concierge" {
		t.Errorf("current agent = %+v, %v", current, ok)
	}
}

func TestProcessTurnEmptyQuery(t *testing.T) {
	o := newTestOrchestrator(t, ToolClients{}, echoGenerator())

	_, err := o.ProcessTurn(context.Background(), "   ", nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestProcessTurnParallelPath(t *testing.T) {
	gen := echoGenerator()
	clients := ToolClients{
		Weather:   &fakeWeather{text: "Sunny, 20C."},
		WebSearch: &fakeWebSearch{text: "BTC at $60k."},
	}
	o := newTestOrchestrator(t, clients, gen)

	result, err := o.ProcessTurn(context.Background(),
		"What is the weather in Paris and what is the price of bitcoin", nil)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	if result.TaskCount != 2 {
		t.Fatalf("tasks = %d, want 2", result.TaskCount)
	}
	if !strings.Contains(result.Response, "Also,") {
		t.Errorf("two-task response not joined: %q", result.Response)
	}
	// Current agent is the first task's agent, bookkeeping only.
	if current, ok := o.CurrentAgent(); !ok || current.ID != "meteo" {
		t.Errorf("current agent = %+v, want meteo", current)
	}
	wantAgents := []string{"Meteo", "Scout"}
	if len(result.AgentsUsed) != 2 || result.AgentsUsed[0] != wantAgents[0] || result.AgentsUsed[1] != wantAgents[1] {
		t.Errorf("agents used = %v, want %v", result.AgentsUsed, wantAgents)
	}
}

func TestProcessTurnToolFailureStillGenerates(t *testing.T) {
	gen := echoGenerator()
	clients := ToolClients{Weather: &fakeWeather{err: errBoom}}
	o := newTestOrchestrator(t, clients, gen)

	result, err := o.ProcessTurn(context.Background(), "what's the weather in Paris", nil)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
	if result.Response == "" || strings.Contains(result.Response, "boom") {
		t.Errorf("response = %q", result.Response)
	}
	if len(result.ToolsUsed) != 0 {
		t.Errorf("tools used = %v, want none", result.ToolsUsed)
	}
}

func TestProcessTurnGroundsPromptWithToolContext(t *testing.T) {
	var grounded bool
	gen := &fakeGenerator{genFunc: func(_ context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
		grounded = hasGrounding(req)
		if grounded && !strings.Contains(systemPromptOf(req), "Sunny, 20C.") {
			t.Errorf("tool context missing from prompt:\n%s", systemPromptOf(req))
		}
		return &domain.GenerationResponse{Text: "It is sunny."}, nil
	}}
	clients := ToolClients{Weather: &fakeWeather{text: "Sunny, 20C."}}
	o := newTestOrchestrator(t, clients, gen)

	result, err := o.ProcessTurn(context.Background(), "what's the weather in Paris", nil)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if !grounded {
		t.Error("prompt not grounded despite tool contribution")
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0] != domain.ToolWeather {
		t.Errorf("tools used = %v, want [weather]", result.ToolsUsed)
	}
}

func TestProcessTurnUngroundedPromptUsesSystemPrompt(t *testing.T) {
	var prompt string
	gen := &fakeGenerator{genFunc: func(_ context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
		prompt = systemPromptOf(req)
		return &domain.GenerationResponse{Text: "Of course."}, nil
	}}
	o := newTestOrchestrator(t, ToolClients{}, gen)

	if _, err := o.ProcessTurn(context.Background(), "recommend a nice cafe", nil); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if !strings.Contains(prompt, "You are a helpful concierge.") {
		t.Errorf("agent system prompt missing:\n%s", prompt)
	}
	if strings.Contains(prompt, "LIVE DATA") {
		t.Errorf("ungrounded prompt contains grounding block:\n%s", prompt)
	}
}

func TestProcessTurnGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{genFunc: func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error) {
		return nil, errBoom
	}}
	o := newTestOrchestrator(t, ToolClients{}, gen)

	result, err := o.ProcessTurn(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if result.Response != "I encountered an error." {
		t.Errorf("response = %q, want fallback message", result.Response)
	}
}

func TestAgentSwitchSubscribers(t *testing.T) {
	o := newTestOrchestrator(t, ToolClients{}, echoGenerator())

	var order []string
	o.OnAgentSwitch(func(from, to domain.Agent) {
		order = append(order, "first:"+to.ID)
	})
	o.OnAgentSwitch(func(domain.Agent, domain.Agent) {
		panic("subscriber exploded")
	})
	o.OnAgentSwitch(func(from, to domain.Agent) {
		order = append(order, "third:"+to.ID)
	})

	if _, err := o.ProcessTurn(context.Background(), "weather in Paris", nil); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	want := []string{"first:meteo", "third:meteo"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("subscriber order = %v, want %v", order, want)
	}
}

func TestAgentSwitchNotFiredWhenUnchanged(t *testing.T) {
	o := newTestOrchestrator(t, ToolClients{}, echoGenerator())

	var switches int
	o.OnAgentSwitch(func(domain.Agent, domain.Agent) { switches++ })

	for i := 0; i < 3; i++ {
		if _, err := o.ProcessTurn(context.Background(), "weather in Paris", nil); err != nil {
			t.Fatalf("ProcessTurn: %v", err)
		}
	}
	if switches != 1 {
		t.Errorf("switch notifications = %d, want 1", switches)
	}
}

func TestHistoryForwardedToGenerator(t *testing.T) {
	var gotMessages int
	gen := &fakeGenerator{genFunc: func(_ context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
		gotMessages = len(req.Messages)
		return &domain.GenerationResponse{Text: "ok"}, nil
	}}
	o := newTestOrchestrator(t, ToolClients{}, gen)

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
	}
	if _, err := o.ProcessTurn(context.Background(), "next question", history); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	// system + 2 history + current user message.
	if gotMessages != 4 {
		t.Errorf("messages = %d, want 4", gotMessages)
	}
}
