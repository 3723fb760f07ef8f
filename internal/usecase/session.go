package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"switchboard/internal/domain"
)

// defaultMaxHistory bounds conversation history carried into generation.
const defaultMaxHistory = 40

// Session owns one conversation: its identity, history, and the
// orchestrator that serves its turns. Sessions are single-user and serial;
// ProcessTurn must not be called concurrently.
type Session struct {
	ID        string
	CreatedAt time.Time

	orchestrator *Orchestrator
	history      []domain.Message
	maxHistory   int
	bus          domain.EventBus
	logger       *slog.Logger
	closed       bool

	turns      int
	agentsUsed map[string]bool
	toolsUsed  map[string]bool
}

// NewSession creates a session around an orchestrator and announces it on
// the bus. A non-positive maxHistory falls back to the default bound.
func NewSession(orchestrator *Orchestrator, maxHistory int, bus domain.EventBus, logger *slog.Logger) *Session {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}

	s := &Session{
		ID:           ulid.Make().String(),
		CreatedAt:    time.Now(),
		orchestrator: orchestrator,
		maxHistory:   maxHistory,
		bus:          bus,
		logger:       logger,
		agentsUsed:   make(map[string]bool),
		toolsUsed:    make(map[string]bool),
	}
	orchestrator.sessionID = s.ID

	s.publish(context.Background(), domain.EventSessionStarted, nil)
	logger.Info("session started", "session", s.ID, "agents", len(orchestrator.Agents()))
	return s
}

// Greeting returns the opening line for the session.
func (s *Session) Greeting() string {
	agents := s.orchestrator.Agents()
	if len(agents) > 1 {
		return fmt.Sprintf("Hello! I'm your AI assistant with %d specialized agents. How can I help?", len(agents))
	}
	return fmt.Sprintf("Hello! I'm %s. How can I help?", agents[0].Name)
}

// ProcessTurn runs one user turn and records it in history.
func (s *Session) ProcessTurn(ctx context.Context, query string) (*TurnResult, error) {
	if s.closed {
		return nil, domain.ErrSessionNotFound
	}

	result, err := s.orchestrator.ProcessTurn(ctx, query, s.history)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.history = append(s.history,
		domain.Message{Role: domain.RoleUser, Content: query, Timestamp: now},
		domain.Message{Role: domain.RoleAssistant, Content: result.Response, AgentName: result.AgentName, Timestamp: now},
	)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}

	s.turns++
	agentsUsed := result.AgentsUsed
	toolsUsed := make([]string, len(result.ToolsUsed))
	for i, t := range result.ToolsUsed {
		toolsUsed[i] = string(t)
	}
	for _, a := range agentsUsed {
		s.agentsUsed[a] = true
	}
	for _, t := range toolsUsed {
		s.toolsUsed[t] = true
	}
	if payload, err := json.Marshal(domain.TurnUsagePayload{
		Query:      query,
		Response:   result.Response,
		TaskCount:  result.TaskCount,
		AgentsUsed: agentsUsed,
		ToolsUsed:  toolsUsed,
	}); err == nil {
		s.publish(ctx, domain.EventTurnCompleted, payload)
	}

	return result, nil
}

// History returns the retained conversation history.
func (s *Session) History() []domain.Message {
	return s.history
}

// Orchestrator exposes the session's orchestrator for subscriber wiring.
func (s *Session) Orchestrator() *Orchestrator {
	return s.orchestrator
}

// Close ends the session and publishes its usage totals. Further turns
// return ErrSessionNotFound.
func (s *Session) Close(ctx context.Context) {
	if s.closed {
		return
	}
	s.closed = true

	payload, err := json.Marshal(domain.SessionUsagePayload{
		Turns:      s.turns,
		AgentsUsed: sortedKeys(s.agentsUsed),
		ToolsUsed:  sortedKeys(s.toolsUsed),
	})
	if err != nil {
		payload = nil
	}
	s.publish(ctx, domain.EventSessionEnded, payload)
	s.logger.Info("session ended", "session", s.ID, "turns", s.turns)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Session) publish(ctx context.Context, t domain.EventType, payload json.RawMessage) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, domain.Event{
		Type:      t,
		Timestamp: time.Now(),
		SessionID: s.ID,
		Payload:   payload,
	})
}
