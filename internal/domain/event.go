package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventSessionStarted EventType = "session.started"
	EventSessionEnded   EventType = "session.ended"
	EventAgentSwitched  EventType = "agent.switched"
	EventTurnCompleted  EventType = "turn.completed"
	EventToolInvoked    EventType = "tool.invoked"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AgentSwitchPayload describes an agent-identity change within a session.
type AgentSwitchPayload struct {
	FromAgent string `json:"from_agent"`
	ToAgent   string `json:"to_agent"`
}

// SessionUsagePayload carries session totals published when a session ends.
type SessionUsagePayload struct {
	Turns      int      `json:"turns"`
	AgentsUsed []string `json:"agents_used"`
	ToolsUsed  []string `json:"tools_used"`
}

// TurnUsagePayload carries per-turn usage sets for the history sink.
type TurnUsagePayload struct {
	Query      string   `json:"query"`
	Response   string   `json:"response"`
	TaskCount  int      `json:"task_count"`
	AgentsUsed []string `json:"agents_used"`
	ToolsUsed  []string `json:"tools_used"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for session events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
