package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/domain"
)

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(_ context.Context, event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) Subscribe(domain.EventType, domain.EventHandler) func() { return func() {} }
func (b *recordingBus) SubscribeAll(domain.EventHandler) func()                { return func() {} }
func (b *recordingBus) Close()                                                 {}

func (b *recordingBus) ofType(t domain.EventType) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestSession(t *testing.T, bus domain.EventBus) *Session {
	t.Helper()
	o, err := NewOrchestrator(testAgents(), ToolClients{}, echoGenerator(), bus, OrchestratorConfig{}, newTestLogger())
	require.NoError(t, err)
	return NewSession(o, 4, bus, newTestLogger())
}

func TestSessionGreetingMultiAgent(t *testing.T) {
	s := newTestSession(t, nil)
	assert.Equal(t, "Hello! I'm your AI assistant with 3 specialized agents. How can I help?", s.Greeting())
}

func TestSessionGreetingSingleAgent(t *testing.T) {
	agents := testAgents()[:1]
	o, err := NewOrchestrator(agents, ToolClients{}, echoGenerator(), nil, OrchestratorConfig{}, newTestLogger())
	require.NoError(t, err)
	s := NewSession(o, 0, nil, newTestLogger())

	assert.Equal(t, "Hello! I'm Concierge. How can I help?", s.Greeting())
}

func TestSessionRecordsHistory(t *testing.T) {
	s := newTestSession(t, nil)

	result, err := s.ProcessTurn(context.Background(), "hello there")
	require.NoError(t, err)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hello there", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, result.Response, history[1].Content)
}

func TestSessionTruncatesHistory(t *testing.T) {
	s := newTestSession(t, nil) // maxHistory 4

	for _, q := range []string{"one", "two", "three", "four"} {
		_, err := s.ProcessTurn(context.Background(), q)
		require.NoError(t, err)
	}

	history := s.History()
	require.Len(t, history, 4)
	// Oldest turns dropped first.
	assert.Equal(t, "three", history[0].Content)
}

func TestSessionPublishesLifecycleEvents(t *testing.T) {
	bus := &recordingBus{}
	s := newTestSession(t, bus)

	_, err := s.ProcessTurn(context.Background(), "hello")
	require.NoError(t, err)
	s.Close(context.Background())

	assert.Len(t, bus.ofType(domain.EventSessionStarted), 1)
	assert.Len(t, bus.ofType(domain.EventTurnCompleted), 1)
	assert.Len(t, bus.ofType(domain.EventSessionEnded), 1)

	for _, e := range bus.events {
		assert.Equal(t, s.ID, e.SessionID)
	}
}

func TestSessionEndPublishesUsageTotals(t *testing.T) {
	bus := &recordingBus{}
	s := newTestSession(t, bus)

	_, err := s.ProcessTurn(context.Background(), "hello there")
	require.NoError(t, err)
	_, err = s.ProcessTurn(context.Background(), "weather in Paris")
	require.NoError(t, err)
	s.Close(context.Background())

	ended := bus.ofType(domain.EventSessionEnded)
	require.Len(t, ended, 1)

	var usage domain.SessionUsagePayload
	require.NoError(t, json.Unmarshal(ended[0].Payload, &usage))
	assert.Equal(t, 2, usage.Turns)
	assert.Equal(t, []string{"Concierge", "Meteo"}, usage.AgentsUsed)
	assert.Empty(t, usage.ToolsUsed)
}

func TestSessionClosedRejectsTurns(t *testing.T) {
	s := newTestSession(t, nil)
	s.Close(context.Background())

	_, err := s.ProcessTurn(context.Background(), "anyone home")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionIDsAreUnique(t *testing.T) {
	a := newTestSession(t, nil)
	b := newTestSession(t, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}
