package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"switchboard/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.Default()
}

// testAgents returns a three-agent roster: a default concierge, a weather
// specialist, and a realtime-info specialist.
func testAgents() []domain.Agent {
	return []domain.Agent{
		{
			ID:           "concierge",
			Name:         "Concierge",
			SystemPrompt: "You are a helpful concierge.",
			Capabilities: domain.Capabilities{
				Retrieval: &domain.RetrievalCapability{Enabled: true, Collection: "concierge_docs", TopK: 3},
			},
		},
		{
			ID:           "meteo",
			Name:         "Meteo",
			SystemPrompt: "You answer weather questions.",
			Capabilities: domain.Capabilities{
				Weather: &domain.WeatherCapability{Enabled: true, Units: "metric"},
			},
		},
		{
			ID:           "scout",
			Name:         "Scout",
			SystemPrompt: "You answer realtime questions.",
			Capabilities: domain.Capabilities{
				WebSearch:       &domain.WebSearchCapability{Enabled: true, MaxResults: 3},
				RoutingKeywords: []string{"price", "bitcoin", "news", "stock"},
			},
		},
	}
}

type fakeRetrieval struct {
	text  string
	err   error
	calls int
}

func (f *fakeRetrieval) Search(context.Context, string, string, int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeWeather struct {
	text  string
	err   error
	calls int
}

func (f *fakeWeather) Search(context.Context, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeWebSearch struct {
	text  string
	err   error
	calls int
}

func (f *fakeWebSearch) Search(context.Context, string, int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeWebSearch) Provider() string { return "fake" }

// fakeGenerator echoes a canned response or runs a custom function.
type fakeGenerator struct {
	genFunc func(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error)
	calls   int
}

func (f *fakeGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
	f.calls++
	if f.genFunc != nil {
		return f.genFunc(ctx, req)
	}
	return &domain.GenerationResponse{Text: "ok"}, nil
}

func (f *fakeGenerator) Name() string { return "fake" }

// echoGenerator replies with the last user message so tests can see which
// task a response belongs to.
func echoGenerator() *fakeGenerator {
	return &fakeGenerator{genFunc: func(_ context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
		last := req.Messages[len(req.Messages)-1]
		return &domain.GenerationResponse{Text: "Answer to: " + last.Content}, nil
	}}
}

func newTestRouter(t *testing.T) *KeywordRouter {
	t.Helper()
	r, err := NewKeywordRouter(testAgents(), newTestLogger())
	if err != nil {
		t.Fatalf("NewKeywordRouter: %v", err)
	}
	return r
}

func systemPromptOf(req domain.GenerationRequest) string {
	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			return m.Content
		}
	}
	return ""
}

func hasGrounding(req domain.GenerationRequest) bool {
	return strings.Contains(systemPromptOf(req), "LIVE DATA")
}

var errBoom = fmt.Errorf("boom")
