package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"switchboard/internal/domain"
	"switchboard/internal/infra/tracer"
)

const (
	// searchContextLimit bounds web-search output before it enters the
	// generation prompt.
	searchContextLimit = 800

	// defaultToolTimeout caps any single tool invocation so a slow
	// provider cannot stall the turn.
	defaultToolTimeout = 10 * time.Second
)

// contextOrder fixes the concatenation order of tool outputs in the
// grounding context, regardless of which call finished first.
var contextOrder = []domain.ToolKind{
	domain.ToolRetrieval,
	domain.ToolWeather,
	domain.ToolWebSearch,
}

// ToolClients groups the tool collaborator handles owned by one session.
// Any handle may be nil when the deployment does not configure that tool.
type ToolClients struct {
	Retrieval domain.RetrievalClient
	Weather   domain.WeatherClient
	WebSearch domain.WebSearchClient
}

// ToolExecutor invokes the selected tools for one task concurrently and
// assembles their outputs into a bounded grounding context. A failure in one
// tool call never affects its siblings.
type ToolExecutor struct {
	clients ToolClients
	timeout time.Duration
	logger  *slog.Logger
}

// NewToolExecutor creates an executor. A non-positive timeout falls back to
// the default per-invocation timeout.
func NewToolExecutor(clients ToolClients, timeout time.Duration, logger *slog.Logger) *ToolExecutor {
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	return &ToolExecutor{clients: clients, timeout: timeout, logger: logger}
}

// Execute fans out one invocation per selected kind, waits for all of them,
// and returns the assembled grounding context plus the per-invocation
// records. The context concatenates retrieval, weather, then web search,
// separated by blank lines; web-search output is truncated first.
func (e *ToolExecutor) Execute(ctx context.Context, query string, agent domain.Agent, kinds []domain.ToolKind) (string, []domain.ToolInvocationResult) {
	if len(kinds) == 0 {
		return "", nil
	}

	ctx, span := tracer.StartSpan(ctx, "tools.execute",
		trace.WithAttributes(
			tracer.StringAttr("tools.agent", agent.Name),
			tracer.IntAttr("tools.selected", len(kinds)),
		),
	)
	defer span.End()

	results := make([]domain.ToolInvocationResult, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(idx int, kind domain.ToolKind) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[idx] = domain.ToolInvocationResult{
						Kind: kind,
						Err:  fmt.Sprintf("tool panicked: %v", r),
					}
					e.logger.Error("tool invocation panicked", "tool", string(kind), "panic", r)
				}
			}()
			results[idx] = e.invoke(ctx, kind, query, agent)
		}(i, kind)
	}
	wg.Wait()

	var parts []string
	for _, kind := range contextOrder {
		for _, r := range results {
			if r.Kind != kind || !r.Contributed() {
				continue
			}
			content := r.Content
			if kind == domain.ToolWebSearch && len(content) > searchContextLimit {
				content = content[:searchContextLimit]
			}
			parts = append(parts, content)
		}
	}

	span.SetAttributes(tracer.IntAttr("tools.contributed", len(parts)))
	tracer.SetOK(span)
	return strings.Join(parts, "\n\n"), results
}

// invoke runs a single tool call under its own timeout.
func (e *ToolExecutor) invoke(ctx context.Context, kind domain.ToolKind, query string, agent domain.Agent) domain.ToolInvocationResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ctx, span := tracer.StartSpan(ctx, "tool.invoke",
		trace.WithAttributes(tracer.StringAttr("tool.kind", string(kind))),
	)
	defer span.End()

	var (
		content string
		err     error
	)
	switch kind {
	case domain.ToolRetrieval:
		content, err = e.invokeRetrieval(ctx, query, agent)
	case domain.ToolWeather:
		content, err = e.invokeWeather(ctx, query, agent)
	case domain.ToolWebSearch:
		content, err = e.invokeWebSearch(ctx, query, agent)
	default:
		err = fmt.Errorf("%w: unknown tool kind %q", domain.ErrInvalidInput, kind)
	}

	if err != nil {
		if domain.IsNoContribution(err) {
			e.logger.Debug("tool contributed nothing", "tool", string(kind), "reason", err)
		} else {
			e.logger.Warn("tool invocation failed", "tool", string(kind), "error", err)
			tracer.RecordError(span, err)
		}
		return domain.ToolInvocationResult{Kind: kind, Err: err.Error()}
	}

	tracer.SetOK(span)
	e.logger.Debug("tool contributed context", "tool", string(kind), "chars", len(content))
	return domain.ToolInvocationResult{Kind: kind, Content: content, OK: true}
}

func (e *ToolExecutor) invokeRetrieval(ctx context.Context, query string, agent domain.Agent) (string, error) {
	if e.clients.Retrieval == nil {
		return "", fmt.Errorf("%w: retrieval client not configured", domain.ErrDisabled)
	}
	rc := agent.Capabilities.Retrieval
	collection := rc.Collection
	if collection == "" {
		collection = fmt.Sprintf("agent_%s_docs", agent.ID)
	}
	return e.clients.Retrieval.Search(ctx, collection, query, rc.TopK)
}

func (e *ToolExecutor) invokeWeather(ctx context.Context, query string, agent domain.Agent) (string, error) {
	if e.clients.Weather == nil {
		return "", fmt.Errorf("%w: weather client not configured", domain.ErrDisabled)
	}
	return e.clients.Weather.Search(ctx, query, agent.Capabilities.Weather.Units)
}

func (e *ToolExecutor) invokeWebSearch(ctx context.Context, query string, agent domain.Agent) (string, error) {
	if e.clients.WebSearch == nil {
		return "", fmt.Errorf("%w: web search client not configured", domain.ErrDisabled)
	}
	return e.clients.WebSearch.Search(ctx, query, agent.Capabilities.WebSearch.MaxResults)
}
