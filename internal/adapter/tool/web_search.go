package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
	"switchboard/internal/infra/tracer"
)

const (
	defaultSearchCount = 3
	maxSearchCount     = 20
	defaultCacheTTL    = 15 * time.Minute

	// snippetLimit caps each result's content in the formatted output.
	snippetLimit = 200
)

// cacheEntry holds a cached search result with its expiration time.
type cacheEntry struct {
	result    string
	expiresAt time.Time
}

// WebSearch implements domain.WebSearchClient via a pluggable SearchBackend.
// Results are formatted for prompt grounding and cached per query with a TTL.
type WebSearch struct {
	backend  SearchBackend
	cacheTTL time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewWebSearch creates a web search client backed by the given SearchBackend.
func NewWebSearch(backend SearchBackend, cacheTTL time.Duration, logger *slog.Logger) *WebSearch {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &WebSearch{
		backend:  backend,
		cacheTTL: cacheTTL,
		logger:   logger,
		cache:    make(map[string]cacheEntry),
	}
}

// SetRateLimit bounds outgoing provider requests. Cache hits are not
// limited. A non-positive rps removes the limit.
func (w *WebSearch) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		w.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	w.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Provider implements domain.WebSearchClient.
func (w *WebSearch) Provider() string { return w.backend.Name() }

// Search implements domain.WebSearchClient. Returns ErrNoResults when the
// backend finds nothing.
func (w *WebSearch) Search(ctx context.Context, query string, maxResults int) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "tool.web_search",
		trace.WithAttributes(tracer.StringAttr("tool.query", query)),
	)
	defer span.End()

	if strings.TrimSpace(query) == "" {
		err := fmt.Errorf("%w: query must not be empty", domain.ErrInvalidInput)
		tracer.RecordError(span, err)
		return "", err
	}

	if maxResults <= 0 {
		maxResults = defaultSearchCount
	}
	if maxResults > maxSearchCount {
		maxResults = maxSearchCount
	}

	cacheKey := fmt.Sprintf("%s|%d", query, maxResults)
	if cached, ok := w.getCached(cacheKey); ok {
		w.logger.Debug("web search cache hit", "query", query)
		span.SetAttributes(tracer.StringAttr("tool.cache", "hit"))
		tracer.SetOK(span)
		return cached, nil
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			tracer.RecordError(span, err)
			return "", domain.WrapOp("web search rate limit", err)
		}
	}

	results, err := w.backend.Search(ctx, query, maxResults)
	if err != nil {
		tracer.RecordError(span, err)
		return "", domain.WrapOp("web search", err)
	}

	if len(results) == 0 {
		err := fmt.Errorf("%w: no search results found for: %s", domain.ErrNoResults, query)
		tracer.RecordError(span, err)
		return "", err
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}

	content := formatSearchResults(query, results)
	w.putCache(cacheKey, content)

	w.logger.Debug("web search completed",
		"provider", w.backend.Name(), "query", query, "results", len(results))
	span.SetAttributes(tracer.IntAttr("tool.results", len(results)))
	tracer.SetOK(span)
	return content, nil
}

// formatSearchResults converts search results to a compact text block for
// prompt grounding. Each snippet is capped at snippetLimit characters.
func formatSearchResults(query string, results []SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for '%s':\n\n", query)
	for i, r := range results {
		snippet := r.Content
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n   %s...\n\n", i+1, r.Title, r.URL, snippet)
	}
	return sb.String()
}

// getCached returns a cached result if it exists and has not expired.
func (w *WebSearch) getCached(key string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.cache[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(w.cache, key)
		return "", false
	}
	return entry.result, true
}

// putCache stores a result in the cache with the configured TTL.
func (w *WebSearch) putCache(key, result string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cache[key] = cacheEntry{
		result:    result,
		expiresAt: time.Now().Add(w.cacheTTL),
	}

	// Lazy eviction: remove expired entries if cache grows large.
	if len(w.cache) > 100 {
		now := time.Now()
		for k, v := range w.cache {
			if now.After(v.expiresAt) {
				delete(w.cache, k)
			}
		}
	}
}

// NewSearchBackend constructs the backend named by provider from tool settings.
func NewSearchBackend(provider string, cfg config.ToolsConfig, logger *slog.Logger) (SearchBackend, error) {
	switch provider {
	case "searxng":
		return NewSearXNGBackend(cfg.SearXNGURL, logger), nil
	case "brave":
		return NewBraveBackend(cfg.BraveAPIKey, logger), nil
	case "tavily":
		return NewTavilyBackend(cfg.TavilyAPIKey, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown search provider %q", domain.ErrInvalidInput, provider)
	}
}

var _ domain.WebSearchClient = (*WebSearch)(nil)
