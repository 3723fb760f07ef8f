package usecase

import (
	"log/slog"
	"strings"

	"switchboard/internal/domain"
)

// KeywordRouter scores agents against a query using per-agent keyword sets
// and returns the best match. Routing never calls out to a model; it is a
// pure substring scorer so a turn can be routed in microseconds.
type KeywordRouter struct {
	agents   []domain.Agent
	keywords map[string][]string
	logger   *slog.Logger
}

// NewKeywordRouter builds the per-agent keyword sets once. Agents with the
// weather capability enabled get weather vocabulary added automatically so
// admins do not have to repeat it in routing_keywords.
func NewKeywordRouter(agents []domain.Agent, logger *slog.Logger) (*KeywordRouter, error) {
	if len(agents) == 0 {
		return nil, domain.ErrNoAgents
	}

	keywords := make(map[string][]string, len(agents))
	for _, agent := range agents {
		seen := make(map[string]bool)
		var kws []string
		add := func(kw string) {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				return
			}
			seen[kw] = true
			kws = append(kws, kw)
		}

		for _, kw := range agent.Capabilities.RoutingKeywords {
			add(kw)
		}
		if agent.Capabilities.WeatherEnabled() {
			add("weather")
			add("temperature")
			add("forecast")
		}

		keywords[agent.ID] = kws
		if len(kws) > 0 {
			logger.Debug("agent routing keywords configured",
				"agent", agent.Name, "keywords", len(kws))
		}
	}

	logger.Info("keyword routing configured", "agents", len(agents))
	return &KeywordRouter{agents: agents, keywords: keywords, logger: logger}, nil
}

// Route returns the agent whose keywords best match the query. Ties go to
// the agent listed first; a zero score everywhere falls back to the first
// agent. Route is total: it always returns an agent.
func (r *KeywordRouter) Route(query string) domain.Agent {
	q := strings.ToLower(query)

	best := r.agents[0]
	bestScore := 0
	for _, agent := range r.agents {
		score := 0
		for _, kw := range r.keywords[agent.ID] {
			if strings.Contains(q, kw) {
				score++
			}
		}
		if score > bestScore {
			best = agent
			bestScore = score
		}
	}

	r.logger.Debug("routed query", "agent", best.Name, "score", bestScore)
	return best
}

// Agents returns the configured agent list in listing order.
func (r *KeywordRouter) Agents() []domain.Agent {
	return r.agents
}
