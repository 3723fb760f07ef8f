package usecase

import (
	"strings"

	"switchboard/internal/domain"
)

// weatherTriggers is the vocabulary that marks a query as a weather lookup.
var weatherTriggers = []string{
	"weather", "temperature", "forecast", "rain", "sunny", "cloudy",
	"hot", "cold", "humid", "wind", "snow", "storm",
}

// webSearchTriggers marks queries that need real-time information.
var webSearchTriggers = []string{
	"news", "today", "current", "latest", "recent",
	"price", "stock", "bitcoin", "crypto",
	"who is", "when did", "what happened", "what is",
	"prime minister", "president", "election",
}

// CapabilitySelector decides which tool kinds apply to a task given its
// query and the assigned agent's capability configuration.
//
// Retrieval is selected whenever enabled: document grounding is always
// consulted regardless of query wording. Weather and web search are trigger
// gated, and weather suppresses web search so the same task never gets two
// overlapping live-data sources.
type CapabilitySelector struct{}

// Select returns the tool kinds to invoke for the query, in no particular
// order. Never returns both ToolWeather and ToolWebSearch.
func (CapabilitySelector) Select(query string, caps domain.Capabilities) []domain.ToolKind {
	q := strings.ToLower(query)

	var kinds []domain.ToolKind
	if caps.RetrievalEnabled() {
		kinds = append(kinds, domain.ToolRetrieval)
	}

	weather := caps.WeatherEnabled() && matchesAny(q, weatherTriggers)
	if weather {
		kinds = append(kinds, domain.ToolWeather)
	}
	if !weather && caps.WebSearchEnabled() && matchesAny(q, webSearchTriggers) {
		kinds = append(kinds, domain.ToolWebSearch)
	}

	return kinds
}

func matchesAny(query string, triggers []string) bool {
	for _, t := range triggers {
		if strings.Contains(query, t) {
			return true
		}
	}
	return false
}
