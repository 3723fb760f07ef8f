package usecase

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"switchboard/internal/domain"
)

// Canonical fallback strings surfaced instead of raw errors.
const (
	msgNoResults    = "I couldn't process your request."
	msgSingleError  = "I encountered an error."
	msgAllTasksFail = "I encountered errors processing your requests."
)

// ResponseAggregator merges per-task results into one reply string,
// preserving task order and dropping failed tasks.
type ResponseAggregator struct{}

// Aggregate combines task results. Failed or empty results are dropped in
// place; when nothing survives, a canonical failure message is returned so
// the caller never sees a raw error.
func (ResponseAggregator) Aggregate(results []domain.TaskResult) string {
	if len(results) == 0 {
		return msgNoResults
	}
	if len(results) == 1 {
		if results[0].Success {
			return results[0].Response
		}
		return msgSingleError
	}

	var responses []string
	for _, r := range results {
		if r.Success && strings.TrimSpace(r.Response) != "" {
			responses = append(responses, strings.TrimSpace(r.Response))
		}
	}

	switch len(responses) {
	case 0:
		return msgAllTasksFail
	case 2:
		return responses[0] + " Also, " + lowerLeading(responses[1])
	default:
		return strings.Join(responses, " ")
	}
}

// lowerLeading lowers the leading character of a sentence being spliced
// after "Also," so the joined reply reads as one utterance.
func lowerLeading(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// AllToolsUsed returns the deduplicated union of tool kinds across results,
// sorted for stable output. Observability only, never control flow.
func AllToolsUsed(results []domain.TaskResult) []domain.ToolKind {
	seen := make(map[domain.ToolKind]bool)
	var tools []domain.ToolKind
	for _, r := range results {
		for _, t := range r.ToolsUsed {
			if !seen[t] {
				seen[t] = true
				tools = append(tools, t)
			}
		}
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i] < tools[j] })
	return tools
}

// AllAgentsUsed returns the deduplicated agent names across results, sorted
// for stable output.
func AllAgentsUsed(results []domain.TaskResult) []string {
	seen := make(map[string]bool)
	var agents []string
	for _, r := range results {
		if !seen[r.Task.AgentName] {
			seen[r.Task.AgentName] = true
			agents = append(agents, r.Task.AgentName)
		}
	}
	sort.Strings(agents)
	return agents
}
