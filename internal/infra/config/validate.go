package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks the configuration for structural correctness. It returns a
// *ValidationError when one or more problems are found, allowing callers to
// inspect all issues at once.
func (c *Config) Validate() error {
	ve := &ValidationError{}
	c.validateAgents(ve)
	c.validateGeneration(ve)
	c.validateTools(ve)
	c.validateEmbedding(ve)
	c.validateDispatch(ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func (c *Config) validateAgents(ve *ValidationError) {
	if len(c.Agents) == 0 {
		ve.Add("agents: at least one agent must be configured")
		return
	}

	seen := make(map[string]bool)
	for i, a := range c.Agents {
		if a.ID == "" {
			ve.Add("agents[%d].id must not be empty", i)
			continue
		}
		if seen[a.ID] {
			ve.Add("agents[%d]: duplicate agent id %q", i, a.ID)
		}
		seen[a.ID] = true

		if a.Name == "" {
			ve.Add("agents[%d] (%s): name must not be empty", i, a.ID)
		}
		if a.SystemPrompt == "" {
			ve.Add("agents[%d] (%s): system_prompt must not be empty", i, a.ID)
		}
		if ws := a.Capabilities.WebSearch; ws != nil && ws.Enabled && !validSearchProviders[ws.Provider] {
			ve.Add("agents[%d] (%s): web_search.provider %q is invalid (want: brave, tavily, searxng)", i, a.ID, ws.Provider)
		}
		if w := a.Capabilities.Weather; w != nil && w.Enabled && w.Units != "metric" && w.Units != "imperial" {
			ve.Add("agents[%d] (%s): weather.units %q is invalid (want: metric, imperial)", i, a.ID, w.Units)
		}
	}
}

var validProviderTypes = map[string]bool{
	"openai":  true,
	"bedrock": true,
}

func (c *Config) validateGeneration(ve *ValidationError) {
	if len(c.Generation.Providers) == 0 {
		ve.Add("generation.providers: at least one provider must be configured")
		return
	}

	seen := make(map[string]bool)
	foundPrimary := false
	for i, p := range c.Generation.Providers {
		if p.Name == "" {
			ve.Add("generation.providers[%d].name must not be empty", i)
			continue
		}
		if seen[p.Name] {
			ve.Add("generation.providers[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = true

		if !validProviderTypes[p.Type] {
			ve.Add("generation.providers[%d].type %q is invalid (want: openai, bedrock)", i, p.Type)
		}
		if p.Type == "openai" && p.APIKey == "" {
			ve.Add("generation.providers[%d] (%s): api_key is empty (set via OPENAI_API_KEY)", i, p.Name)
		}
		if p.Type == "bedrock" && p.Region == "" {
			ve.Add("generation.providers[%d] (%s): region is required for bedrock provider", i, p.Name)
		}
		if p.Model == "" {
			ve.Add("generation.providers[%d] (%s): model must not be empty", i, p.Name)
		}
		if p.Name == c.Generation.Primary {
			foundPrimary = true
		}
	}

	if !foundPrimary && c.Generation.Primary != "" {
		ve.Add("generation.primary %q does not match any configured provider", c.Generation.Primary)
	}
	for _, fb := range c.Generation.Fallbacks {
		if !seen[fb] {
			ve.Add("generation.fallbacks: %q does not match any configured provider", fb)
		}
	}
	if rl := c.Generation.RateLimit; rl.RequestsPerSecond > 0 && rl.Burst <= 0 {
		ve.Add("generation.rate_limit.burst must be > 0 when requests_per_second is set")
	}
}

var validSearchProviders = map[string]bool{
	"brave":   true,
	"tavily":  true,
	"searxng": true,
}

func (c *Config) validateTools(ve *ValidationError) {
	if !validSearchProviders[c.Tools.SearchProvider] {
		ve.Add("tools.search_provider %q is invalid (want: brave, tavily, searxng)", c.Tools.SearchProvider)
	}

	weatherEnabled := false
	searchProviders := make(map[string]bool)
	retrievalEnabled := false
	for _, a := range c.Agents {
		if w := a.Capabilities.Weather; w != nil && w.Enabled {
			weatherEnabled = true
		}
		if ws := a.Capabilities.WebSearch; ws != nil && ws.Enabled {
			searchProviders[ws.Provider] = true
		}
		if r := a.Capabilities.Retrieval; r != nil && r.Enabled {
			retrievalEnabled = true
		}
	}

	if weatherEnabled && c.Tools.WeatherAPIKey == "" {
		ve.Add("tools.weather_api_key is empty but an agent has weather enabled (set via OPENWEATHERMAP_API_KEY)")
	}
	if searchProviders["brave"] && c.Tools.BraveAPIKey == "" {
		ve.Add("tools.brave_api_key is empty but an agent uses the brave search provider (set via BRAVE_API_KEY)")
	}
	if searchProviders["tavily"] && c.Tools.TavilyAPIKey == "" {
		ve.Add("tools.tavily_api_key is empty but an agent uses the tavily search provider (set via TAVILY_API_KEY)")
	}
	if searchProviders["searxng"] && c.Tools.SearXNGURL == "" {
		ve.Add("tools.searxng_url is empty but an agent uses the searxng search provider")
	}
	if retrievalEnabled && c.Tools.RetrievalDBPath == "" {
		ve.Add("tools.retrieval_db_path must not be empty when an agent has retrieval enabled")
	}
}

func (c *Config) validateEmbedding(ve *ValidationError) {
	retrievalEnabled := false
	for _, a := range c.Agents {
		if r := a.Capabilities.Retrieval; r != nil && r.Enabled {
			retrievalEnabled = true
			break
		}
	}
	if !retrievalEnabled {
		return
	}

	if c.Embedding.Model == "" {
		ve.Add("embedding.model must not be empty when an agent has retrieval enabled")
	}
	if c.Embedding.APIKey == "" {
		ve.Add("embedding.api_key is empty but an agent has retrieval enabled (set via OPENAI_API_KEY)")
	}
	if c.Embedding.Dimensions <= 0 {
		ve.Add("embedding.dimensions must be > 0 when an agent has retrieval enabled")
	}
}

func (c *Config) validateDispatch(ve *ValidationError) {
	if c.Dispatch.MaxParallel <= 0 {
		ve.Add("dispatch.max_parallel must be > 0")
	}
}
