package domain

// Agent is a configured specialist persona. Agent records are loaded once
// per session from configuration and are read-only afterwards.
type Agent struct {
	ID           string       `json:"id"            yaml:"id"`
	Name         string       `json:"name"          yaml:"name"`
	Description  string       `json:"description"   yaml:"description"`
	SystemPrompt string       `json:"system_prompt" yaml:"system_prompt"`
	Model        string       `json:"model,omitempty" yaml:"model,omitempty"`
	Capabilities Capabilities `json:"capabilities"  yaml:"capabilities"`
}

// Capabilities declares which optional tool categories an agent may invoke.
// A nil sub-structure means the capability is absent entirely; an explicit
// Enabled flag distinguishes "configured but off".
type Capabilities struct {
	WebSearch       *WebSearchCapability `json:"web_search,omitempty" yaml:"web_search,omitempty"`
	Weather         *WeatherCapability   `json:"weather,omitempty"    yaml:"weather,omitempty"`
	Retrieval       *RetrievalCapability `json:"retrieval,omitempty"  yaml:"retrieval,omitempty"`
	RoutingKeywords []string             `json:"routing_keywords,omitempty" yaml:"routing_keywords,omitempty"`
}

// WebSearchCapability configures the web-search tool for one agent.
type WebSearchCapability struct {
	Enabled    bool   `json:"enabled"     yaml:"enabled"`
	Provider   string `json:"provider,omitempty"    yaml:"provider,omitempty"`
	MaxResults int    `json:"max_results,omitempty" yaml:"max_results,omitempty"`
}

// WeatherCapability configures the weather tool for one agent.
type WeatherCapability struct {
	Enabled bool   `json:"enabled"         yaml:"enabled"`
	Units   string `json:"units,omitempty" yaml:"units,omitempty"` // "metric" or "imperial"
}

// RetrievalCapability configures document retrieval for one agent.
type RetrievalCapability struct {
	Enabled    bool   `json:"enabled"              yaml:"enabled"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	TopK       int    `json:"top_k,omitempty"      yaml:"top_k,omitempty"`
}

// WebSearchEnabled reports whether web search is configured and on.
func (c Capabilities) WebSearchEnabled() bool {
	return c.WebSearch != nil && c.WebSearch.Enabled
}

// WeatherEnabled reports whether weather lookup is configured and on.
func (c Capabilities) WeatherEnabled() bool {
	return c.Weather != nil && c.Weather.Enabled
}

// RetrievalEnabled reports whether document retrieval is configured and on.
func (c Capabilities) RetrievalEnabled() bool {
	return c.Retrieval != nil && c.Retrieval.Enabled
}
