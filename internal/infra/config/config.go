package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Agents     []AgentConfig    `yaml:"agents"`
	Generation GenerationConfig `yaml:"generation"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Tools      ToolsConfig      `yaml:"tools"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracer     TracerConfig     `yaml:"tracer"`
}

// SessionConfig holds per-session settings.
type SessionConfig struct {
	MaxHistory int `yaml:"max_history"` // messages kept per session (default 40)
}

// AgentConfig defines a single agent persona. Mirrors the domain Agent record.
type AgentConfig struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	SystemPrompt string             `yaml:"system_prompt"`
	Model        string             `yaml:"model,omitempty"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
}

// CapabilitiesConfig declares an agent's optional tool categories.
type CapabilitiesConfig struct {
	WebSearch       *WebSearchConfig `yaml:"web_search,omitempty"`
	Weather         *WeatherConfig   `yaml:"weather,omitempty"`
	Retrieval       *RetrievalConfig `yaml:"retrieval,omitempty"`
	RoutingKeywords []string         `yaml:"routing_keywords,omitempty"`
}

// WebSearchConfig configures web search for one agent.
type WebSearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Provider   string `yaml:"provider,omitempty"`    // "brave", "tavily", "searxng"
	MaxResults int    `yaml:"max_results,omitempty"` // default 3
}

// WeatherConfig configures weather lookup for one agent.
type WeatherConfig struct {
	Enabled bool   `yaml:"enabled"`
	Units   string `yaml:"units,omitempty"` // "metric" (default) or "imperial"
}

// RetrievalConfig configures document retrieval for one agent.
type RetrievalConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Collection string `yaml:"collection,omitempty"` // default "agent_<id>_docs"
	TopK       int    `yaml:"top_k,omitempty"`      // default 5
}

// GenerationConfig holds settings for the generation collaborators.
type GenerationConfig struct {
	Providers      []ProviderConfig     `yaml:"providers"`
	Primary        string               `yaml:"primary"`   // provider name; default: first listed
	Fallbacks      []string             `yaml:"fallbacks"` // provider names tried in order
	MaxTokens      int                  `yaml:"max_tokens"`
	Temperature    float64              `yaml:"temperature"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
}

// ProviderConfig holds settings for a single generation provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "openai", "bedrock"
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Region      string        `yaml:"region,omitempty"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// PoolConfig holds HTTP connection pool settings for a provider.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CircuitBreakerConfig configures generation circuit breaking.
type CircuitBreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"` // consecutive failures before open (default 5)
	Timeout     time.Duration `yaml:"timeout"`      // open duration before half-open (default 30s)
	Interval    time.Duration `yaml:"interval"`     // closed-state count reset period (default 60s)
}

// RateLimitConfig bounds generation request rate per session.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// EmbeddingConfig holds settings for the embedding provider.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"` // per-session query memo entries (default 100)
}

// ToolsConfig holds tool collaborator settings.
type ToolsConfig struct {
	InvokeTimeout time.Duration `yaml:"invoke_timeout"` // per tool call (default 10s)

	WeatherAPIKey  string `yaml:"weather_api_key"`
	WeatherBaseURL string `yaml:"weather_base_url"`

	SearchProvider string        `yaml:"search_provider"` // session default; agents may override
	BraveAPIKey    string        `yaml:"brave_api_key"`
	TavilyAPIKey   string        `yaml:"tavily_api_key"`
	SearXNGURL     string        `yaml:"searxng_url"`
	SearchCacheTTL time.Duration `yaml:"search_cache_ttl"`

	SearchRateLimit float64 `yaml:"search_rate_limit"` // provider requests per second; 0 = unlimited
	SearchRateBurst int     `yaml:"search_rate_burst"`

	RetrievalDBPath string `yaml:"retrieval_db_path"`
}

// DispatchConfig bounds parallel task execution.
type DispatchConfig struct {
	MaxParallel int `yaml:"max_parallel"` // concurrent task runners (default 5)
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Load reads, parses, and validates a YAML config file. Values prefixed with
// "enc:" are decrypted using the passphrase from SWITCHBOARD_CONFIG_KEY.
func Load(path string) (*Config, error) {
	if err := validatePermissions(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrConfigLoad, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if passphrase := os.Getenv("SWITCHBOARD_CONFIG_KEY"); passphrase != "" {
		if err := cfg.decryptSecrets(passphrase); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrConfigLoad is the sentinel for configuration loading failures.
var ErrConfigLoad = fmt.Errorf("failed to load configuration")

func (c *Config) applyDefaults() {
	if c.Session.MaxHistory <= 0 {
		c.Session.MaxHistory = 40
	}
	if c.Tools.InvokeTimeout <= 0 {
		c.Tools.InvokeTimeout = 10 * time.Second
	}
	if c.Tools.WeatherBaseURL == "" {
		c.Tools.WeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	}
	if c.Tools.SearchProvider == "" {
		c.Tools.SearchProvider = "searxng"
	}
	if c.Tools.SearchCacheTTL <= 0 {
		c.Tools.SearchCacheTTL = 15 * time.Minute
	}
	if c.Tools.RetrievalDBPath == "" {
		c.Tools.RetrievalDBPath = "./data/passages.db"
	}
	if c.Dispatch.MaxParallel <= 0 {
		c.Dispatch.MaxParallel = 5
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 100
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 512
	}
	if c.Generation.Primary == "" && len(c.Generation.Providers) > 0 {
		c.Generation.Primary = c.Generation.Providers[0].Name
	}
	for i := range c.Agents {
		a := &c.Agents[i]
		if ws := a.Capabilities.WebSearch; ws != nil {
			if ws.Provider == "" {
				ws.Provider = c.Tools.SearchProvider
			}
			if ws.MaxResults <= 0 {
				ws.MaxResults = 3
			}
		}
		if w := a.Capabilities.Weather; w != nil && w.Units == "" {
			w.Units = "metric"
		}
		if r := a.Capabilities.Retrieval; r != nil {
			if r.Collection == "" {
				r.Collection = "agent_" + strings.ReplaceAll(a.ID, "-", "_") + "_docs"
			}
			if r.TopK <= 0 {
				r.TopK = 5
			}
		}
	}
}

// applyEnvOverrides fills API keys from the environment when the config file
// leaves them empty.
func (c *Config) applyEnvOverrides() {
	fill := func(field *string, envVar string) {
		if *field == "" {
			*field = os.Getenv(envVar)
		}
	}
	fill(&c.Tools.WeatherAPIKey, "OPENWEATHERMAP_API_KEY")
	fill(&c.Tools.BraveAPIKey, "BRAVE_API_KEY")
	fill(&c.Tools.TavilyAPIKey, "TAVILY_API_KEY")
	fill(&c.Embedding.APIKey, "OPENAI_API_KEY")
	for i := range c.Generation.Providers {
		if c.Generation.Providers[i].Type == "openai" {
			fill(&c.Generation.Providers[i].APIKey, "OPENAI_API_KEY")
		}
	}
}

// decryptSecrets decrypts every "enc:"-prefixed secret field in place.
func (c *Config) decryptSecrets(passphrase string) error {
	secrets := []*string{
		&c.Tools.WeatherAPIKey,
		&c.Tools.BraveAPIKey,
		&c.Tools.TavilyAPIKey,
		&c.Embedding.APIKey,
	}
	for i := range c.Generation.Providers {
		secrets = append(secrets, &c.Generation.Providers[i].APIKey)
	}

	for _, fp := range secrets {
		if strings.HasPrefix(*fp, "enc:") {
			decrypted, err := DecryptValue(strings.TrimPrefix(*fp, "enc:"), passphrase)
			if err != nil {
				return fmt.Errorf("decrypt secret: %w", err)
			}
			*fp = decrypted
		}
	}
	return nil
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable).
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
