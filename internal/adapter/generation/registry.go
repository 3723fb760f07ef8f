package generation

import (
	"fmt"
	"log/slog"

	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
)

// newGenerator constructs a single provider from its config entry.
func newGenerator(cfg config.ProviderConfig, logger *slog.Logger) (domain.Generator, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIGenerator(cfg, logger), nil
	case "bedrock":
		return NewBedrockGenerator(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider type %q", domain.ErrInvalidInput, cfg.Type)
	}
}

// Build assembles the full generation chain from configuration:
// each provider gets a circuit breaker, the primary is wrapped with the
// configured fallbacks, and the whole chain is rate limited.
func Build(cfg config.GenerationConfig, logger *slog.Logger) (domain.Generator, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("%w: no generation providers configured", domain.ErrInvalidInput)
	}

	byName := make(map[string]domain.Generator, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		gen, err := newGenerator(pc, logger)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		byName[pc.Name] = NewCircuitBreakerGenerator(gen, cfg.CircuitBreaker, logger)
	}

	primary, ok := byName[cfg.Primary]
	if !ok {
		return nil, fmt.Errorf("%w: primary provider %q not configured", domain.ErrInvalidInput, cfg.Primary)
	}

	var fallbacks []domain.Generator
	for _, name := range cfg.Fallbacks {
		fb, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: fallback provider %q not configured", domain.ErrInvalidInput, name)
		}
		fallbacks = append(fallbacks, fb)
	}

	var chain domain.Generator = primary
	if len(fallbacks) > 0 {
		chain = NewFailoverGenerator(primary, fallbacks, logger)
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		chain = NewRateLimitedGenerator(chain, cfg.RateLimit)
	}
	return chain, nil
}
