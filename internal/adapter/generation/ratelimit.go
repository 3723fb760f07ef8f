package generation

import (
	"context"

	"golang.org/x/time/rate"

	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
)

var _ domain.Generator = (*RateLimitedGenerator)(nil)

// RateLimitedGenerator bounds the request rate to the wrapped generator.
// Generate blocks until a token is available or the context is cancelled.
type RateLimitedGenerator struct {
	inner   domain.Generator
	limiter *rate.Limiter
}

// NewRateLimitedGenerator wraps inner with a token-bucket rate limiter.
// A zero requests-per-second setting disables limiting.
func NewRateLimitedGenerator(inner domain.Generator, cfg config.RateLimitConfig) *RateLimitedGenerator {
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}
	return &RateLimitedGenerator{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Generate implements domain.Generator.
func (g *RateLimitedGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, domain.WrapOp("generation rate limit", err)
	}
	return g.inner.Generate(ctx, req)
}

// Name implements domain.Generator.
func (g *RateLimitedGenerator) Name() string { return g.inner.Name() }
