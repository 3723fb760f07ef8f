package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"switchboard/internal/domain"
)

var _ domain.Generator = (*FailoverGenerator)(nil)

// FailoverGenerator wraps a primary generator with fallback generators.
// If the primary fails, it tries each fallback in order.
type FailoverGenerator struct {
	primary   domain.Generator
	fallbacks []domain.Generator
	logger    *slog.Logger
}

// NewFailoverGenerator creates a failover-capable generator.
func NewFailoverGenerator(primary domain.Generator, fallbacks []domain.Generator, logger *slog.Logger) *FailoverGenerator {
	return &FailoverGenerator{
		primary:   primary,
		fallbacks: fallbacks,
		logger:    logger,
	}
}

// Generate tries the primary generator first, then each fallback on failure.
func (f *FailoverGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
	resp, err := f.primary.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	f.logger.Warn("primary generator failed, trying fallbacks",
		"primary", f.primary.Name(), "error", err)

	allErrors := []string{fmt.Sprintf("%s: %v", f.primary.Name(), err)}

	for _, fb := range f.fallbacks {
		resp, err = fb.Generate(ctx, req)
		if err == nil {
			f.logger.Info("failover succeeded", "provider", fb.Name())
			return resp, nil
		}
		f.logger.Warn("fallback generator failed", "provider", fb.Name(), "error", err)
		allErrors = append(allErrors, fmt.Sprintf("%s: %v", fb.Name(), err))
	}

	return nil, fmt.Errorf("all providers failed: [%s]", strings.Join(allErrors, "; "))
}

// Name returns a composite name.
func (f *FailoverGenerator) Name() string {
	return f.primary.Name() + "+failover"
}
