package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
)

type mockGenerator struct {
	name    string
	genFunc func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
	return m.genFunc(ctx, req)
}
func (m *mockGenerator) Name() string { return m.name }

func TestFailoverPrimarySuccess(t *testing.T) {
	primary := &mockGenerator{
		name: "primary",
		genFunc: func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error) {
			return &domain.GenerationResponse{Text: "primary response"}, nil
		},
	}
	fallback := &mockGenerator{
		name: "fallback",
		genFunc: func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error) {
			t.Fatal("fallback should not be called")
			return nil, nil
		},
	}

	fg := NewFailoverGenerator(primary, []domain.Generator{fallback}, newTestLogger())
	resp, err := fg.Generate(context.Background(), domain.GenerationRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "primary response" {
		t.Errorf("Text = %q, want %q", resp.Text, "primary response")
	}
}

func TestFailoverFallbackUsed(t *testing.T) {
	primary := &mockGenerator{
		name: "primary",
		genFunc: func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error) {
			return nil, errors.New("primary down")
		},
	}
	fallback := &mockGenerator{
		name: "fallback",
		genFunc: func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error) {
			return &domain.GenerationResponse{Text: "fallback response"}, nil
		},
	}

	fg := NewFailoverGenerator(primary, []domain.Generator{fallback}, newTestLogger())
	resp, err := fg.Generate(context.Background(), domain.GenerationRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "fallback response" {
		t.Errorf("Text = %q, want %q", resp.Text, "fallback response")
	}
}

func TestFailoverAllFail(t *testing.T) {
	fail := func(name string) *mockGenerator {
		return &mockGenerator{
			name: name,
			genFunc: func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error) {
				return nil, errors.New(name + " down")
			},
		}
	}

	fg := NewFailoverGenerator(fail("primary"), []domain.Generator{fail("fb1"), fail("fb2")}, newTestLogger())
	_, err := fg.Generate(context.Background(), domain.GenerationRequest{})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	for _, name := range []string{"primary", "fb1", "fb2"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	failing := &mockGenerator{
		name: "flaky",
		genFunc: func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error) {
			calls++
			return nil, errors.New("boom")
		},
	}

	cb := NewCircuitBreakerGenerator(failing, config.CircuitBreakerConfig{MaxFailures: 3}, newTestLogger())

	for i := 0; i < 5; i++ {
		_, err := cb.Generate(context.Background(), domain.GenerationRequest{})
		if err == nil {
			t.Fatal("expected error")
		}
	}
	if calls != 3 {
		t.Errorf("inner calls = %d, want 3 (circuit should be open after)", calls)
	}
}

func TestRateLimitedGeneratorPassesThrough(t *testing.T) {
	inner := &mockGenerator{
		name: "inner",
		genFunc: func(context.Context, domain.GenerationRequest) (*domain.GenerationResponse, error) {
			return &domain.GenerationResponse{Text: "ok"}, nil
		},
	}

	rl := NewRateLimitedGenerator(inner, config.RateLimitConfig{RequestsPerSecond: 100, Burst: 10})
	resp, err := rl.Generate(context.Background(), domain.GenerationRequest{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Text = %q, want %q", resp.Text, "ok")
	}
	if rl.Name() != "inner" {
		t.Errorf("Name = %q, want inner", rl.Name())
	}
}

func TestBuildUnknownProviderType(t *testing.T) {
	_, err := Build(config.GenerationConfig{
		Primary: "x",
		Providers: []config.ProviderConfig{
			{Name: "x", Type: "mystery"},
		},
	}, newTestLogger())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
