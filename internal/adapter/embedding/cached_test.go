package embedding

import (
	"context"
	"fmt"
	"testing"

	"switchboard/internal/domain"
)

type countingEmbedder struct {
	calls int
	dims  int
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(e.calls)}
	}
	return out, nil
}
func (e *countingEmbedder) Dimensions() int { return e.dims }
func (e *countingEmbedder) Name() string    { return "counting" }

func TestCachedEmbedderHit(t *testing.T) {
	inner := &countingEmbedder{dims: 2}
	c := NewCachedEmbedder(inner, 10)

	first, err := c.Embed(context.Background(), []string{"weather in hanoi"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := c.Embed(context.Background(), []string{"weather in hanoi"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if first[0][1] != second[0][1] {
		t.Errorf("cached vector differs: %v vs %v", first[0], second[0])
	}
}

func TestCachedEmbedderEviction(t *testing.T) {
	inner := &countingEmbedder{dims: 2}
	c := NewCachedEmbedder(inner, 2)

	for _, q := range []string{"a", "b", "c"} {
		if _, err := c.Embed(context.Background(), []string{q}); err != nil {
			t.Fatalf("Embed(%q): %v", q, err)
		}
	}
	// "a" was evicted by "c"; re-embedding it hits the provider again.
	if _, err := c.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.calls != 4 {
		t.Errorf("inner calls = %d, want 4", inner.calls)
	}
}

func TestCachedEmbedderCapacityBound(t *testing.T) {
	inner := &countingEmbedder{dims: 2}
	c := NewCachedEmbedder(inner, 100).(*CachedEmbedder)

	for i := 0; i < 250; i++ {
		if _, err := c.Embed(context.Background(), []string{fmt.Sprintf("query %d", i)}); err != nil {
			t.Fatalf("Embed: %v", err)
		}
	}
	if c.order.Len() != 100 {
		t.Errorf("memo size = %d, want 100", c.order.Len())
	}
}

func TestCachedEmbedderBatchPassThrough(t *testing.T) {
	inner := &countingEmbedder{dims: 2}
	c := NewCachedEmbedder(inner, 10)

	for i := 0; i < 2; i++ {
		if _, err := c.Embed(context.Background(), []string{"x", "y"}); err != nil {
			t.Fatalf("Embed: %v", err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (batches are not cached)", inner.calls)
	}
}

func TestNewCachedEmbedderZeroSize(t *testing.T) {
	inner := &countingEmbedder{dims: 2}
	var p domain.EmbeddingProvider = NewCachedEmbedder(inner, 0)
	if p != domain.EmbeddingProvider(inner) {
		t.Error("expected inner provider returned when maxSize <= 0")
	}
}
