package domain

import "context"

// RetrievalClient searches a per-agent document collection and returns
// formatted passages with source attribution. Returns ErrNoResults when the
// collection exists but holds nothing relevant.
type RetrievalClient interface {
	Search(ctx context.Context, collection, query string, topK int) (string, error)
}

// WeatherClient resolves a location from free text and returns formatted
// current conditions. Returns ErrNoResults when no location can be determined.
type WeatherClient interface {
	Search(ctx context.Context, query, units string) (string, error)
}

// WebSearchClient performs a web search via a configured provider and returns
// formatted results. Returns ErrNoResults when the provider finds nothing.
type WebSearchClient interface {
	Search(ctx context.Context, query string, maxResults int) (string, error)
	Provider() string
}

// EmbeddingProvider converts texts into embedding vectors.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// Passage is one retrieved document chunk with its source attribution.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// PassageStore is the read side of the external document indexing pipeline.
type PassageStore interface {
	Search(ctx context.Context, collection string, queryVec []float32, topK int) ([]Passage, error)
}
