package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"switchboard/internal/domain"
	"switchboard/internal/infra/tracer"
)

// Retrieval implements domain.RetrievalClient over an embedding provider and
// a passage store. The store is written by the document indexing pipeline;
// this client only reads.
type Retrieval struct {
	embedder domain.EmbeddingProvider
	store    domain.PassageStore
	logger   *slog.Logger
}

// NewRetrieval creates a retrieval client.
func NewRetrieval(embedder domain.EmbeddingProvider, store domain.PassageStore, logger *slog.Logger) *Retrieval {
	return &Retrieval{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Search implements domain.RetrievalClient. Returns ErrNoResults when the
// collection is empty or nothing relevant is found.
func (r *Retrieval) Search(ctx context.Context, collection, query string, topK int) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "tool.retrieval",
		trace.WithAttributes(
			tracer.StringAttr("tool.collection", collection),
			tracer.StringAttr("tool.query", query),
		),
	)
	defer span.End()

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		tracer.RecordError(span, err)
		return "", domain.WrapOp("embed query", err)
	}
	if len(vecs) == 0 {
		err := fmt.Errorf("%w: embedding provider returned no vector", domain.ErrProviderError)
		tracer.RecordError(span, err)
		return "", err
	}

	passages, err := r.store.Search(ctx, collection, vecs[0], topK)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}
	if len(passages) == 0 {
		err := fmt.Errorf("%w: no relevant information found in the documents", domain.ErrNoResults)
		tracer.RecordError(span, err)
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Relevant information from documents:\n\n")
	for i, p := range passages {
		source := p.Source
		if source == "" {
			source = "Unknown"
		}
		fmt.Fprintf(&sb, "%d. (Source: %s)\n%s\n\n", i+1, source, p.Content)
	}

	r.logger.Debug("retrieval completed",
		"collection", collection, "passages", len(passages))
	span.SetAttributes(tracer.IntAttr("tool.passages", len(passages)))
	tracer.SetOK(span)
	return sb.String(), nil
}

var _ domain.RetrievalClient = (*Retrieval)(nil)
