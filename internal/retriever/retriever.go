// Package retriever answers queries against the vector index built by the
// indexer, using the same embedding function the index was built with.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"axisconnect/internal/domain"
	"axisconnect/internal/indexer"
)

// DefaultTopK bounds how many chunks enter a prompt.
const DefaultTopK = 4

// Retriever performs semantic retrieval over a built index.
type Retriever struct {
	embedder domain.Embedder
	topK     int
	logger   *slog.Logger
}

func New(embedder domain.Embedder, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, topK: topK, logger: logger}
}

// Retrieve returns the topK chunks nearest to the query, nearest first. An
// unavailable index yields an empty result and no error. A query vector that
// does not match the index's embedding space is rejected, never served with
// silently degraded relevance.
func (r *Retriever) Retrieve(ctx context.Context, index *indexer.Index, query string) ([]domain.SearchResult, error) {
	if !index.Available() {
		return nil, nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vec) != index.Meta().Dimension {
		return nil, fmt.Errorf("query dimension %d against index dimension %d: %w",
			len(vec), index.Meta().Dimension, domain.ErrDimensionMismatch)
	}
	results, err := index.Store().Search(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	r.logger.Debug("retrieved chunks", "query_len", len(query), "results", len(results))
	return results, nil
}
