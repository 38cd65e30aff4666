package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
	"github.com/music-assist/backend/internal/core/ports/driving"
	"github.com/music-assist/backend/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Default retrieval parameters.
const (
	// DefaultTopK is the default number of chunks retrieved per query.
	DefaultTopK = 4

	// DefaultMinScore is the similarity floor below which a chunk is
	// considered irrelevant and excluded from grounding.
	DefaultMinScore = 0.25
)

// Retriever answers similarity queries against the vector index and
// hydrates hits with their chunk and parent document.
//
// The query embedding is computed by the same EmbeddingService that
// indexed the corpus; the index rejects mixed-model searches with
// domain.ErrModelMismatch rather than degrade silently.
type Retriever struct {
	docStore driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
}

// NewRetriever creates a retriever over the given store and index.
func NewRetriever(
	docStore driven.DocumentStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
) *Retriever {
	return &Retriever{
		docStore: docStore,
		index:    index,
		embedder: embedder,
	}
}

// Retrieve returns up to k chunks scoring at least minScore, ordered
// by descending similarity. An empty slice means no grounding passed
// the threshold.
func (r *Retriever) Retrieve(
	ctx context.Context, queryText string, k int, minScore float64,
) ([]domain.RetrievedChunk, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return []domain.RetrievedChunk{}, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q (k=%d, min score %.2f)", queryText, k, minScore)

	vec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, classifyProviderErr("embed query", err)
	}
	logger.Debug("Query embedding: %d dimensions, model %s", len(vec), r.embedder.ModelName())

	hits, err := r.index.Search(ctx, vec, r.embedder.ModelName(), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search: %d hits", len(hits))

	results := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < minScore {
			// Hits are ordered by score; everything after is below too
			break
		}

		chunk, err := r.docStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Chunk retired between search and hydration
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}

		doc, err := r.docStore.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
		}

		results = append(results, domain.RetrievedChunk{
			Chunk:    *chunk,
			Document: *doc,
			Score:    hit.Score,
		})
	}

	logger.Info("Retrieved %d of %d hits above threshold", len(results), len(hits))
	return results, nil
}
