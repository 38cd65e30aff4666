package driven

import "context"

// EmbeddingRecord is one persisted chunk embedding. The producing
// model is recorded alongside the vector so a search can refuse
// mixed-model comparisons instead of silently degrading.
type EmbeddingRecord struct {
	// ChunkID is the chunk this vector was computed from.
	ChunkID string

	// Model is the embedding model that produced the vector.
	Model string

	// Vector is the embedding.
	Vector []float32
}

// VectorIndex provides similarity search over chunk embeddings.
// Upserts and removals are incremental; an upsert is atomic from a
// reader's point of view - a concurrent search sees the old vector or
// the new one, never a torn write.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for a chunk.
	Upsert(ctx context.Context, rec EmbeddingRecord) error

	// Remove deletes a vector from the index. Removing an absent
	// chunk ID is a no-op.
	Remove(ctx context.Context, chunkID string) error

	// Search finds the k nearest neighbours to the query vector by
	// cosine similarity, ties broken by lower chunk ID. It fails with
	// domain.ErrModelMismatch when the index holds vectors produced
	// by a different model than the query.
	Search(ctx context.Context, query []float32, model string, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the cosine similarity (0-1 for normalised embeddings).
	Score float64
}

// EmbeddingStore persists embedding records so the vector index can be
// rebuilt at process start without re-embedding the corpus.
type EmbeddingStore interface {
	// SaveEmbedding stores or replaces the embedding for a chunk.
	SaveEmbedding(ctx context.Context, rec EmbeddingRecord) error

	// ListEmbeddings returns all persisted embedding records.
	ListEmbeddings(ctx context.Context) ([]EmbeddingRecord, error)

	// CountEmbeddings returns the number of persisted embeddings.
	CountEmbeddings(ctx context.Context) (int, error)
}
