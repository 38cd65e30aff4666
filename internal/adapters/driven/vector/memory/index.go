// Package memory provides an in-process vector index using exhaustive
// cosine similarity search. The corpus is small enough that brute
// force beats the operational cost of an external vector database; the
// persisted embeddings live in the document store and are reloaded at
// process start.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory brute-force cosine similarity index.
//
// Records are replaced wholesale under the write lock, so a concurrent
// search observes the old vector or the new one, never a torn write.
type Index struct {
	mu      sync.RWMutex
	records map[string]driven.EmbeddingRecord
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		records: make(map[string]driven.EmbeddingRecord),
	}
}

// Load bulk-inserts persisted records, replacing any existing entries.
// Used to rebuild the index at process start.
func (i *Index) Load(recs []driven.EmbeddingRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, rec := range recs {
		i.records[rec.ChunkID] = rec
	}
}

// Upsert inserts or replaces the vector for a chunk.
func (i *Index) Upsert(_ context.Context, rec driven.EmbeddingRecord) error {
	if rec.ChunkID == "" {
		return fmt.Errorf("upsert: missing chunk id")
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("upsert %s: empty vector", rec.ChunkID)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.records[rec.ChunkID] = rec
	return nil
}

// Remove deletes a vector from the index.
func (i *Index) Remove(_ context.Context, chunkID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.records, chunkID)
	return nil
}

// Search returns the k records most similar to the query vector,
// ordered by descending cosine similarity, ties broken by lower chunk
// ID for determinism. A record produced by a different embedding model
// than the query fails the whole call with domain.ErrModelMismatch.
func (i *Index) Search(_ context.Context, query []float32, model string, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(i.records))
	for _, rec := range i.records {
		if rec.Model != model {
			return nil, fmt.Errorf(
				"%w: index holds %q vectors, query embedded with %q",
				domain.ErrModelMismatch, rec.Model, model,
			)
		}
		if len(rec.Vector) != len(query) {
			return nil, fmt.Errorf(
				"%w: dimension %d vs query %d for model %q",
				domain.ErrModelMismatch, len(rec.Vector), len(query), model,
			)
		}
		hits = append(hits, driven.VectorHit{
			ChunkID: rec.ChunkID,
			Score:   cosineSimilarity(query, rec.Vector),
		})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ChunkID < hits[b].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

// Close releases resources.
func (i *Index) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two
// vectors. Zero vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for n := range a {
		dot += float64(a[n]) * float64(b[n])
		normA += float64(a[n]) * float64(a[n])
		normB += float64(b[n]) * float64(b[n])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
