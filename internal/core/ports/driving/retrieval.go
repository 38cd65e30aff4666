package driving

import (
	"context"

	"github.com/music-assist/backend/internal/core/domain"
)

// RetrievalService returns the indexed passages most relevant to a
// query, ranked by descending similarity.
type RetrievalService interface {
	// Retrieve embeds the query and returns up to k chunks scoring at
	// least minScore, each hydrated with its parent document. An empty
	// result means no grounding was found; callers must handle that
	// explicitly rather than answer ungrounded.
	Retrieve(ctx context.Context, queryText string, k int, minScore float64) ([]domain.RetrievedChunk, error)
}
