package driving

import (
	"context"

	"github.com/music-assist/backend/internal/core/domain"
)

// AnswerService answers natural-language questions grounded in the
// indexed corpus. This is the sole contract the presentation layer
// depends on; it is stable regardless of which generation or embedding
// provider runs underneath.
type AnswerService interface {
	// Answer retrieves relevant passages for the message, generates a
	// grounded reply and appends the exchange to the conversation.
	// An empty conversationID starts a fresh conversation; an unknown
	// one degrades to a fresh conversation under a new ID.
	Answer(ctx context.Context, message, conversationID string) (*domain.Answer, error)
}

// Stats reports corpus and pipeline state for operators.
type Stats struct {
	Documents       int    `json:"documents"`
	Chunks          int    `json:"chunks"`
	Vectors         int    `json:"vectors"`
	Conversations   int    `json:"conversations"`
	EmbeddingModel  string `json:"embedding_model"`
	GenerationModel string `json:"generation_model"`
	ChunkSize       int    `json:"chunk_size"`
	ChunkOverlap    int    `json:"chunk_overlap"`
}

// StatsService exposes pipeline statistics.
type StatsService interface {
	// Stats returns current corpus and pipeline statistics.
	Stats(ctx context.Context) (*Stats, error)
}
