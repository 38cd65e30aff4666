package services

import (
	"context"
	"fmt"

	"github.com/music-assist/backend/internal/chunker"
	"github.com/music-assist/backend/internal/core/ports/driven"
	"github.com/music-assist/backend/internal/core/ports/driving"
)

// Ensure StatsService implements the interface.
var _ driving.StatsService = (*StatsService)(nil)

// StatsService reports corpus and pipeline state.
type StatsService struct {
	docStore  driven.DocumentStore
	convStore driven.ConversationStore
	index     driven.VectorIndex
	embedder  driven.EmbeddingService
	llm       driven.LLMService
	chunker   *chunker.Chunker
}

// NewStatsService creates a stats service.
func NewStatsService(
	docStore driven.DocumentStore,
	convStore driven.ConversationStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	ck *chunker.Chunker,
) *StatsService {
	return &StatsService{
		docStore:  docStore,
		convStore: convStore,
		index:     index,
		embedder:  embedder,
		llm:       llm,
		chunker:   ck,
	}
}

// Stats returns current corpus and pipeline statistics.
func (s *StatsService) Stats(ctx context.Context) (*driving.Stats, error) {
	docs, err := s.docStore.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := s.docStore.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	convs, err := s.convStore.CountConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}

	return &driving.Stats{
		Documents:       docs,
		Chunks:          chunks,
		Vectors:         s.index.Len(),
		Conversations:   convs,
		EmbeddingModel:  s.embedder.ModelName(),
		GenerationModel: s.llm.ModelName(),
		ChunkSize:       s.chunker.Size(),
		ChunkOverlap:    s.chunker.Overlap(),
	}, nil
}
