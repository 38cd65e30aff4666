package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/music-assist/backend/internal/adapters/driven/storage/memory"
	vectormem "github.com/music-assist/backend/internal/adapters/driven/vector/memory"
	"github.com/music-assist/backend/internal/chunker"
	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
)

func TestStatsService_Stats(t *testing.T) {
	ctx := context.Background()

	docStore := storagemem.NewDocumentStore()
	convStore := storagemem.NewConversationStore()
	index := vectormem.NewIndex()
	embedder := newMockEmbedder()
	llm := &mockLLMService{model: "gpt-4o-mini"}
	ck := chunker.New(chunker.WithChunkSize(500), chunker.WithOverlap(100))

	require.NoError(t, docStore.SaveDocument(ctx, &domain.Document{ID: "doc-1"}))
	require.NoError(t, docStore.SaveChunks(ctx, []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1"},
		{ID: "c-2", DocumentID: "doc-1"},
	}))
	require.NoError(t, index.Upsert(ctx, driven.EmbeddingRecord{
		ChunkID: "c-1", Model: embedder.ModelName(), Vector: []float32{1},
	}))
	require.NoError(t, convStore.SaveConversation(ctx, &domain.Conversation{ID: "conv-1"}))

	svc := NewStatsService(docStore, convStore, index, embedder, llm, ck)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 1, stats.Vectors)
	assert.Equal(t, 1, stats.Conversations)
	assert.Equal(t, "mock-embed", stats.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", stats.GenerationModel)
	assert.Equal(t, 500, stats.ChunkSize)
	assert.Equal(t, 100, stats.ChunkOverlap)
}

func TestStatsService_EmptyCorpus(t *testing.T) {
	svc := NewStatsService(
		storagemem.NewDocumentStore(),
		storagemem.NewConversationStore(),
		vectormem.NewIndex(),
		newMockEmbedder(),
		&mockLLMService{},
		chunker.New(),
	)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 0, stats.Chunks)
	assert.Equal(t, 0, stats.Vectors)
	assert.Equal(t, 0, stats.Conversations)
}
