package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
)

// mockEmbeddingService returns canned vectors keyed by text, falling
// back to a fixed vector for unknown inputs.
type mockEmbeddingService struct {
	mu      sync.Mutex
	model   string
	dims    int
	vectors map[string][]float32

	embedErr error
	batchErr error

	// failFirst makes the first n Embed calls fail, for retry tests.
	failFirst  int
	embedCalls int
	batchCalls int
}

var _ driven.EmbeddingService = (*mockEmbeddingService)(nil)

func newMockEmbedder() *mockEmbeddingService {
	return &mockEmbeddingService{
		model:   "mock-embed",
		dims:    3,
		vectors: make(map[string][]float32),
	}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failFirst > 0 {
		m.failFirst--
		return nil, fmt.Errorf("transient provider failure")
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	batchErr := m.batchErr
	m.mu.Unlock()
	if batchErr != nil {
		return nil, batchErr
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int  { return m.dims }
func (m *mockEmbeddingService) ModelName() string { return m.model }

func (m *mockEmbeddingService) Ping(context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error               { return nil }

// mockLLMService returns a canned reply and records the messages it
// was asked to complete.
type mockLLMService struct {
	mu       sync.Mutex
	reply    string
	chatErr  error
	model    string
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

var _ driven.LLMService = (*mockLLMService)(nil)

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = messages
	m.opts = opts
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLMService) ModelName() string {
	if m.model == "" {
		return "mock-llm"
	}
	return m.model
}

func (m *mockLLMService) Ping(context.Context) error { return nil }
func (m *mockLLMService) Close() error               { return nil }

// mockRetriever returns a canned grounding set.
type mockRetriever struct {
	chunks []domain.RetrievedChunk
	err    error
}

func (m *mockRetriever) Retrieve(context.Context, string, int, float64) ([]domain.RetrievedChunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}
