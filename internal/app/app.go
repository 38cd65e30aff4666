// Package app wires the application together: configuration, storage,
// the vector index and provider adapters are assembled here into the
// core services the driving adapters consume.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/music-assist/backend/internal/adapters/driven/config/file"
	ollamaembed "github.com/music-assist/backend/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/music-assist/backend/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/music-assist/backend/internal/adapters/driven/llm/ollama"
	openaillm "github.com/music-assist/backend/internal/adapters/driven/llm/openai"
	"github.com/music-assist/backend/internal/adapters/driven/storage/sqlite"
	vectormem "github.com/music-assist/backend/internal/adapters/driven/vector/memory"
	"github.com/music-assist/backend/internal/chunker"
	"github.com/music-assist/backend/internal/core/ports/driven"
	"github.com/music-assist/backend/internal/core/services"
	"github.com/music-assist/backend/internal/logger"
)

// Sentinel errors for construction failures.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("missing API key")
)

// App holds the wired application: stores, provider adapters and the
// core services driving adapters run against.
type App struct {
	Config Config

	ConfigStore *file.ConfigStore
	Prompts     *file.PromptStore
	Store       *sqlite.Store
	Index       *vectormem.Index

	Embedder driven.EmbeddingService
	LLM      driven.LLMService

	Ingestor      *services.Ingestor
	Retriever     *services.Retriever
	Conversations *services.ConversationService
	Answers       *services.AnswerComposer
	Stats         *services.StatsService
}

var (
	shared     *App
	sharedErr  error
	sharedOnce sync.Once
)

// Shared returns the process-wide application instance, constructing
// it on first use.
func Shared(ctx context.Context) (*App, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = New(ctx)
	})
	return shared, sharedErr
}

// New constructs a fully wired application from the config file and
// environment. The persisted vector index is loaded into memory here,
// so a large corpus makes startup proportionally slower.
func New(ctx context.Context) (*App, error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg := LoadConfig(configStore)

	prompts, err := file.NewPromptStore(cfg.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	embedder, llm, err := buildProviders(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	index := vectormem.NewIndex()
	recs, err := store.EmbeddingStore().ListEmbeddings(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	index.Load(recs)
	logger.Debug("Loaded %d vectors into the index", index.Len())

	ck := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)

	ingestor := services.NewIngestor(
		store.DocumentStore(),
		store.EmbeddingStore(),
		index,
		embedder,
		ck,
		services.WithEmbedRateLimit(cfg.EmbedRate, cfg.EmbedBurst),
		services.WithEmbedRetry(uint64(cfg.EmbedRetries), cfg.RetryInterval),
	)
	retriever := services.NewRetriever(store.DocumentStore(), index, embedder)
	conversations := services.NewConversationService(store.ConversationStore())
	answers := services.NewAnswerComposer(retriever, conversations, llm, prompts, services.ComposerConfig{
		TopK:         cfg.TopK,
		MinScore:     cfg.MinScore,
		HistoryLimit: cfg.HistoryLimit,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
	})
	stats := services.NewStatsService(
		store.DocumentStore(),
		store.ConversationStore(),
		index,
		embedder,
		llm,
		ck,
	)

	return &App{
		Config:        cfg,
		ConfigStore:   configStore,
		Prompts:       prompts,
		Store:         store,
		Index:         index,
		Embedder:      embedder,
		LLM:           llm,
		Ingestor:      ingestor,
		Retriever:     retriever,
		Conversations: conversations,
		Answers:       answers,
		Stats:         stats,
	}, nil
}

// buildProviders constructs the embedding and generation adapters for
// the configured provider.
func buildProviders(cfg Config) (driven.EmbeddingService, driven.LLMService, error) {
	switch cfg.Provider {
	case ProviderOllama:
		embedder := ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.EmbeddingModel,
		})
		llm := ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.GenerationModel,
		})
		return embedder, llm, nil

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
		}
		embedder, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai embeddings: %w", err)
		}
		llm, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.GenerationModel,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai llm: %w", err)
		}
		return embedder, llm, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// Close releases provider connections, the index and the store.
func (a *App) Close() error {
	var errs []error
	if a.LLM != nil {
		errs = append(errs, a.LLM.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
