package app

import (
	"os"
	"time"

	"github.com/music-assist/backend/internal/adapters/driven/embedding/ollama"
	"github.com/music-assist/backend/internal/chunker"
	"github.com/music-assist/backend/internal/core/ports/driven"
	"github.com/music-assist/backend/internal/core/services"
)

// Provider names accepted in configuration.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config is the typed application configuration, resolved from the
// TOML config store with environment variables supplying secrets.
// API keys never live in the config file.
type Config struct {
	DataDir   string
	PromptDir string

	// Provider selects the embedding and generation backend.
	Provider string

	EmbeddingModel  string
	GenerationModel string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string

	ChunkSize    int
	ChunkOverlap int

	TopK         int
	MinScore     float64
	HistoryLimit int
	MaxTokens    int
	Temperature  float64

	EmbedRate     float64
	EmbedBurst    int
	EmbedRetries  int
	RetryInterval time.Duration

	ServerHost string
	ServerPort int
	ServerMode string
	AdminKey   string

	CrawlDir string
}

// LoadConfig resolves configuration from the store, falling back to
// defaults for anything unset. Secrets come from the environment:
// OPENAI_API_KEY and MUSIC_ASSIST_ADMIN_KEY.
func LoadConfig(store driven.ConfigStore) Config {
	cfg := Config{
		DataDir:   store.GetString("storage.data_dir"),
		PromptDir: store.GetString("storage.prompt_dir"),

		Provider: store.GetString("llm.provider"),

		EmbeddingModel:  store.GetString("embedding.model"),
		GenerationModel: store.GetString("llm.model"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: store.GetString("openai.base_url"),
		OllamaBaseURL: store.GetString("ollama.base_url"),

		ChunkSize:    store.GetInt("chunking.size"),
		ChunkOverlap: store.GetInt("chunking.overlap"),

		TopK:         store.GetInt("retrieval.top_k"),
		MinScore:     store.GetFloat("retrieval.min_score"),
		HistoryLimit: store.GetInt("chat.history_limit"),
		MaxTokens:    store.GetInt("llm.max_tokens"),
		Temperature:  store.GetFloat("llm.temperature"),

		EmbedRate:    store.GetFloat("embedding.rate"),
		EmbedBurst:   store.GetInt("embedding.burst"),
		EmbedRetries: store.GetInt("embedding.retries"),

		ServerHost: store.GetString("server.host"),
		ServerPort: store.GetInt("server.port"),
		ServerMode: store.GetString("server.mode"),
		AdminKey:   os.Getenv("MUSIC_ASSIST_ADMIN_KEY"),

		CrawlDir: store.GetString("ingest.crawl_dir"),
	}

	if ms := store.GetInt("embedding.retry_interval_ms"); ms > 0 {
		cfg.RetryInterval = time.Duration(ms) * time.Millisecond
	}

	return cfg.withDefaults()
}

// withDefaults fills unset fields with pipeline defaults.
func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}
	if c.EmbeddingModel == "" && c.Provider == ProviderOllama {
		c.EmbeddingModel = ollama.DefaultModel
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = chunker.DefaultChunkSize
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = chunker.DefaultChunkOverlap
	}
	if c.TopK <= 0 {
		c.TopK = services.DefaultTopK
	}
	if c.MinScore <= 0 {
		c.MinScore = services.DefaultMinScore
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = services.DefaultHistoryLimit
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = services.DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = services.DefaultTemperature
	}
	if c.EmbedRate <= 0 {
		c.EmbedRate = services.DefaultEmbedRate
	}
	if c.EmbedBurst <= 0 {
		c.EmbedBurst = services.DefaultEmbedBurst
	}
	if c.EmbedRetries <= 0 {
		c.EmbedRetries = services.DefaultEmbedRetries
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = services.DefaultRetryInterval
	}
	return c
}
