package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
	"github.com/music-assist/backend/internal/core/ports/driving"
	"github.com/music-assist/backend/internal/logger"
)

// Ensure AnswerComposer implements the interface.
var _ driving.AnswerService = (*AnswerComposer)(nil)

// Default composition parameters.
const (
	// DefaultHistoryLimit bounds how many prior turns enter the prompt.
	DefaultHistoryLimit = 10

	// DefaultMaxTokens bounds the generated answer length.
	DefaultMaxTokens = 700

	// DefaultTemperature keeps answers factual rather than creative.
	DefaultTemperature = 0.3

	// DefaultGenerateTimeout bounds one generation call.
	DefaultGenerateTimeout = 120 * time.Second
)

// defaultAnswerSystemPrompt is the fallback system framing when no
// PromptStore is configured.
const defaultAnswerSystemPrompt = `You are Music-Assist, a helpful assistant specialising in music theory as it applies to hymns and choir music of The Church of Jesus Christ of Latter-day Saints.

Answer using only the numbered context passages provided below. Each passage carries its source title and URL. When the context does not contain the answer, say so honestly instead of guessing. Always keep explanations clear, accurate and beginner-friendly.

Reference passages by number when you use them, e.g. [1].`

// noGroundingNotice replaces the context block when retrieval finds
// nothing above the relevance threshold.
const noGroundingNotice = `No relevant passages were found in the knowledge base for this question. Tell the user you cannot answer from the indexed material and suggest rephrasing; do not invent an answer or cite sources.`

// citationPattern matches bracketed passage references like [1].
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// ComposerConfig tunes the answer composer.
type ComposerConfig struct {
	// TopK is the number of chunks retrieved per query.
	TopK int

	// MinScore is the grounding relevance threshold.
	MinScore float64

	// HistoryLimit bounds prior turns included in the prompt.
	HistoryLimit int

	// MaxTokens bounds the generated answer.
	MaxTokens int

	// Temperature controls generation randomness.
	Temperature float64

	// Timeout bounds one generation call.
	Timeout time.Duration
}

// withDefaults fills unset fields.
func (c ComposerConfig) withDefaults() ComposerConfig {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MinScore <= 0 {
		c.MinScore = DefaultMinScore
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultGenerateTimeout
	}
	return c
}

// AnswerComposer builds grounded prompts from retrieved chunks and
// conversation history, invokes the generation model and attaches
// source citations to the reply.
type AnswerComposer struct {
	retriever     driving.RetrievalService
	conversations *ConversationService
	llm           driven.LLMService
	prompts       driven.PromptStore
	cfg           ComposerConfig
}

// NewAnswerComposer creates an answer composer. The prompts store is
// optional; the embedded default system prompt applies without it.
func NewAnswerComposer(
	retriever driving.RetrievalService,
	conversations *ConversationService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg ComposerConfig,
) *AnswerComposer {
	return &AnswerComposer{
		retriever:     retriever,
		conversations: conversations,
		llm:           llm,
		prompts:       prompts,
		cfg:           cfg.withDefaults(),
	}
}

// Answer retrieves grounding for the message, generates a reply and
// appends the exchange to the conversation.
//
// Provider failures surface as domain.ErrGeneration (or
// domain.ErrTimeout for bounded-wait expiry); the composer never
// substitutes a fabricated answer for a failed call. How to phrase a
// user-facing apology is the boundary layer's decision.
func (a *AnswerComposer) Answer(ctx context.Context, message, conversationID string) (*domain.Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrEmptyContent)
	}

	conv, err := a.conversations.GetOrCreate(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	retrieved, err := a.retriever.Retrieve(ctx, message, a.cfg.TopK, a.cfg.MinScore)
	if err != nil {
		return nil, err
	}

	history, err := a.conversations.History(ctx, conv.ID, a.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := a.buildMessages(message, history, retrieved)

	logger.Section("Generation")
	logger.Debug("Conversation %s: %d history turns, %d grounding chunks",
		conv.ID, len(history), len(retrieved))

	genCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	text, err := a.llm.Chat(genCtx, messages, driven.ChatOptions{
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("generate answer: %w: %v", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	text = strings.TrimSpace(text)

	sources := citedSources(text, retrieved)

	now := time.Now().UTC()
	userTurn := domain.Turn{Role: domain.RoleUser, Text: message, Timestamp: now}
	assistantTurn := domain.Turn{
		Role:      domain.RoleAssistant,
		Text:      text,
		Sources:   sources,
		Timestamp: now.Add(time.Microsecond),
	}
	if err := a.conversations.AppendExchange(ctx, conv.ID, userTurn, assistantTurn); err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:           text,
		Sources:        sources,
		ConversationID: conv.ID,
	}, nil
}

// buildMessages assembles the generation request: system framing with
// the grounding context, bounded history, then the current query.
func (a *AnswerComposer) buildMessages(
	message string, history []domain.Turn, retrieved []domain.RetrievedChunk,
) []driven.ChatMessage {
	var system strings.Builder
	system.WriteString(a.systemPrompt())
	system.WriteString("\n\nContext:\n")
	system.WriteString(groundingContext(retrieved))

	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: system.String()})

	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Text,
		})
	}

	messages = append(messages, driven.ChatMessage{Role: "user", Content: message})
	return messages
}

// systemPrompt loads the configured system framing, falling back to
// the embedded default.
func (a *AnswerComposer) systemPrompt() string {
	if a.prompts == nil {
		return defaultAnswerSystemPrompt
	}
	prompt, err := a.prompts.Load(driven.PromptAnswerSystem)
	if err != nil || prompt == "" {
		return defaultAnswerSystemPrompt
	}
	return prompt
}

// groundingContext renders retrieved chunks as numbered passages
// tagged with their source.
func groundingContext(retrieved []domain.RetrievedChunk) string {
	if len(retrieved) == 0 {
		return noGroundingNotice
	}

	var b strings.Builder
	for n, rc := range retrieved {
		src := rc.Citation()
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", n+1, src.Title, src.URL, rc.Chunk.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// citedSources cross-references which sources the model actually used.
// Bracketed passage numbers in the reply select their sources; when
// the model reports no usable citations the full thresholded source
// set is surfaced instead, so grounding provenance is never hidden.
func citedSources(text string, retrieved []domain.RetrievedChunk) []domain.Source {
	if len(retrieved) == 0 {
		return []domain.Source{}
	}

	cited := make([]domain.RetrievedChunk, 0, len(retrieved))
	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(retrieved) {
			continue
		}
		cited = append(cited, retrieved[n-1])
	}
	if len(cited) == 0 {
		cited = retrieved
	}

	seen := make(map[string]bool, len(cited))
	sources := make([]domain.Source, 0, len(cited))
	for _, rc := range cited {
		src := rc.Citation()
		if seen[src.URL] {
			continue
		}
		seen[src.URL] = true
		sources = append(sources, src)
	}
	return sources
}
