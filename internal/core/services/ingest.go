package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/music-assist/backend/internal/chunker"
	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
	"github.com/music-assist/backend/internal/core/ports/driving"
	"github.com/music-assist/backend/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// Default ingestion behaviour.
const (
	// DefaultEmbedRetries bounds per-chunk embedding retries after the
	// initial attempt.
	DefaultEmbedRetries = 4

	// DefaultRetryInterval is the initial backoff interval between
	// embedding retries; subsequent intervals grow exponentially.
	DefaultRetryInterval = 500 * time.Millisecond

	// DefaultEmbedRate is the sustained embedding request rate,
	// conservative for billable providers.
	DefaultEmbedRate = 5.0

	// DefaultEmbedBurst is the embedding request burst size.
	DefaultEmbedBurst = 5
)

// Ingestor stores crawled documents and maintains the searchable
// index. A re-crawl of a known source URL supersedes the prior
// document and retires its chunks and embeddings; identical content is
// a no-op so an unchanged corpus costs no re-embedding.
type Ingestor struct {
	docStore driven.DocumentStore
	embStore driven.EmbeddingStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	chunker  *chunker.Chunker

	limiter       *rate.Limiter
	maxRetries    uint64
	retryInterval time.Duration
}

// IngestorOption configures the ingestor.
type IngestorOption func(*Ingestor)

// WithEmbedRateLimit sets the sustained request rate and burst for
// embedding calls.
func WithEmbedRateLimit(rps float64, burst int) IngestorOption {
	return func(i *Ingestor) {
		if rps > 0 && burst > 0 {
			i.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithEmbedRetry sets the retry budget and initial backoff interval
// for failed embedding calls.
func WithEmbedRetry(maxRetries uint64, initial time.Duration) IngestorOption {
	return func(i *Ingestor) {
		i.maxRetries = maxRetries
		if initial > 0 {
			i.retryInterval = initial
		}
	}
}

// NewIngestor creates an ingestor writing to the given stores and index.
func NewIngestor(
	docStore driven.DocumentStore,
	embStore driven.EmbeddingStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	ck *chunker.Chunker,
	opts ...IngestorOption,
) *Ingestor {
	ing := &Ingestor{
		docStore:      docStore,
		embStore:      embStore,
		index:         index,
		embedder:      embedder,
		chunker:       ck,
		limiter:       rate.NewLimiter(rate.Limit(DefaultEmbedRate), DefaultEmbedBurst),
		maxRetries:    DefaultEmbedRetries,
		retryInterval: DefaultRetryInterval,
	}

	for _, opt := range opts {
		opt(ing)
	}

	return ing
}

// Ingest stores one crawled document and indexes its chunks.
//
// Empty or whitespace-only text is rejected with domain.ErrEmptyContent
// and any existing document for the same source URL stays in place.
// When the embedding provider fails past the retry budget for some
// chunks, the document is stored anyway and the error wraps
// domain.ErrProvider; already-embedded chunks remain searchable and
// a later re-ingestion of the same text embeds the missed ones.
func (i *Ingestor) Ingest(ctx context.Context, raw driving.RawDocument) (*domain.Document, error) {
	doc, _, err := i.ingest(ctx, raw)
	return doc, err
}

// IngestBatch ingests a set of crawled documents. Per-document
// failures are counted and logged, never aborting the batch.
func (i *Ingestor) IngestBatch(ctx context.Context, raws []driving.RawDocument) (driving.IngestReport, error) {
	logger.Section("Batch Ingestion")
	logger.Info("Ingesting %d documents", len(raws))

	var report driving.IngestReport
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		_, changed, err := i.ingest(ctx, raw)
		switch {
		case err != nil:
			report.Failed++
			logger.Error("Ingest %s: %v", raw.SourceURL, err)
		case changed:
			report.Ingested++
		default:
			report.Unchanged++
		}
	}

	logger.Info("Batch done: %d ingested, %d unchanged, %d failed",
		report.Ingested, report.Unchanged, report.Failed)
	return report, nil
}

// ListDocuments returns the stored corpus.
func (i *Ingestor) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return i.docStore.ListDocuments(ctx)
}

// ingest performs one document ingestion and reports whether the
// stored corpus changed.
func (i *Ingestor) ingest(ctx context.Context, raw driving.RawDocument) (*domain.Document, bool, error) {
	sourceURL := strings.TrimSpace(raw.SourceURL)
	if sourceURL == "" {
		return nil, false, fmt.Errorf("%w: missing source url", domain.ErrEmptyContent)
	}
	if strings.TrimSpace(raw.RawText) == "" {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrEmptyContent, sourceURL)
	}

	prior, err := i.docStore.GetDocumentBySourceURL(ctx, sourceURL)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup prior document: %w", err)
	}

	if prior != nil && prior.RawText == raw.RawText {
		healed, err := i.healMissingEmbeddings(ctx, prior)
		if err != nil {
			return prior, healed > 0, err
		}
		if healed > 0 {
			logger.Info("Re-embedded %d missing chunks for %s", healed, sourceURL)
			return prior, true, nil
		}
		logger.Debug("Unchanged: %s", sourceURL)
		return prior, false, nil
	}

	fetchedAt := raw.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	doc := &domain.Document{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Title:     raw.Title,
		RawText:   raw.RawText,
		FetchedAt: fetchedAt,
	}

	chunks := i.chunker.Split(doc)
	logger.Debug("Chunked %s into %d chunks", sourceURL, len(chunks))

	// The prior version must go first: the store enforces one document
	// per source URL.
	if prior != nil {
		if err := i.retire(ctx, prior); err != nil {
			return nil, false, fmt.Errorf("retire prior document: %w", err)
		}
	}

	if err := i.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, false, fmt.Errorf("save document: %w", err)
	}
	if err := i.docStore.SaveChunks(ctx, chunks); err != nil {
		return nil, false, fmt.Errorf("save chunks: %w", err)
	}

	embedded, embedErr := i.embedChunks(ctx, chunks)

	if embedErr != nil {
		return doc, true, fmt.Errorf(
			"%w: %d of %d chunks not embedded for %s",
			domain.ErrProvider, len(chunks)-embedded, len(chunks), sourceURL,
		)
	}

	logger.Info("Ingested %s (%d chunks)", sourceURL, len(chunks))
	return doc, true, nil
}

// healMissingEmbeddings re-embeds chunks of an unchanged document that
// an earlier partial provider failure left without embeddings, so
// re-running ingestion repairs the index instead of no-opping.
func (i *Ingestor) healMissingEmbeddings(ctx context.Context, doc *domain.Document) (int, error) {
	chunks, err := i.docStore.GetChunks(ctx, doc.ID)
	if err != nil {
		return 0, fmt.Errorf("load chunks: %w", err)
	}

	recs, err := i.embStore.ListEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("list embeddings: %w", err)
	}
	embedded := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		embedded[rec.ChunkID] = struct{}{}
	}

	var missing []domain.Chunk
	for _, chunk := range chunks {
		if _, ok := embedded[chunk.ID]; !ok {
			missing = append(missing, chunk)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	logger.Debug("Document %s has %d chunks without embeddings", doc.SourceURL, len(missing))
	healed, embedErr := i.embedChunks(ctx, missing)
	if embedErr != nil {
		return healed, fmt.Errorf(
			"%w: %d of %d missing chunks still not embedded for %s",
			domain.ErrProvider, len(missing)-healed, len(missing), doc.SourceURL,
		)
	}
	return healed, nil
}

// embedChunks computes and indexes embeddings for the given chunks and
// returns how many succeeded. It tries one batch call first; on batch
// failure each chunk is embedded individually with exponential backoff
// so a transient provider outage only costs the affected chunks.
func (i *Ingestor) embedChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	model := i.embedder.ModelName()

	texts := make([]string, len(chunks))
	for n, chunk := range chunks {
		texts[n] = chunk.Text
	}

	if err := i.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(chunks) {
		for n, chunk := range chunks {
			if err := i.store(ctx, chunk.ID, model, vectors[n]); err != nil {
				return n, err
			}
		}
		return len(chunks), nil
	}
	if err != nil {
		logger.Warn("Batch embedding failed (%v), retrying per chunk", err)
	} else {
		logger.Warn("Batch embedding returned %d vectors for %d chunks, retrying per chunk",
			len(vectors), len(chunks))
	}

	embedded := 0
	var firstErr error
	for _, chunk := range chunks {
		vec, err := i.embedWithRetry(ctx, chunk.Text)
		if err != nil {
			if firstErr == nil {
				firstErr = classifyProviderErr("embed chunk "+chunk.ID, err)
			}
			continue
		}
		if err := i.store(ctx, chunk.ID, model, vec); err != nil {
			return embedded, err
		}
		embedded++
	}

	return embedded, firstErr
}

// embedWithRetry embeds one text, retrying transient provider failures
// with exponential backoff up to the configured budget.
func (i *Ingestor) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = i.retryInterval

	var vec []float32
	operation := func() error {
		if err := i.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		v, err := i.embedder.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		vec = v
		return nil
	}

	err := backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, i.maxRetries), ctx),
	)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// store persists one embedding and makes it searchable.
func (i *Ingestor) store(ctx context.Context, chunkID, model string, vec []float32) error {
	rec := driven.EmbeddingRecord{ChunkID: chunkID, Model: model, Vector: vec}
	if err := i.embStore.SaveEmbedding(ctx, rec); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	if err := i.index.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("index embedding: %w", err)
	}
	return nil
}

// retire removes a superseded document, its chunks and their index
// entries. The persisted embeddings go with the chunks via the store's
// cascade.
func (i *Ingestor) retire(ctx context.Context, doc *domain.Document) error {
	oldChunks, err := i.docStore.GetChunks(ctx, doc.ID)
	if err != nil {
		return err
	}
	for _, chunk := range oldChunks {
		if err := i.index.Remove(ctx, chunk.ID); err != nil {
			return err
		}
	}
	if err := i.docStore.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	logger.Debug("Retired superseded document %s (%d chunks)", doc.SourceURL, len(oldChunks))
	return nil
}
