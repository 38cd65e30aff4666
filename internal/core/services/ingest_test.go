package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/music-assist/backend/internal/adapters/driven/storage/memory"
	"github.com/music-assist/backend/internal/adapters/driven/storage/sqlite"
	vectormem "github.com/music-assist/backend/internal/adapters/driven/vector/memory"
	"github.com/music-assist/backend/internal/chunker"
	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
	"github.com/music-assist/backend/internal/core/ports/driving"
)

// memEmbeddingStore is a minimal in-memory driven.EmbeddingStore.
type memEmbeddingStore struct {
	recs map[string]driven.EmbeddingRecord
}

func newMemEmbeddingStore() *memEmbeddingStore {
	return &memEmbeddingStore{recs: make(map[string]driven.EmbeddingRecord)}
}

func (s *memEmbeddingStore) SaveEmbedding(_ context.Context, rec driven.EmbeddingRecord) error {
	s.recs[rec.ChunkID] = rec
	return nil
}

func (s *memEmbeddingStore) ListEmbeddings(context.Context) ([]driven.EmbeddingRecord, error) {
	out := make([]driven.EmbeddingRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (s *memEmbeddingStore) CountEmbeddings(context.Context) (int, error) {
	return len(s.recs), nil
}

type ingestFixture struct {
	ingestor *Ingestor
	docStore *storagemem.DocumentStore
	embStore *memEmbeddingStore
	index    *vectormem.Index
	embedder *mockEmbeddingService
}

func newIngestFixture(t *testing.T, opts ...IngestorOption) *ingestFixture {
	t.Helper()

	f := &ingestFixture{
		docStore: storagemem.NewDocumentStore(),
		embStore: newMemEmbeddingStore(),
		index:    vectormem.NewIndex(),
		embedder: newMockEmbedder(),
	}

	base := []IngestorOption{
		WithEmbedRateLimit(10000, 100),
		WithEmbedRetry(2, time.Millisecond),
	}
	f.ingestor = NewIngestor(
		f.docStore, f.embStore, f.index, f.embedder,
		chunker.New(chunker.WithChunkSize(20), chunker.WithOverlap(5)),
		append(base, opts...)...,
	)
	return f
}

func rawDoc(url, text string) driving.RawDocument {
	return driving.RawDocument{
		SourceURL: url,
		Title:     "Test " + url,
		RawText:   text,
		FetchedAt: time.Now().UTC(),
	}
}

func TestIngestor_RejectsEmptyContent(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/a", "   \n"))
	assert.ErrorIs(t, err, domain.ErrEmptyContent)

	_, err = f.ingestor.Ingest(ctx, rawDoc("", "some text"))
	assert.ErrorIs(t, err, domain.ErrEmptyContent)

	n, err := f.docStore.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIngestor_EmptyContentLeavesPriorIntact(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	doc, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/a", "original text"))
	require.NoError(t, err)

	_, err = f.ingestor.Ingest(ctx, rawDoc("https://example.org/a", ""))
	assert.ErrorIs(t, err, domain.ErrEmptyContent)

	kept, err := f.docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "original text", kept.RawText)
}

func TestIngestor_IngestStoresAndIndexes(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	text := "Choir rehearsals are held every Thursday evening at seven."
	doc, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/rehearsals", text))
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.NotEmpty(t, doc.ID)

	chunks, err := f.docStore.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Every chunk is persisted and searchable
	nEmb, err := f.embStore.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), nEmb)
	assert.Equal(t, len(chunks), f.index.Len())
}

func TestIngestor_UnchangedContentIsNoOp(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	text := "The organist selects prelude music in advance."
	first, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/prelude", text))
	require.NoError(t, err)

	embCallsAfterFirst := f.embedder.embedCalls + f.embedder.batchCalls

	second, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/prelude", text))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// No re-embedding for identical content
	assert.Equal(t, embCallsAfterFirst, f.embedder.embedCalls+f.embedder.batchCalls)

	n, err := f.docStore.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngestor_ChangedContentSupersedes(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	first, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/dress", "old dress code"))
	require.NoError(t, err)

	second, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/dress", "new dress code with details"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// Prior document and chunks are gone
	_, err = f.docStore.GetDocument(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := f.docStore.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Index holds only the new chunks
	newChunks, err := f.docStore.GetChunks(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, len(newChunks), f.index.Len())
}

func TestIngestor_PartialEmbedFailure(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	// Batch fails, then a few per-chunk attempts fail past the retry
	// budget (2 retries means 3 attempts per chunk).
	f.embedder.batchErr = fmt.Errorf("batch unsupported")
	f.embedder.failFirst = 3

	text := "A long enough policy text to produce several chunks for this test case."
	doc, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/partial", text))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvider)
	require.NotNil(t, doc)

	// Document text is stored despite the failure
	kept, getErr := f.docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, text, kept.RawText)

	// The chunks that did embed are searchable
	chunks, chunksErr := f.docStore.GetChunks(ctx, doc.ID)
	require.NoError(t, chunksErr)
	assert.True(t, f.index.Len() < len(chunks))
	assert.True(t, f.index.Len() > 0)
}

func TestIngestor_RetryRecoversTransientFailure(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	// Batch path fails; the single per-chunk failure is within the
	// retry budget so ingestion still fully succeeds.
	f.embedder.batchErr = fmt.Errorf("batch unsupported")
	f.embedder.failFirst = 1

	doc, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/flaky", "short text"))
	require.NoError(t, err)

	chunks, err := f.docStore.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), f.index.Len())
}

func TestIngestor_SupersedeOnSQLiteStore(t *testing.T) {
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	index := vectormem.NewIndex()
	ingestor := NewIngestor(
		store.DocumentStore(), store.EmbeddingStore(), index, newMockEmbedder(),
		chunker.New(chunker.WithChunkSize(20), chunker.WithOverlap(5)),
		WithEmbedRateLimit(10000, 100),
		WithEmbedRetry(2, time.Millisecond),
	)
	ctx := context.Background()

	first, err := ingestor.Ingest(ctx, rawDoc("https://example.org/dress", "old dress code"))
	require.NoError(t, err)

	// The store's unique source_url constraint must not block replacement
	second, err := ingestor.Ingest(ctx, rawDoc("https://example.org/dress", "new dress code with details"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	n, err := store.DocumentStore().CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	kept, err := store.DocumentStore().GetDocumentBySourceURL(ctx, "https://example.org/dress")
	require.NoError(t, err)
	assert.Equal(t, "new dress code with details", kept.RawText)

	chunks, err := store.DocumentStore().GetChunks(ctx, second.ID)
	require.NoError(t, err)
	nEmb, err := store.EmbeddingStore().CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), nEmb)
	assert.Equal(t, len(chunks), index.Len())
}

func TestIngestor_ReingestEmbedsMissedChunks(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	f.embedder.batchErr = fmt.Errorf("batch unsupported")
	f.embedder.failFirst = 3

	text := "A long enough policy text to produce several chunks for this test case."
	doc, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/heal", text))
	require.ErrorIs(t, err, domain.ErrProvider)

	chunks, err := f.docStore.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Less(t, f.index.Len(), len(chunks))

	// Provider recovered; identical re-ingestion embeds the missed chunks
	f.embedder.batchErr = nil
	healed, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/heal", text))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, healed.ID)

	nEmb, err := f.embStore.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), nEmb)
	assert.Equal(t, len(chunks), f.index.Len())

	// Fully embedded now, so the next identical run is a plain no-op
	calls := f.embedder.embedCalls + f.embedder.batchCalls
	_, err = f.ingestor.Ingest(ctx, rawDoc("https://example.org/heal", text))
	require.NoError(t, err)
	assert.Equal(t, calls, f.embedder.embedCalls+f.embedder.batchCalls)
}

func TestIngestor_IngestBatchContinuesPastFailures(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/same", "already here"))
	require.NoError(t, err)

	report, err := f.ingestor.IngestBatch(ctx, []driving.RawDocument{
		rawDoc("https://example.org/new", "fresh content"),
		rawDoc("https://example.org/same", "already here"),
		rawDoc("https://example.org/bad", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 1, report.Failed)
}

func TestIngestor_IngestBatchHonoursContext(t *testing.T) {
	f := newIngestFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ingestor.IngestBatch(ctx, []driving.RawDocument{
		rawDoc("https://example.org/a", "text"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestor_ListDocuments(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.ingestor.Ingest(ctx, rawDoc("https://example.org/a", "first"))
	require.NoError(t, err)
	_, err = f.ingestor.Ingest(ctx, rawDoc("https://example.org/b", "second"))
	require.NoError(t, err)

	docs, err := f.ingestor.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
