package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/music-assist/backend/internal/core/domain"
)

func TestNewDocumentStore(t *testing.T) {
	store := NewDocumentStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.documents)
	assert.NotNil(t, store.chunks)
}

func TestDocumentStore_SaveDocument_Success(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{
		ID:        "doc-1",
		SourceURL: "https://example.org/policy/rehearsals",
		Title:     "Rehearsal Schedule",
		RawText:   "Choir rehearses Thursdays at 7pm.",
		FetchedAt: time.Now().UTC(),
	}

	err := store.SaveDocument(ctx, doc)
	require.NoError(t, err)

	saved, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", saved.ID)
	assert.Equal(t, "https://example.org/policy/rehearsals", saved.SourceURL)
	assert.Equal(t, "Rehearsal Schedule", saved.Title)
}

func TestDocumentStore_SaveDocument_Update(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc1 := &domain.Document{ID: "doc-1", SourceURL: "https://example.org/a", Title: "Original Title"}
	doc2 := &domain.Document{ID: "doc-1", SourceURL: "https://example.org/a", Title: "Updated Title"}

	require.NoError(t, store.SaveDocument(ctx, doc1))
	require.NoError(t, store.SaveDocument(ctx, doc2))

	saved, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", saved.Title)
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	store := NewDocumentStore()
	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_GetDocumentBySourceURL(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:        "doc-1",
		SourceURL: "https://example.org/policy/hymns",
		Title:     "Approved Hymns",
	}))

	doc, err := store.GetDocumentBySourceURL(ctx, "https://example.org/policy/hymns")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)

	_, err = store.GetDocumentBySourceURL(ctx, "https://example.org/unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDocuments_SortedByID(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	for _, id := range []string{"doc-3", "doc-1", "doc-2"} {
		require.NoError(t, store.SaveDocument(ctx, &domain.Document{
			ID:        id,
			SourceURL: "https://example.org/" + id,
		}))
	}

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.Equal(t, "doc-2", docs[1].ID)
	assert.Equal(t, "doc-3", docs[2].ID)
}

func TestDocumentStore_Chunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1", Ordinal: 0, Text: "first"},
		{ID: "c-2", DocumentID: "doc-1", Ordinal: 1, Text: "second"},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	got, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	chunk, err := store.GetChunk(ctx, "c-2")
	require.NoError(t, err)
	assert.Equal(t, "second", chunk.Text)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	none, err := store.GetChunks(ctx, "unknown-doc")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDocumentStore_DeleteDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1", Ordinal: 0, Text: "text"},
	}))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestDocumentStore_Counts(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1"}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-2"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1"},
		{ID: "c-2", DocumentID: "doc-1"},
	}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c-3", DocumentID: "doc-2"},
	}))

	nDocs, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nDocs)

	nChunks, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, nChunks)
}

func TestDocumentStore_ConcurrentAccess(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d", n)
			_ = store.SaveDocument(ctx, &domain.Document{ID: id})
			_, _ = store.GetDocument(ctx, id)
		}(i)
	}
	wg.Wait()

	n, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
