package driven

import (
	"context"

	"github.com/music-assist/backend/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite; an in-memory implementation exists for tests.
type DocumentStore interface {
	// SaveDocument stores a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentBySourceURL retrieves the document currently stored
	// for a source URL. Returns domain.ErrNotFound if none exists.
	GetDocumentBySourceURL(ctx context.Context, sourceURL string) (*domain.Document, error)

	// ListDocuments returns all stored documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document together with its chunks and
	// their persisted embeddings.
	DeleteDocument(ctx context.Context, id string) error

	// SaveChunks stores chunks for a document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document in ordinal order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}
