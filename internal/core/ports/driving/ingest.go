package driving

import (
	"context"
	"time"

	"github.com/music-assist/backend/internal/core/domain"
)

// RawDocument is an ingestion input as supplied by the external
// crawler. Fetching and parsing mechanics live entirely outside the
// core; this tuple is the whole contract.
type RawDocument struct {
	SourceURL string
	Title     string
	RawText   string
	FetchedAt time.Time
}

// IngestReport summarises a batch ingestion run.
type IngestReport struct {
	// Ingested counts documents stored and indexed.
	Ingested int

	// Unchanged counts documents skipped because the stored text was
	// identical (no re-embedding cost).
	Unchanged int

	// Failed counts documents that could not be ingested. Per-document
	// failures never abort the batch.
	Failed int
}

// IngestService ingests crawled documents into the searchable index.
type IngestService interface {
	// Ingest stores one document, supersedes any prior document with
	// the same source URL, chunks it and indexes the chunk embeddings.
	// Identical re-ingestion is a no-op returning the stored document,
	// except that chunks left unembedded by an earlier partial provider
	// failure are re-embedded.
	Ingest(ctx context.Context, raw RawDocument) (*domain.Document, error)

	// IngestBatch ingests a set of documents, continuing past
	// per-document failures.
	IngestBatch(ctx context.Context, raws []RawDocument) (IngestReport, error)

	// ListDocuments returns the stored corpus.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}
