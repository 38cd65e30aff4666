package domain

import "time"

// Document represents one ingested text unit with source provenance.
// Documents are immutable once stored: re-crawling the same source URL
// produces a new Document that supersedes the old one, it never mutates
// the stored text.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// SourceURL is the original location the text was fetched from.
	// It is the logical identity across re-crawls: a new Document with
	// the same SourceURL retires the previous one.
	SourceURL string

	// Title is the human-readable title.
	Title string

	// RawText is the full text content as supplied by the crawler.
	RawText string

	// FetchedAt is when the document was fetched from its source.
	FetchedAt time.Time
}

// Chunk is a bounded-size contiguous slice of a document's text, the
// unit of retrieval. Chunks are derived deterministically from their
// parent Document and never exist without one.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Ordinal is the position within the document, starting at zero.
	Ordinal int

	// Text is the chunk content.
	Text string

	// StartOffset and EndOffset delimit the chunk within the parent
	// document's text, measured in runes. Consecutive chunks overlap
	// by the chunker's configured overlap.
	StartOffset int
	EndOffset   int
}
