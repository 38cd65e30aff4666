// Package chunker splits documents into fixed-size overlapping text
// windows, the unit of retrieval.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/music-assist/backend/internal/core/domain"
)

// DefaultChunkSize is the default window size in runes.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap between consecutive
// windows in runes.
const DefaultChunkOverlap = 200

// Chunker splits document text into fixed-size rune windows with a
// defined overlap, so no passage is cut without context on both sides.
// Chunk boundaries are a pure function of the text: the same input
// always yields the same spans, which re-indexing and tests rely on.
type Chunker struct {
	size    int
	overlap int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the window size in runes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between windows in runes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave the window advancing
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}

	return c
}

// Size returns the configured window size in runes.
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split derives the ordered chunk sequence for a document.
//
// A document shorter than one window yields exactly one chunk covering
// the whole text; a whitespace-only document yields no chunks. Each
// chunk after the first starts `overlap` runes before the previous one
// ended, and the final chunk always ends at the last rune, so
// concatenating chunks in ordinal order reconstructs the text with
// only the overlap duplicated.
func (c *Chunker) Split(doc *domain.Document) []domain.Chunk {
	if strings.TrimSpace(doc.RawText) == "" {
		return nil
	}

	runes := []rune(doc.RawText)
	n := len(runes)

	chunks := make([]domain.Chunk, 0, n/(c.size-c.overlap)+1)

	start := 0
	for {
		end := start + c.size
		if end > n {
			end = n
		}

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Ordinal:     len(chunks),
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})

		if end == n {
			return chunks
		}
		start = end - c.overlap
	}
}
