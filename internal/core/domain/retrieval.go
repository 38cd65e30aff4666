package domain

// RetrievedChunk is one retrieval hit with its provenance hydrated.
type RetrievedChunk struct {
	// Chunk is the matched passage.
	Chunk Chunk

	// Document is the chunk's parent document.
	Document Document

	// Score is the cosine similarity between the query embedding and
	// the chunk embedding, in [0, 1] for normalised text embeddings.
	Score float64
}

// Citation returns the Source describing this hit's parent document.
func (r RetrievedChunk) Citation() Source {
	title := r.Document.Title
	if title == "" {
		title = r.Document.SourceURL
	}
	return Source{Title: title, URL: r.Document.SourceURL}
}
