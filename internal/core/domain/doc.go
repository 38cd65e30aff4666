// Package domain defines the core business entities for Music-Assist.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: One ingested text unit with source provenance
//   - Chunk: A retrieval-sized passage within a document
//   - Conversation/Turn: Multi-turn chat state
//   - RetrievedChunk/Source: Retrieval hits and citations
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
