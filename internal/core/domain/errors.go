package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyContent indicates ingestion input with no usable text.
	// The offending document is skipped and any existing entry for the
	// same source URL is left untouched.
	ErrEmptyContent = errors.New("empty or unreadable content")

	// ErrProvider indicates the embedding or generation backend is
	// unavailable or rejected the request (quota, rate limit, outage).
	// Retried with bounded backoff at the point of use, then surfaced.
	ErrProvider = errors.New("provider unavailable")

	// ErrModelMismatch indicates an embedding-space inconsistency: the
	// query vector and the index were produced by different embedding
	// models. Fatal to that retrieval call, never silently degraded.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrTimeout indicates a bounded wait on a provider call expired.
	// Surfaced distinctly from ErrProvider so callers can tell "try
	// again later" from "this request was rejected".
	ErrTimeout = errors.New("provider call timed out")

	// ErrGeneration wraps an unrecoverable failure from the answer
	// composer's model call. The core never substitutes a fabricated
	// answer; the boundary layer decides how to phrase the apology.
	ErrGeneration = errors.New("answer generation failed")
)
