package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Delete/get on an absent chunk is reported with this sentinel,
	// never as a fatal failure.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	// Re-ingesting a document ID without Replace fails with this.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Neither ingestion nor retrieval can run without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// ConfigurationError reports invalid engine configuration, rejected
// before any work starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// DimensionError reports an embedding whose length does not match the
// index dimension. The offending chunk is rejected, never truncated
// or padded.
type DimensionError struct {
	ChunkID string
	Want    int
	Got     int
}

func (e *DimensionError) Error() string {
	if e.ChunkID == "" {
		return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("embedding dimension mismatch for chunk %s: want %d, got %d", e.ChunkID, e.Want, e.Got)
}

// EmbeddingError reports a provider failure during a batch embed call.
// Embedded counts the texts successfully embedded before the failure;
// callers must treat partial success as failure.
type EmbeddingError struct {
	Embedded int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed after %d texts: %v", e.Embedded, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IncompatibleSchemaError reports a snapshot whose schema version does
// not match what this build reads. Load refuses rather than guessing.
type IncompatibleSchemaError struct {
	Want int
	Got  int
}

func (e *IncompatibleSchemaError) Error() string {
	return fmt.Sprintf("snapshot schema version %d not supported (want %d)", e.Got, e.Want)
}

// PersistenceError reports an I/O or integrity failure during snapshot
// save/load. The previously committed snapshot remains authoritative.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
