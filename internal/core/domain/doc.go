// Package domain defines the core business entities for the ragcore
// retrieval engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source document handed to the core for indexing
//   - Chunk: The unit of embedding and retrieval
//   - Query / RetrievalResult: The retrieval request and response shapes
//   - The error taxonomy (sentinels plus typed failures)
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
