// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to function:
//
//   - EmbeddingService: Maps text to fixed-dimension vectors
//   - VectorIndex: Stores embeddings and answers k-NN queries
//   - MetadataStore: Holds chunk text and tags, evaluates filters
//   - SnapshotStore: Durably persists index and metadata in lockstep
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - DocumentArchive: Source-document persistence for listing and
//     reindexing. Without it, documents exist only inside the index.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
