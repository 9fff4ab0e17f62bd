// Package services contains the application core: the retrieval
// orchestrator that wires chunking, embedding, vector search, metadata
// filtering and persistence into the operations the driving adapters
// expose. It depends only on domain types and port interfaces.
package services
