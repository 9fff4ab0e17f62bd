package domain

// Filter holds metadata filter criteria for a retrieval query.
//
// Every key must be present in a chunk's metadata for the chunk to match.
// A criterion value may be a scalar (equality) or a slice of scalars
// (membership). An empty or nil Filter matches every chunk.
type Filter map[string]any

// Query describes a single retrieval request.
type Query struct {
	// Text is the natural-language query to embed and search with.
	Text string

	// Filter restricts results to chunks whose metadata matches.
	Filter Filter

	// K is the number of results wanted (default 5).
	K int

	// MaxContextLen is the budget for the assembled context string,
	// measured in runes. Zero disables context assembly.
	MaxContextLen int
}

// SearchResult is a single retrieval hit.
type SearchResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// DocumentID identifies the owning document.
	DocumentID string

	// Score is the squared Euclidean distance to the query embedding.
	// Lower means more similar.
	Score float64

	// Text is the chunk text.
	Text string

	// Metadata is the chunk metadata.
	Metadata map[string]any
}

// RetrievalResult is the full response to a Query: the ranked results,
// the assembled context block for prompt construction, and whether any
// chunk made it into the context.
type RetrievalResult struct {
	Results     []SearchResult
	Context     string
	ContextUsed bool
}

// IngestRequest describes a document ingestion.
type IngestRequest struct {
	// DocumentID is the stable identifier; re-using an existing ID
	// requires Replace.
	DocumentID string

	// SourceLabel is a human-readable origin for display.
	SourceLabel string

	// Text is the plain text to chunk and index.
	Text string

	// Metadata is attached to every chunk of the document.
	Metadata map[string]any

	// Replace atomically swaps out prior chunks for this DocumentID.
	Replace bool
}

// IngestResult reports a completed ingestion.
type IngestResult struct {
	DocumentID string
	Chunks     int
}

// IndexStats summarises the current index generation.
type IndexStats struct {
	Documents  int
	Chunks     int
	Dimensions int
	Generation uint64
}
