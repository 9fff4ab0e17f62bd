package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query         string         `json:"query" jsonschema:"the natural-language query to retrieve context for"`
	K             int            `json:"k,omitempty" jsonschema:"number of chunks to return (default 5)"`
	Filter        map[string]any `json:"filter,omitempty" jsonschema:"metadata filter; scalar values match equality, list values match membership"`
	MaxContextLen int            `json:"max_context_len,omitempty" jsonschema:"budget for the assembled context string in characters (0 disables context assembly)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results     []RetrieveResultOutput `json:"results"`
	Count       int                    `json:"count"`
	Context     string                 `json:"context,omitempty"`
	ContextUsed bool                   `json:"context_used"`
}

// RetrieveResultOutput represents a single retrieved chunk.
type RetrieveResultOutput struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Score      float64        `json:"score"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	DocumentID  string         `json:"document_id" jsonschema:"stable identifier for the document"`
	SourceLabel string         `json:"source_label,omitempty" jsonschema:"human-readable origin, shown in context labels"`
	Text        string         `json:"text" jsonschema:"the plain text to chunk and index"`
	Metadata    map[string]any `json:"metadata,omitempty" jsonschema:"key-value tags attached to every chunk"`
	Replace     bool           `json:"replace,omitempty" jsonschema:"replace an existing document with the same id"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the most relevant document chunks for a query, with optional metadata filtering and an assembled context block",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Chunk, embed and index a plain-text document",
	}, s.handleIngest)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	q := domain.Query{
		Text:          input.Query,
		Filter:        domain.Filter(input.Filter),
		K:             input.K,
		MaxContextLen: input.MaxContextLen,
	}

	res, err := s.ports.Retrieval.Retrieve(ctx, q)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results:     make([]RetrieveResultOutput, len(res.Results)),
		Count:       len(res.Results),
		Context:     res.Context,
		ContextUsed: res.ContextUsed,
	}
	for i, r := range res.Results {
		output.Results[i] = RetrieveResultOutput{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Score:      r.Score,
			Text:       r.Text,
			Metadata:   r.Metadata,
		}
	}

	return nil, output, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	req := domain.IngestRequest{
		DocumentID:  input.DocumentID,
		SourceLabel: input.SourceLabel,
		Text:        input.Text,
		Metadata:    input.Metadata,
		Replace:     input.Replace,
	}

	res, err := s.ports.Retrieval.Ingest(ctx, req)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{DocumentID: res.DocumentID, Chunks: res.Chunks}, nil
}
