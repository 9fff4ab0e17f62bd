package mcp

import (
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// Ports aggregates the port interfaces the MCP server drives.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers retrieve/ingest tool calls.
	Retrieval driving.RetrievalService

	// Archive backs the document content resource. Optional.
	Archive driven.DocumentArchive
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Archive is optional: without it document resources 404.
	return nil
}
