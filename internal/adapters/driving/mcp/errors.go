// Package mcp exposes the retrieval engine over the Model Context
// Protocol, so assistants can retrieve context and ingest documents
// through tools instead of shelling out to the CLI.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when no retrieval service is provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
