// Package sqlite implements the document archive on SQLite.
//
// The archive is the durable record of ingested source documents: the
// full text, its metadata and ingestion bookkeeping. It is deliberately
// not part of the in-memory retrieval pair (vector index + metadata
// store); those are rebuilt from snapshots, while the archive lets
// operators list, inspect and reindex documents from source data.
package sqlite
