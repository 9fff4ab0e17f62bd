// Package migrations embeds the SQL schema files for the archive.
package migrations

import "embed"

// FS holds the SQL migration files, embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
