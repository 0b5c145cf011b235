package migrations

import "embed"

// FS contains the embedded SQLite schema for the feed cache store.
//
//go:embed *.sql
var FS embed.FS
