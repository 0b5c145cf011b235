// Package sqlite provides the feed cache store backed by SQLite.
//
// All reads and writes run through one serialized storage context that owns
// the store's only connection, so a generation is always observed either
// whole or not at all.
package sqlite
