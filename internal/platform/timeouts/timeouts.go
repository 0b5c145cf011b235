// Package timeouts defines shared timeout constants used across the feed
// cache packages.
package timeouts

import "time"

// SQLiteBusy caps how long a SQLite connection waits on a locked database
// file before reporting SQLITE_BUSY.
const SQLiteBusy = 5 * time.Second

// StoreOpen caps schema application while opening a store.
const StoreOpen = 30 * time.Second

// Shutdown limits how long telemetry waits to flush during process exit.
const Shutdown = 5 * time.Second
