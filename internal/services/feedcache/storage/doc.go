// Package storage declares the feed cache persistence contract.
//
// A feed cache holds at most one generation: a timestamp plus an ordered list
// of feed items. Writing a generation replaces the previous one; nothing is
// merged and no history is kept.
package storage
