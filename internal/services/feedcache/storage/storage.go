package storage

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/feedcache/internal/feed"
	apperrors "github.com/louisbranch/feedcache/internal/platform/errors"
)

var (
	// ErrStoreUnavailable indicates the store location or schema could not be opened.
	ErrStoreUnavailable = apperrors.New(apperrors.CodeStoreUnavailable, "feed cache store unavailable")
	// ErrEngineFailure indicates the storage engine failed a fetch, write, or commit.
	ErrEngineFailure = apperrors.New(apperrors.CodeEngineFailure, "feed cache engine failure")
	// ErrStoreClosed indicates an operation submitted after Close.
	ErrStoreClosed = apperrors.New(apperrors.CodeStoreClosed, "feed cache store closed")
	// ErrInvalidItem indicates an insert with an item missing a required field.
	ErrInvalidItem = apperrors.New(apperrors.CodeInvalidItem, "invalid feed item")
)

// Generation is one complete cache snapshot.
type Generation struct {
	Items     []feed.Item
	Timestamp time.Time
}

// Retrieval is the outcome of a successful retrieve. Found is false when the
// cache is empty.
type Retrieval struct {
	Generation
	Found bool
}

// CacheRecord is the persisted aggregate: the single cache row and the item
// rows it owns, in insertion order.
type CacheRecord struct {
	ID        int64
	Timestamp time.Time
	Items     []ItemRecord
}

// ItemRecord is one persisted item. CacheID records ownership only; item
// records are never looked up through it.
type ItemRecord struct {
	CacheID     int64
	Position    int
	ID          uuid.UUID
	Description *string
	Location    *string
	URL         *url.URL
}

// FeedStore is the asynchronous feed cache contract. Each call returns
// immediately and reports exactly once through its completion, after the
// underlying write has committed or failed. Completions are delivered in
// submission order.
type FeedStore interface {
	Retrieve(completion func(Retrieval, error))
	Insert(items []feed.Item, timestamp time.Time, completion func(error))
	Delete(completion func(error))
}

// Retrieve submits a retrieve and waits for its result or ctx.
//
// Abandoning the wait does not cancel the submitted operation.
func Retrieve(ctx context.Context, store FeedStore) (Retrieval, error) {
	type result struct {
		retrieval Retrieval
		err       error
	}
	done := make(chan result, 1)
	store.Retrieve(func(retrieval Retrieval, err error) {
		done <- result{retrieval: retrieval, err: err}
	})
	select {
	case res := <-done:
		return res.retrieval, res.err
	case <-ctx.Done():
		return Retrieval{}, ctx.Err()
	}
}

// Insert submits an insert and waits for its result or ctx.
func Insert(ctx context.Context, store FeedStore, items []feed.Item, timestamp time.Time) error {
	done := make(chan error, 1)
	store.Insert(items, timestamp, func(err error) { done <- err })
	return wait(ctx, done)
}

// Delete submits a delete and waits for its result or ctx.
func Delete(ctx context.Context, store FeedStore) error {
	done := make(chan error, 1)
	store.Delete(func(err error) { done <- err })
	return wait(ctx, done)
}

func wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
