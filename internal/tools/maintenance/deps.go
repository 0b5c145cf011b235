package maintenance

import (
	"github.com/louisbranch/feedcache/internal/services/feedcache/storage"
	"github.com/louisbranch/feedcache/internal/services/feedcache/storage/sqlite"
)

// closableFeedStore extends FeedStore with a Close method for resource cleanup.
type closableFeedStore interface {
	storage.FeedStore
	Close() error
}

// openStore opens the store a maintenance run operates on.
var openStore = func(path string) (closableFeedStore, error) {
	return sqlite.Open(path)
}
