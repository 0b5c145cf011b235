package storage

import (
	"net/url"

	"github.com/louisbranch/feedcache/internal/feed"
)

// ItemRecordFromDomain converts item into the record stored at position
// within the cache identified by cacheID.
func ItemRecordFromDomain(item feed.Item, cacheID int64, position int) ItemRecord {
	return ItemRecord{
		CacheID:     cacheID,
		Position:    position,
		ID:          item.ID,
		Description: cloneText(item.Description),
		Location:    cloneText(item.Location),
		URL:         cloneURL(item.URL),
	}
}

// ItemRecordsFromDomain converts items in order, numbering positions from zero.
func ItemRecordsFromDomain(items []feed.Item, cacheID int64) []ItemRecord {
	records := make([]ItemRecord, 0, len(items))
	for i, item := range items {
		records = append(records, ItemRecordFromDomain(item, cacheID, i))
	}
	return records
}

// Domain converts the record back into a feed item.
func (r ItemRecord) Domain() feed.Item {
	return feed.Item{
		ID:          r.ID,
		Description: cloneText(r.Description),
		Location:    cloneText(r.Location),
		URL:         cloneURL(r.URL),
	}
}

// DomainItems converts records in order.
func DomainItems(records []ItemRecord) []feed.Item {
	items := make([]feed.Item, 0, len(records))
	for _, record := range records {
		items = append(items, record.Domain())
	}
	return items
}

func cloneText(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneURL(value *url.URL) *url.URL {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
