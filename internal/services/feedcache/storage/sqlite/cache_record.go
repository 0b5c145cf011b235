package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/feedcache/internal/feed"
	"github.com/louisbranch/feedcache/internal/services/feedcache/storage"
)

// findCache loads the sole cache row. A missing row is not an error.
func findCache(ctx context.Context, tx *sql.Tx) (storage.CacheRecord, bool, error) {
	var (
		record  storage.CacheRecord
		seconds int64
		nanos   int64
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, timestamp_seconds, timestamp_nanos FROM feed_caches ORDER BY id LIMIT 1`,
	).Scan(&record.ID, &seconds, &nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.CacheRecord{}, false, nil
	}
	if err != nil {
		return storage.CacheRecord{}, false, fmt.Errorf("find feed cache: %w", err)
	}
	record.Timestamp = fromUnixParts(seconds, nanos)
	return record, true, nil
}

// deleteCache removes the cache row, if any; item rows cascade.
func deleteCache(ctx context.Context, tx *sql.Tx) (bool, error) {
	record, found, err := findCache(ctx, tx)
	if err != nil || !found {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feed_caches WHERE id = ?`, record.ID); err != nil {
		return false, fmt.Errorf("delete feed cache: %w", err)
	}
	return true, nil
}

// replaceCache deletes any existing cache row and creates an empty one
// stamped with timestamp, within tx.
func replaceCache(ctx context.Context, tx *sql.Tx, timestamp time.Time) (storage.CacheRecord, error) {
	if _, err := deleteCache(ctx, tx); err != nil {
		return storage.CacheRecord{}, err
	}
	seconds, nanos := toUnixParts(timestamp)
	result, err := tx.ExecContext(ctx,
		`INSERT INTO feed_caches (slot, timestamp_seconds, timestamp_nanos) VALUES (0, ?, ?)`,
		seconds, nanos,
	)
	if err != nil {
		return storage.CacheRecord{}, fmt.Errorf("create feed cache: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.CacheRecord{}, fmt.Errorf("read feed cache id: %w", err)
	}
	return storage.CacheRecord{ID: id, Timestamp: fromUnixParts(seconds, nanos)}, nil
}

// insertItems writes records under their owning cache row.
func insertItems(ctx context.Context, tx *sql.Tx, records []storage.ItemRecord) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO feed_cache_items (cache_id, position, item_id, description, location, url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare feed cache item insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx,
			record.CacheID,
			record.Position,
			record.ID.String(),
			toNullString(record.Description),
			toNullString(record.Location),
			record.URL.String(),
		); err != nil {
			return fmt.Errorf("insert feed cache item %d: %w", record.Position, err)
		}
	}
	return nil
}

// materializeItems reads the items owned by cacheID in stored order.
func materializeItems(ctx context.Context, tx *sql.Tx, cacheID int64) ([]feed.Item, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT position, item_id, description, location, url
		 FROM feed_cache_items
		 WHERE cache_id = ?
		 ORDER BY position`,
		cacheID,
	)
	if err != nil {
		return nil, fmt.Errorf("list feed cache items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]storage.ItemRecord, 0)
	for rows.Next() {
		record, err := scanItemRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		record.CacheID = cacheID
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed cache items: %w", err)
	}
	return storage.DomainItems(records), nil
}

func scanItemRecord(scan func(dest ...any) error) (storage.ItemRecord, error) {
	var (
		record      storage.ItemRecord
		itemID      string
		description sql.NullString
		location    sql.NullString
		rawURL      string
	)
	if err := scan(&record.Position, &itemID, &description, &location, &rawURL); err != nil {
		return storage.ItemRecord{}, fmt.Errorf("scan feed cache item: %w", err)
	}
	id, err := uuid.Parse(itemID)
	if err != nil {
		return storage.ItemRecord{}, fmt.Errorf("decode feed cache item %d id: %w", record.Position, err)
	}
	link, err := url.Parse(rawURL)
	if err != nil {
		return storage.ItemRecord{}, fmt.Errorf("decode feed cache item %d url: %w", record.Position, err)
	}
	record.ID = id
	record.Description = fromNullString(description)
	record.Location = fromNullString(location)
	record.URL = link
	return record, nil
}

func toUnixParts(value time.Time) (int64, int64) {
	return value.Unix(), int64(value.Nanosecond())
}

func fromUnixParts(seconds, nanos int64) time.Time {
	return time.Unix(seconds, nanos).UTC()
}

func toNullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func fromNullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	text := value.String
	return &text
}
