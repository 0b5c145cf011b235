package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/feedcache/internal/feed"
	apperrors "github.com/louisbranch/feedcache/internal/platform/errors"
	"github.com/louisbranch/feedcache/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/feedcache/internal/platform/storage/sqliteserial"
	"github.com/louisbranch/feedcache/internal/platform/timeouts"
	"github.com/louisbranch/feedcache/internal/services/feedcache/storage"
	"github.com/louisbranch/feedcache/internal/services/feedcache/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
)

// Store provides SQLite-backed feed cache persistence.
type Store struct {
	sqlDB *sql.DB
	queue *sqliteserial.Queue
}

var _ storage.FeedStore = (*Store)(nil)

type options struct {
	schema     fs.FS
	schemaRoot string
}

// Option configures Open.
type Option func(*options)

// WithSchema replaces the embedded schema with the .sql files under root in
// schema.
func WithSchema(schema fs.FS, root string) Option {
	return func(o *options) {
		o.schema = schema
		o.schemaRoot = root
	}
}

// Open opens a SQLite feed cache store at path and applies its schema.
//
// A failed Open returns an error matching storage.ErrStoreUnavailable and
// leaves no database file behind when none existed before the call.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, unavailable("storage path is required", nil)
	}
	// The driver reads everything after '?' as connection parameters.
	if strings.Contains(path, "?") {
		return nil, unavailable(fmt.Sprintf("storage path %q must not contain '?'", path), nil)
	}
	cfg := options{schema: migrations.FS}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.schema == nil {
		return nil, unavailable("schema is required", nil)
	}

	cleanPath := filepath.Clean(path)
	existed := fileExists(cleanPath)
	store, err := open(cleanPath, cfg)
	if err != nil {
		if !existed {
			removeDatabaseFiles(cleanPath)
		}
		return nil, err
	}
	return store, nil
}

func open(cleanPath string, cfg options) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", dsn(cleanPath))
	if err != nil {
		return nil, unavailable("open sqlite store", err)
	}
	// The storage context owns the only connection.
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.StoreOpen)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, unavailable("ping sqlite store", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, cfg.schema, cfg.schemaRoot); err != nil {
		_ = sqlDB.Close()
		return nil, unavailable("apply feed cache schema", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		_ = sqlDB.Close()
		return nil, unavailable("acquire sqlite connection", err)
	}

	return &Store{
		sqlDB: sqlDB,
		queue: sqliteserial.New(conn),
	}, nil
}

func dsn(path string) string {
	return fmt.Sprintf(
		"%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path,
		timeouts.SQLiteBusy.Milliseconds(),
	)
}

// Close drains submitted operations and releases the database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	var queueErr error
	if s.queue != nil {
		queueErr = s.queue.Close()
	}
	return errors.Join(queueErr, s.sqlDB.Close())
}

// Retrieve reports the current generation, or Found false when the cache is
// empty.
func (s *Store) Retrieve(completion func(storage.Retrieval, error)) {
	if completion == nil {
		completion = func(storage.Retrieval, error) {}
	}
	var retrieval storage.Retrieval
	s.perform("retrieve", func(ctx context.Context, tx *sql.Tx) error {
		record, found, err := findCache(ctx, tx)
		if err != nil || !found {
			return err
		}
		items, err := materializeItems(ctx, tx, record.ID)
		if err != nil {
			return err
		}
		retrieval = storage.Retrieval{
			Generation: storage.Generation{Items: items, Timestamp: record.Timestamp},
			Found:      true,
		}
		return nil
	}, func(err error) {
		if err != nil {
			completion(storage.Retrieval{}, err)
			return
		}
		completion(retrieval, nil)
	})
}

// Insert atomically replaces the current generation with items stamped at
// timestamp. The items are copied before Insert returns.
func (s *Store) Insert(items []feed.Item, timestamp time.Time, completion func(error)) {
	invalid := validateItems(items)
	records := storage.ItemRecordsFromDomain(items, 0)
	s.perform("insert", func(ctx context.Context, tx *sql.Tx) error {
		if invalid != nil {
			return invalid
		}
		record, err := replaceCache(ctx, tx, timestamp)
		if err != nil {
			return err
		}
		for i := range records {
			records[i].CacheID = record.ID
		}
		return insertItems(ctx, tx, records)
	}, completion)
}

// Delete removes the current generation. Deleting an empty cache succeeds.
func (s *Store) Delete(completion func(error)) {
	s.perform("delete", func(ctx context.Context, tx *sql.Tx) error {
		_, err := deleteCache(ctx, tx)
		return err
	}, completion)
}

func (s *Store) perform(name string, work sqliteserial.Work, completion func(error)) {
	if completion == nil {
		completion = func(error) {}
	}
	if s == nil || s.queue == nil {
		completion(apperrors.New(apperrors.CodeStoreUnavailable, "storage is not configured"))
		return
	}
	s.queue.Perform(name, work, completion)
}

func validateItems(items []feed.Item) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return apperrors.WrapWithMetadata(
				apperrors.CodeInvalidItem,
				fmt.Sprintf("validate item %d", i),
				map[string]string{"position": fmt.Sprint(i)},
				err,
			)
		}
	}
	return nil
}

// EngineCode returns the SQLite result code carried by err.
func EngineCode(err error) (int, bool) {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

func unavailable(message string, cause error) error {
	if cause == nil {
		return apperrors.New(apperrors.CodeStoreUnavailable, message)
	}
	return apperrors.Wrap(apperrors.CodeStoreUnavailable, message, cause)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func removeDatabaseFiles(path string) {
	for _, name := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		_ = os.Remove(name)
	}
}
