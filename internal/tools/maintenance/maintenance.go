// Package maintenance implements the feed cache maintenance command.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/feedcache/internal/platform/cmd"
	"github.com/louisbranch/feedcache/internal/services/feedcache/storage"
	"github.com/louisbranch/feedcache/internal/services/feedcache/storage/sqlite"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath   string        `env:"FEEDCACHE_DB_PATH" envDefault:"data/feedcache.db"`
	Timeout  time.Duration `env:"FEEDCACHE_MAINTENANCE_TIMEOUT" envDefault:"30s"`
	Show     bool
	JSON     bool
	LoadPath string
	Clear    bool
	// ShutdownTimeout bounds the final span flush; zero uses the shared default.
	ShutdownTimeout time.Duration `env:"FEEDCACHE_OTEL_SHUTDOWN_TIMEOUT"`
}

type action string

const (
	actionShow  action = "show"
	actionLoad  action = "load"
	actionClear action = "clear"
)

var timeNow = time.Now

// ParseConfig loads env defaults and then parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if fs == nil {
		return Config{}, errors.New("flag parser is required")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the feed cache sqlite database (default: FEEDCACHE_DB_PATH or data/feedcache.db)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	fs.BoolVar(&cfg.Show, "show", false, "print the cached generation")
	fs.BoolVar(&cfg.JSON, "json", false, "print -show output as JSON")
	fs.StringVar(&cfg.LoadPath, "load", "", "replace the cached generation with the JSON generation in this file")
	fs.BoolVar(&cfg.Clear, "clear", false, "delete the cached generation")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) action() (action, error) {
	var selected []action
	if c.Show {
		selected = append(selected, actionShow)
	}
	if strings.TrimSpace(c.LoadPath) != "" {
		selected = append(selected, actionLoad)
	}
	if c.Clear {
		selected = append(selected, actionClear)
	}
	switch len(selected) {
	case 0:
		return "", errors.New("one of -show, -load, or -clear is required")
	case 1:
	default:
		return "", fmt.Errorf("only one action may be given, got %d", len(selected))
	}
	if c.JSON && selected[0] != actionShow {
		return "", errors.New("-json requires -show")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return "", errors.New("-db-path is required")
	}
	return selected[0], nil
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	selected, err := cfg.action()
	if err != nil {
		return err
	}

	var generation storage.Generation
	if selected == actionLoad {
		generation, err = readGeneration(cfg.LoadPath)
		if err != nil {
			return err
		}
	}

	options := entrypoint.RunOptions{ShutdownTimeout: cfg.ShutdownTimeout}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceMaintenance, options, func(ctx context.Context) error {
		store, err := openStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open feed cache store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				fmt.Fprintf(errOut, "Warning: close feed cache store: %v\n", err)
			}
		}()
		return withEngineCode(runWithStore(ctx, cfg, selected, generation, store, out))
	})
}

func runWithStore(ctx context.Context, cfg Config, selected action, generation storage.Generation, store storage.FeedStore, out io.Writer) error {
	switch selected {
	case actionShow:
		retrieval, err := storage.Retrieve(ctx, store)
		if err != nil {
			return fmt.Errorf("retrieve feed cache: %w", err)
		}
		if cfg.JSON {
			return outputJSON(out, documentFromRetrieval(retrieval))
		}
		printRetrieval(out, retrieval)
		return nil
	case actionLoad:
		if err := storage.Insert(ctx, store, generation.Items, generation.Timestamp); err != nil {
			return fmt.Errorf("insert feed cache: %w", err)
		}
		fmt.Fprintf(out, "Loaded %d items at %s\n", len(generation.Items), generation.Timestamp.Format(time.RFC3339Nano))
		return nil
	case actionClear:
		if err := storage.Delete(ctx, store); err != nil {
			return fmt.Errorf("delete feed cache: %w", err)
		}
		fmt.Fprintln(out, "Cache cleared")
		return nil
	default:
		return fmt.Errorf("unknown action %q", selected)
	}
}

func readGeneration(path string) (storage.Generation, error) {
	file, err := os.Open(path)
	if err != nil {
		return storage.Generation{}, fmt.Errorf("open generation file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	generation, err := decodeGeneration(file, timeNow())
	if err != nil {
		return storage.Generation{}, fmt.Errorf("%s: %w", path, err)
	}
	return generation, nil
}

func printRetrieval(out io.Writer, retrieval storage.Retrieval) {
	if !retrieval.Found {
		fmt.Fprintln(out, "Cache is empty")
		return
	}
	fmt.Fprintf(out, "Cache timestamp: %s\n", retrieval.Timestamp.Format(time.RFC3339Nano))
	fmt.Fprintf(out, "Items: %d\n", len(retrieval.Items))
	for i, item := range retrieval.Items {
		fmt.Fprintf(out, "%d. %s %s", i+1, item.ID, item.URL)
		if item.Description != nil {
			fmt.Fprintf(out, " description=%q", *item.Description)
		}
		if item.Location != nil {
			fmt.Fprintf(out, " location=%q", *item.Location)
		}
		fmt.Fprintln(out)
	}
}

func outputJSON(out io.Writer, doc generationDocument) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode generation: %w", err)
	}
	fmt.Fprintln(out, string(encoded))
	return nil
}

// withEngineCode appends the SQLite result code to engine errors.
func withEngineCode(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := sqlite.EngineCode(err); ok {
		return fmt.Errorf("%w (sqlite code %d)", err, code)
	}
	return err
}
