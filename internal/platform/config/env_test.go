package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	DBPath  string        `env:"FEEDCACHE_TEST_DB_PATH" envDefault:"data/feedcache.db"`
	Timeout time.Duration `env:"FEEDCACHE_TEST_TIMEOUT" envDefault:"30s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "data/feedcache.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "data/feedcache.db")
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v, want %v", cfg.Timeout, 30*time.Second)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("FEEDCACHE_TEST_DB_PATH", "/tmp/cache.db")
	t.Setenv("FEEDCACHE_TEST_TIMEOUT", "2m")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "/tmp/cache.db" || cfg.Timeout != 2*time.Minute {
		t.Fatalf("cfg = %+v, want overrides", cfg)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("FEEDCACHE_TEST_TIMEOUT", "soon")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
