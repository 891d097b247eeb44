package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("QUIZ_API_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.API.URL != "http://localhost:8000" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverlaysFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "api:\n  url: https://quiz.example.com\nstorage:\n  driver: redis\nredis:\n  addr: localhost:6379\nquiz:\n  ttl: 30s\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("QUIZ_API_URL", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.URL != "https://quiz.example.com" || cfg.Storage.Driver != DriverRedis || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.API.Timeout != "10s" {
		t.Fatalf("expected default timeout to survive, got %q", cfg.API.Timeout)
	}
	if got := TTLDuration(cfg.Quiz.TTL, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %v", got)
	}

	t.Setenv("QUIZ_API_URL", "http://override:9000")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.URL != "http://override:9000" {
		t.Fatalf("env override not applied: %s", cfg.API.URL)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on bad input, got %v", got)
	}
}
