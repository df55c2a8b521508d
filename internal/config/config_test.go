package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Cache.Backend != "disk" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.Cache.QuoteTTLMS != 1000 || cfg.Cache.CandleTTLSec != 300 {
		t.Fatalf("ttl defaults: %+v", cfg.Cache)
	}
	if !cfg.CoinGecko.Enabled || !cfg.Stream.Enabled {
		t.Fatalf("feature defaults: %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"server":{"port":"9090"},"cache":{"backend":"none"},"finnhub":{"api_key":"file-key"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Cache.Backend != "none" || cfg.Finnhub.APIKey != "file-key" {
		t.Fatalf("overrides: %+v", cfg)
	}
	// untouched sections keep defaults
	if cfg.Cache.CandleTTLSec != 300 {
		t.Fatalf("default lost: %+v", cfg.Cache)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"finnhub":{"api_key":"file-key"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FINNHUB_API_KEY", "env-key")
	t.Setenv("QUOTE_TTL_MS", "250")
	t.Setenv("STREAM_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Finnhub.APIKey != "env-key" {
		t.Fatalf("env should win: %+v", cfg.Finnhub)
	}
	if cfg.Cache.QuoteTTLMS != 250 {
		t.Fatalf("ttl: %+v", cfg.Cache)
	}
	if cfg.Stream.Enabled {
		t.Fatal("stream should be disabled via env")
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"cache":{"backend":"memcached"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected backend validation error")
	}
}
