package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Cache struct {
	// Backend selects the persistent tier: "disk", "redis" or "none".
	Backend       string `json:"backend"`
	Dir           string `json:"dir"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	QuoteTTLMS    int    `json:"quote_ttl_ms"`
	CandleTTLSec  int    `json:"candle_ttl_sec"`
}

type Finnhub struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type Polygon struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type AlphaVantage struct {
	APIKey               string `json:"api_key"`
	BaseURL              string `json:"base_url"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type CoinGecko struct {
	Enabled              bool   `json:"enabled"`
	APIKey               string `json:"api_key"`
	BaseURL              string `json:"base_url"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Stream struct {
	Enabled       bool   `json:"enabled"`
	BinanceURL    string `json:"binance_url"`
	FinnhubURL    string `json:"finnhub_url"`
	PingPeriodSec int    `json:"ping_period_sec"`
}

type Config struct {
	Server       Server       `json:"server"`
	Cache        Cache        `json:"cache"`
	Finnhub      Finnhub      `json:"finnhub"`
	Polygon      Polygon      `json:"polygon"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	CoinGecko    CoinGecko    `json:"coingecko"`
	Stream       Stream       `json:"stream"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Cache: Cache{
			Backend:      "disk",
			Dir:          ".cache",
			RedisAddr:    "localhost:6379",
			QuoteTTLMS:   1000,
			CandleTTLSec: 300,
		},
		AlphaVantage: AlphaVantage{
			MaxRequestsPerMinute: 5,
			Burst:                1,
		},
		CoinGecko: CoinGecko{
			Enabled:              true,
			MaxRequestsPerMinute: 10,
			Burst:                2,
		},
		Stream: Stream{
			Enabled:       true,
			PingPeriodSec: 15,
		},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields
// so API keys never need to live in the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Cache.Backend {
	case "disk", "redis", "none":
	default:
		return fmt.Errorf("config: unknown cache backend %q", cfg.Cache.Backend)
	}
	return nil
}

func applyEnv(cfg *Config) {
	envStr("PORT", &cfg.Server.Port)
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec)

	envStr("CACHE_BACKEND", &cfg.Cache.Backend)
	envStr("CACHE_DIR", &cfg.Cache.Dir)
	envStr("REDIS_ADDR", &cfg.Cache.RedisAddr)
	envStr("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	envInt("REDIS_DB", &cfg.Cache.RedisDB)
	envInt("QUOTE_TTL_MS", &cfg.Cache.QuoteTTLMS)
	envInt("CANDLE_TTL_SEC", &cfg.Cache.CandleTTLSec)

	envStr("FINNHUB_API_KEY", &cfg.Finnhub.APIKey)
	envStr("FINNHUB_BASE_URL", &cfg.Finnhub.BaseURL)
	envStr("POLYGON_API_KEY", &cfg.Polygon.APIKey)
	envStr("POLYGON_BASE_URL", &cfg.Polygon.BaseURL)
	envStr("ALPHAVANTAGE_API_KEY", &cfg.AlphaVantage.APIKey)
	envStr("ALPHAVANTAGE_BASE_URL", &cfg.AlphaVantage.BaseURL)
	envInt("ALPHAVANTAGE_MAX_RPM", &cfg.AlphaVantage.MaxRequestsPerMinute)
	envInt("ALPHAVANTAGE_BURST", &cfg.AlphaVantage.Burst)

	envBool("COINGECKO_ENABLED", &cfg.CoinGecko.Enabled)
	envStr("COINGECKO_API_KEY", &cfg.CoinGecko.APIKey)
	envStr("COINGECKO_BASE_URL", &cfg.CoinGecko.BaseURL)
	envInt("COINGECKO_MAX_RPM", &cfg.CoinGecko.MaxRequestsPerMinute)
	envInt("COINGECKO_BURST", &cfg.CoinGecko.Burst)

	envBool("STREAM_ENABLED", &cfg.Stream.Enabled)
	envStr("STREAM_BINANCE_URL", &cfg.Stream.BinanceURL)
	envStr("STREAM_FINNHUB_URL", &cfg.Stream.FinnhubURL)
	envInt("STREAM_PING_PERIOD_SEC", &cfg.Stream.PingPeriodSec)
}

func envStr(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		var x int
		if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x >= 0 {
			*dst = x
		}
	}
}

func envBool(name string, dst *bool) {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}
