// Command fetch resolves quotes or candles for a list of symbols once and
// prints the result as JSON. Useful for smoke-testing provider credentials
// without standing up the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"quotefeed/internal/aggregate"
	"quotefeed/internal/cache"
	"quotefeed/internal/config"
	"quotefeed/internal/httpx"
	"quotefeed/internal/provider/alphavantage"
	"quotefeed/internal/provider/coingecko"
	"quotefeed/internal/provider/finnhub"
	"quotefeed/internal/provider/polygon"
	"quotefeed/internal/quote"
)

func main() {
	var (
		symbolsCSV string
		candles    bool
		resolution string
		fromSec    int64
		toSec      int64
		timeoutSec int
		cfgPath    string
	)
	flag.StringVar(&symbolsCSV, "symbols", "AAPL", "comma-separated symbols")
	flag.BoolVar(&candles, "candles", false, "fetch candles instead of quotes")
	flag.StringVar(&resolution, "resolution", "D", "candle resolution (D or W)")
	flag.Int64Var(&fromSec, "from", 0, "candle range start, epoch seconds (default: to-30d)")
	flag.Int64Var(&toSec, "to", 0, "candle range end, epoch seconds (default: now)")
	flag.IntVar(&timeoutSec, "timeout", 15, "request timeout seconds")
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeoutSec > 0 {
		cfg.Server.RequestTimeoutSec = timeoutSec
	}

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal("no symbols given")
	}

	agg := buildAggregator(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second*time.Duration(len(symbols)))
	defer cancel()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if candles {
		if toSec == 0 {
			toSec = time.Now().Unix()
		}
		if fromSec == 0 {
			fromSec = toSec - 30*24*60*60
		}
		out := make(map[string][]quote.Candle, len(symbols))
		for _, sym := range symbols {
			out[sym] = agg.GetCandles(ctx, sym, resolution, fromSec, toSec)
		}
		_ = enc.Encode(out)
		return
	}

	out := make(map[string]*quote.Quote, len(symbols))
	missing := 0
	for _, sym := range symbols {
		if q, ok := agg.GetQuote(ctx, sym); ok {
			out[sym] = &q
		} else {
			out[sym] = nil
			missing++
		}
	}
	_ = enc.Encode(out)
	if missing == len(symbols) {
		os.Exit(1)
	}
}

func buildAggregator(cfg config.Config) *aggregate.Aggregator {
	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	fh := finnhub.New(finnhub.Config{APIKey: cfg.Finnhub.APIKey, BaseURL: cfg.Finnhub.BaseURL}, httpClient)
	pg, err := polygon.NewClient(cfg.Polygon.APIKey, polygon.WithHTTPClient(httpClient.HTTP))
	if err != nil {
		log.Fatalf("polygon: %v", err)
	}
	cg := coingecko.New(coingecko.Config{
		APIKey:            cfg.CoinGecko.APIKey,
		BaseURL:           cfg.CoinGecko.BaseURL,
		Disabled:          !cfg.CoinGecko.Enabled,
		RequestsPerMinute: cfg.CoinGecko.MaxRequestsPerMinute,
		Burst:             cfg.CoinGecko.Burst,
	}, httpClient)
	av := alphavantage.New(alphavantage.Config{
		APIKey:            cfg.AlphaVantage.APIKey,
		BaseURL:           cfg.AlphaVantage.BaseURL,
		RequestsPerMinute: cfg.AlphaVantage.MaxRequestsPerMinute,
		Burst:             cfg.AlphaVantage.Burst,
	}, httpClient)

	// One-shot runs skip the persistent tier so stale disk entries from a
	// previous server run cannot mask a live fetch.
	return aggregate.New(aggregate.Deps{
		Finnhub:      fh,
		Polygon:      pg,
		CoinGecko:    cg,
		AlphaVantage: av,
		Cache:        cache.New(),
	})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
