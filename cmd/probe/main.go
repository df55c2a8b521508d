// Command probe exercises each configured provider directly, bypassing the
// cache and the fallback cascade, and reports per-provider latency and
// errors. Run it after rotating API keys to see which sources still answer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"quotefeed/internal/config"
	"quotefeed/internal/httpx"
	"quotefeed/internal/provider/alphavantage"
	"quotefeed/internal/provider/coingecko"
	"quotefeed/internal/provider/finnhub"
	"quotefeed/internal/provider/polygon"
	"quotefeed/internal/quote"
	"quotefeed/internal/symbols"
)

type probeResult struct {
	Provider  string       `json:"provider"`
	Symbol    string       `json:"symbol"`
	OK        bool         `json:"ok"`
	LatencyMS int64        `json:"latency_ms"`
	Error     string       `json:"error,omitempty"`
	Quote     *quote.Quote `json:"quote,omitempty"`
}

func main() {
	var (
		stockSymbol  string
		cryptoSymbol string
		timeoutSec   int
		cfgPath      string
	)
	flag.StringVar(&stockSymbol, "stock", "AAPL", "stock symbol to probe with")
	flag.StringVar(&cryptoSymbol, "crypto", "BTC-USD", "crypto symbol to probe with")
	flag.IntVar(&timeoutSec, "timeout", 15, "request timeout seconds")
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	httpClient := httpx.New(time.Duration(timeoutSec) * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Duration(timeoutSec)*time.Second)
	defer cancel()

	var results []probeResult

	fh := finnhub.New(finnhub.Config{APIKey: cfg.Finnhub.APIKey, BaseURL: cfg.Finnhub.BaseURL}, httpClient)
	if fh.Enabled() {
		results = append(results, probe(ctx, "finnhub", stockSymbol, func(ctx context.Context) (quote.Quote, error) {
			return fh.Quote(ctx, stockSymbol)
		}))
	} else {
		results = append(results, skipped("finnhub", stockSymbol))
	}

	pg, err := polygon.NewClient(cfg.Polygon.APIKey, polygon.WithHTTPClient(httpClient.HTTP))
	if err != nil {
		log.Fatalf("polygon: %v", err)
	}
	if pg.Enabled() {
		results = append(results, probe(ctx, "polygon", stockSymbol, func(ctx context.Context) (quote.Quote, error) {
			return pg.Snapshot(ctx, stockSymbol)
		}))
	} else {
		results = append(results, skipped("polygon", stockSymbol))
	}

	cg := coingecko.New(coingecko.Config{
		APIKey:            cfg.CoinGecko.APIKey,
		BaseURL:           cfg.CoinGecko.BaseURL,
		Disabled:          !cfg.CoinGecko.Enabled,
		RequestsPerMinute: cfg.CoinGecko.MaxRequestsPerMinute,
		Burst:             cfg.CoinGecko.Burst,
	}, httpClient)
	if id, ok := symbols.CoinGeckoID(cryptoSymbol); ok && cg.Enabled() {
		results = append(results, probe(ctx, "coingecko", cryptoSymbol, func(ctx context.Context) (quote.Quote, error) {
			return cg.SimplePrice(ctx, id)
		}))
	} else {
		results = append(results, skipped("coingecko", cryptoSymbol))
	}

	av := alphavantage.New(alphavantage.Config{
		APIKey:            cfg.AlphaVantage.APIKey,
		BaseURL:           cfg.AlphaVantage.BaseURL,
		RequestsPerMinute: cfg.AlphaVantage.MaxRequestsPerMinute,
		Burst:             cfg.AlphaVantage.Burst,
	}, httpClient)
	if av.Enabled() {
		results = append(results, probe(ctx, "alpha-vantage", stockSymbol, func(ctx context.Context) (quote.Quote, error) {
			ov, err := av.GetOverview(ctx, stockSymbol)
			if err != nil {
				return quote.Quote{}, err
			}
			daily, err := av.GetDaily(ctx, stockSymbol)
			if err != nil {
				return quote.Quote{}, err
			}
			return quote.Quote{Symbol: ov.Symbol, Price: daily[len(daily)-1].Close, Volume: ov.MarketCap}, nil
		}))
	} else {
		results = append(results, skipped("alpha-vantage", stockSymbol))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(results)

	anyOK := false
	for _, r := range results {
		if r.OK {
			anyOK = true
		}
	}
	if !anyOK {
		os.Exit(1)
	}
}

func probe(ctx context.Context, name, symbol string, fetch func(context.Context) (quote.Quote, error)) probeResult {
	start := time.Now()
	q, err := fetch(ctx)
	res := probeResult{
		Provider:  name,
		Symbol:    symbol,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	q.Symbol = symbol
	q.Source = name
	res.OK = true
	res.Quote = &q
	return res
}

func skipped(name, symbol string) probeResult {
	return probeResult{Provider: name, Symbol: symbol, Error: fmt.Sprintf("%s not configured", name)}
}
