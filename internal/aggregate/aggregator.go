// Package aggregate orchestrates symbol classification, request
// deduplication, the two-tier cache and the ordered provider fallback
// cascade behind one pair of calls: GetQuote and GetCandles. Upstream
// failures never reach the caller; total exhaustion degrades to an absent
// quote or an empty candle list.
package aggregate

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"quotefeed/internal/cache"
	"quotefeed/internal/dedup"
	"quotefeed/internal/metrics"
	"quotefeed/internal/provider/alphavantage"
	"quotefeed/internal/provider/coingecko"
	"quotefeed/internal/quote"
	"quotefeed/internal/symbols"
	"quotefeed/internal/validate"
)

// Quotes are near-real-time, so their cache entries expire fast; candle
// history changes slowly and can live much longer.
const (
	DefaultQuoteTTL  = time.Second
	DefaultCandleTTL = 5 * time.Minute

	// DefaultFetchTimeout bounds one deduplicated upstream computation. The
	// flight runs detached from its first caller, so this is its only limit.
	DefaultFetchTimeout = 15 * time.Second
)

// FinnhubAPI is the primary provider: stock quotes/candles plus the
// exchange-routed BINANCE and OANDA paths.
type FinnhubAPI interface {
	Enabled() bool
	Quote(ctx context.Context, symbol string) (quote.Quote, error)
	Candles(ctx context.Context, symbol, resolution string, from, to time.Time) ([]quote.Candle, error)
}

// PolygonAPI is the secondary snapshot provider for stocks.
type PolygonAPI interface {
	Enabled() bool
	Snapshot(ctx context.Context, symbol string) (quote.Quote, error)
	Aggregates(ctx context.Context, symbol, timespan string, from, to time.Time) ([]quote.Candle, error)
}

// CoinGeckoAPI is the crypto market-data provider, keyed by asset id.
type CoinGeckoAPI interface {
	Enabled() bool
	SimplePrice(ctx context.Context, id string) (quote.Quote, error)
	OHLC(ctx context.Context, id, days string) ([]quote.Candle, error)
	MarketChart(ctx context.Context, id, days string) ([]quote.Candle, error)
}

// AlphaVantageAPI is the tertiary overview + time-series provider.
type AlphaVantageAPI interface {
	Enabled() bool
	GetOverview(ctx context.Context, symbol string) (alphavantage.Overview, error)
	GetDaily(ctx context.Context, symbol string) ([]quote.Candle, error)
}

// Deps are the aggregator's injected collaborators. Any provider may be nil;
// it simply never appears in a cascade.
type Deps struct {
	Finnhub      FinnhubAPI
	Polygon      PolygonAPI
	CoinGecko    CoinGeckoAPI
	AlphaVantage AlphaVantageAPI
	Cache        *cache.Store
	Metrics      *metrics.Metrics
}

// Aggregator is safe for concurrent use. Construct one per process and share
// it by reference.
type Aggregator struct {
	finnhub   FinnhubAPI
	polygon   PolygonAPI
	coingecko CoinGeckoAPI
	alpha     AlphaVantageAPI

	store        *cache.Store
	met          *metrics.Metrics
	quoteTTL     time.Duration
	candleTTL    time.Duration
	fetchTimeout time.Duration
	logf         func(format string, args ...any)

	quotes  dedup.Group[*quote.Quote]
	candles dedup.Group[[]quote.Candle]
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithQuoteTTL overrides the quote cache TTL.
func WithQuoteTTL(ttl time.Duration) Option {
	return func(a *Aggregator) { a.quoteTTL = ttl }
}

// WithCandleTTL overrides the candle cache TTL.
func WithCandleTTL(ttl time.Duration) Option {
	return func(a *Aggregator) { a.candleTTL = ttl }
}

// WithFetchTimeout overrides the per-flight upstream timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.fetchTimeout = d }
}

// WithLogf overrides the recoverable-error sink.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(a *Aggregator) { a.logf = logf }
}

func New(deps Deps, opts ...Option) *Aggregator {
	a := &Aggregator{
		finnhub:      deps.Finnhub,
		polygon:      deps.Polygon,
		coingecko:    deps.CoinGecko,
		alpha:        deps.AlphaVantage,
		store:        deps.Cache,
		met:          deps.Metrics,
		quoteTTL:     DefaultQuoteTTL,
		candleTTL:    DefaultCandleTTL,
		fetchTimeout: DefaultFetchTimeout,
		logf:         log.Printf,
	}
	if a.store == nil {
		a.store = cache.New()
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// source is one entry in a fallback cascade. Adding a provider to a cascade
// means appending an entry, not new branching logic.
type quoteSource struct {
	name  string
	fetch func(ctx context.Context) (quote.Quote, error)
}

type candleSource struct {
	name  string
	fetch func(ctx context.Context) ([]quote.Candle, error)
}

// GetQuote returns the canonical quote for symbol, or ok=false when every
// provider in the cascade failed or returned invalid data. Concurrent calls
// for the same symbol collapse into one upstream round trip.
func (a *Aggregator) GetQuote(ctx context.Context, symbol string) (quote.Quote, bool) {
	key := "quote:" + symbol
	result, err := a.quotes.Do(key, func() (*quote.Quote, error) {
		if cached, ok := cache.Get[quote.Quote](a.store, key, a.quoteTTL); ok {
			return &cached, nil
		}
		// The flight is shared: its first caller cancelling must not abort
		// it under the waiters that joined later.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.fetchTimeout)
		defer cancel()
		for _, src := range a.quoteSources(symbol) {
			a.met.ProviderRequest(src.name)
			raw, err := src.fetch(ctx)
			if err != nil {
				a.met.ProviderError(src.name)
				a.logf("aggregate: quote %s via %s: %v", symbol, src.name, err)
				continue
			}
			raw.Symbol = symbol
			raw.Source = src.name
			q, ok := validate.SafeQuote(raw)
			if !ok {
				a.met.ProviderError(src.name)
				a.logf("aggregate: quote %s via %s: invalid record", symbol, src.name)
				continue
			}
			cache.Set(a.store, key, q)
			a.met.QuoteServed(src.name)
			return &q, nil
		}
		return nil, nil
	})
	if err != nil || result == nil {
		return quote.Quote{}, false
	}
	return *result, true
}

// GetCandles returns ascending, deduplicated candles for the requested range,
// or an empty slice when no provider could serve it. Never an error.
func (a *Aggregator) GetCandles(ctx context.Context, symbol, resolution string, fromSec, toSec int64) []quote.Candle {
	key := fmt.Sprintf("candles:%s:%s:%d:%d", symbol, resolution, fromSec, toSec)
	result, err := a.candles.Do(key, func() ([]quote.Candle, error) {
		if cached, ok := cache.Get[[]quote.Candle](a.store, key, a.candleTTL); ok {
			return cached, nil
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.fetchTimeout)
		defer cancel()
		from := time.Unix(fromSec, 0).UTC()
		to := time.Unix(toSec, 0).UTC()
		for _, src := range a.candleSources(symbol, resolution, from, to) {
			a.met.ProviderRequest(src.name)
			got, err := src.fetch(ctx)
			if err != nil {
				a.met.ProviderError(src.name)
				a.logf("aggregate: candles %s via %s: %v", symbol, src.name, err)
				continue
			}
			got = normalizeCandles(got)
			if len(got) == 0 {
				continue
			}
			if err := validate.Candles(got); err != nil {
				a.met.ProviderError(src.name)
				a.logf("aggregate: candles %s via %s: %v", symbol, src.name, err)
				continue
			}
			cache.Set(a.store, key, got)
			return got, nil
		}
		return []quote.Candle{}, nil
	})
	if err != nil || result == nil {
		return []quote.Candle{}
	}
	return result
}

func (a *Aggregator) quoteSources(symbol string) []quoteSource {
	switch symbols.Classify(symbol) {
	case symbols.Crypto:
		var srcs []quoteSource
		if id, ok := symbols.CoinGeckoID(symbol); ok && a.coingecko != nil && a.coingecko.Enabled() {
			srcs = append(srcs, quoteSource{"coingecko", func(ctx context.Context) (quote.Quote, error) {
				return a.coingecko.SimplePrice(ctx, id)
			}})
		}
		if a.finnhub != nil && a.finnhub.Enabled() {
			srcs = append(srcs, quoteSource{"finnhub-binance", func(ctx context.Context) (quote.Quote, error) {
				return a.finnhub.Quote(ctx, symbols.BinanceSymbol(symbol))
			}})
		}
		return srcs
	case symbols.Commodity:
		if a.finnhub != nil && a.finnhub.Enabled() {
			return []quoteSource{{"finnhub-oanda", func(ctx context.Context) (quote.Quote, error) {
				return a.finnhub.Quote(ctx, symbols.OandaSymbol(symbol))
			}}}
		}
		return nil
	default:
		var srcs []quoteSource
		if a.finnhub != nil && a.finnhub.Enabled() {
			srcs = append(srcs, quoteSource{"finnhub", func(ctx context.Context) (quote.Quote, error) {
				return a.finnhub.Quote(ctx, symbol)
			}})
		}
		if a.polygon != nil && a.polygon.Enabled() {
			srcs = append(srcs, quoteSource{"polygon", func(ctx context.Context) (quote.Quote, error) {
				return a.polygon.Snapshot(ctx, symbol)
			}})
		}
		if a.alpha != nil && a.alpha.Enabled() {
			srcs = append(srcs, quoteSource{"alpha-vantage", a.alphaQuote(symbol)})
		}
		return srcs
	}
}

// alphaQuote synthesizes a quote from the company overview and the two most
// recent daily closes; this source has no real-time quote endpoint. Market
// cap stands in for volume, the only volume-like figure it serves. Missing
// range fields are left zero for loose validation to fill.
func (a *Aggregator) alphaQuote(symbol string) func(ctx context.Context) (quote.Quote, error) {
	return func(ctx context.Context) (quote.Quote, error) {
		ov, err := a.alpha.GetOverview(ctx, symbol)
		if err != nil {
			return quote.Quote{}, err
		}
		daily, err := a.alpha.GetDaily(ctx, symbol)
		if err != nil {
			return quote.Quote{}, err
		}
		latest := daily[len(daily)-1]
		q := quote.Quote{Price: latest.Close, Volume: ov.MarketCap}
		if len(daily) > 1 {
			if prev := daily[len(daily)-2].Close; prev > 0 {
				q.Change = q.Price - prev
				q.ChangePercent = q.Change / prev * 100
				q.PreviousClose = prev
			}
		}
		return q, nil
	}
}

func (a *Aggregator) candleSources(symbol, resolution string, from, to time.Time) []candleSource {
	switch symbols.Classify(symbol) {
	case symbols.Crypto:
		id, ok := symbols.CoinGeckoID(symbol)
		if !ok || a.coingecko == nil || !a.coingecko.Enabled() {
			return nil
		}
		days := coingecko.Days(from, to)
		return []candleSource{
			{"coingecko", func(ctx context.Context) ([]quote.Candle, error) {
				return a.coingecko.OHLC(ctx, id, days)
			}},
			{"coingecko-chart", func(ctx context.Context) ([]quote.Candle, error) {
				return a.coingecko.MarketChart(ctx, id, days)
			}},
		}
	case symbols.Commodity:
		if a.finnhub != nil && a.finnhub.Enabled() {
			return []candleSource{{"finnhub-oanda", func(ctx context.Context) ([]quote.Candle, error) {
				return a.finnhub.Candles(ctx, symbols.OandaSymbol(symbol), resolution, from, to)
			}}}
		}
		return nil
	default:
		var srcs []candleSource
		if a.finnhub != nil && a.finnhub.Enabled() {
			srcs = append(srcs, candleSource{"finnhub", func(ctx context.Context) ([]quote.Candle, error) {
				return a.finnhub.Candles(ctx, symbol, resolution, from, to)
			}})
		}
		if a.polygon != nil && a.polygon.Enabled() {
			timespan := "day"
			if resolution == "W" {
				timespan = "week"
			}
			srcs = append(srcs, candleSource{"polygon", func(ctx context.Context) ([]quote.Candle, error) {
				return a.polygon.Aggregates(ctx, symbol, timespan, from, to)
			}})
		}
		if a.alpha != nil && a.alpha.Enabled() {
			srcs = append(srcs, candleSource{"alpha-vantage", func(ctx context.Context) ([]quote.Candle, error) {
				return a.alpha.GetDaily(ctx, symbol)
			}})
		}
		return srcs
	}
}

// normalizeCandles sorts ascending by date and drops duplicate buckets,
// keeping the first occurrence. Dates are YYYY-MM-DD, so lexicographic order
// is chronological order.
func normalizeCandles(cs []quote.Candle) []quote.Candle {
	if len(cs) < 2 {
		return cs
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Time < cs[j].Time })
	out := cs[:1]
	for _, c := range cs[1:] {
		if c.Time != out[len(out)-1].Time {
			out = append(out, c)
		}
	}
	return out
}
