// Package coingecko is the crypto market-data source. Symbols are CoinGecko
// asset ids ("bitcoin"), not exchange pairs; the symbols package owns the
// mapping. The public tier is tightly rate limited, so every call goes
// through a token bucket.
package coingecko

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"quotefeed/internal/httpx"
	"quotefeed/internal/provider"
	"quotefeed/internal/quote"
	"quotefeed/internal/ratelimit"
)

type Config struct {
	Name     string
	BaseURL  string
	APIKey   string // optional demo/pro key
	Disabled bool
	// RequestsPerMinute gates calls to the public tier. <= 0 disables gating.
	RequestsPerMinute int
	Burst             int
}

type Client struct {
	cfg    Config
	client *httpx.Client
	tb     *ratelimit.TokenBucket
}

func New(cfg Config, hc *httpx.Client) *Client {
	if cfg.Name == "" {
		cfg.Name = "coingecko"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.coingecko.com/api/v3"
	}
	c := &Client{cfg: cfg, client: hc}
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.tb = ratelimit.PerMinute(cfg.RequestsPerMinute, burst)
	}
	return c
}

func (c *Client) Name() string  { return c.cfg.Name }
func (c *Client) Enabled() bool { return !c.cfg.Disabled }

func (c *Client) headers() map[string]string {
	if c.cfg.APIKey == "" {
		return nil
	}
	return map[string]string{"x-cg-demo-api-key": c.cfg.APIKey}
}

type simplePrice struct {
	USD           float64 `json:"usd"`
	USD24hChange  float64 `json:"usd_24h_change"`
	USD24hVol     float64 `json:"usd_24h_vol"`
	LastUpdatedAt int64   `json:"last_updated_at"`
}

// SimplePrice returns the current USD quote for one asset id. The response
// carries no intraday range, so high/low/open/previousClose collapse to the
// price; 24h change is converted into an absolute delta.
func (c *Client) SimplePrice(ctx context.Context, id string) (quote.Quote, error) {
	if err := c.tb.Wait(ctx); err != nil {
		return quote.Quote{}, err
	}
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true&include_24hr_vol=true&include_last_updated_at=true",
		c.cfg.BaseURL, url.QueryEscape(id))
	var r map[string]simplePrice
	if err := c.client.GetJSON(ctx, u, c.headers(), &r); err != nil {
		return quote.Quote{}, err
	}
	coin, ok := r[id]
	if !ok || coin.USD <= 0 {
		return quote.Quote{}, fmt.Errorf("%w: id %q", provider.ErrNoData, id)
	}
	var ts int64
	if coin.LastUpdatedAt > 0 {
		ts = coin.LastUpdatedAt * 1000
	}
	return quote.Quote{
		Symbol:        id,
		Price:         coin.USD,
		Change:        coin.USD * (coin.USD24hChange / 100),
		ChangePercent: coin.USD24hChange,
		High:          coin.USD,
		Low:           coin.USD,
		Open:          coin.USD,
		PreviousClose: coin.USD,
		Volume:        coin.USD24hVol,
		Timestamp:     ts,
		Source:        c.cfg.Name,
	}, nil
}

// OHLC returns daily-bucketed candles for the given day window.
// Points arrive as [tsMillis, open, high, low, close]; volume is not served
// by this endpoint.
func (c *Client) OHLC(ctx context.Context, id, days string) ([]quote.Candle, error) {
	if err := c.tb.Wait(ctx); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/coins/%s/ohlc?vs_currency=usd&days=%s", c.cfg.BaseURL, url.PathEscape(id), url.QueryEscape(days))
	var points [][]float64
	if err := c.client.GetJSON(ctx, u, c.headers(), &points); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: ohlc for %q", provider.ErrNoData, id)
	}
	out := make([]quote.Candle, 0, len(points))
	for _, p := range points {
		if len(p) < 5 {
			continue
		}
		out = append(out, quote.Candle{
			Time:  time.UnixMilli(int64(p[0])).UTC().Format("2006-01-02"),
			Open:  p[1],
			High:  p[2],
			Low:   p[3],
			Close: p[4],
		})
	}
	return out, nil
}

type marketChart struct {
	Prices [][]float64 `json:"prices"`
}

// MarketChart is the line-data fallback when OHLC is unavailable: each price
// point becomes a flat candle.
func (c *Client) MarketChart(ctx context.Context, id, days string) ([]quote.Candle, error) {
	if err := c.tb.Wait(ctx); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%s", c.cfg.BaseURL, url.PathEscape(id), url.QueryEscape(days))
	var r marketChart
	if err := c.client.GetJSON(ctx, u, c.headers(), &r); err != nil {
		return nil, err
	}
	if len(r.Prices) == 0 {
		return nil, fmt.Errorf("%w: market chart for %q", provider.ErrNoData, id)
	}
	out := make([]quote.Candle, 0, len(r.Prices))
	for _, p := range r.Prices {
		if len(p) < 2 {
			continue
		}
		price := p[1]
		out = append(out, quote.Candle{
			Time:  time.UnixMilli(int64(p[0])).UTC().Format("2006-01-02"),
			Open:  price,
			High:  price,
			Low:   price,
			Close: price,
		})
	}
	return out, nil
}

// validDays are the windows the OHLC endpoint accepts.
var validDays = []int{1, 7, 14, 30, 90, 180, 365}

// Days buckets an arbitrary time range into the smallest window covering it.
func Days(from, to time.Time) string {
	diff := int(math.Ceil(to.Sub(from).Hours() / 24))
	for _, d := range validDays {
		if d >= diff {
			return fmt.Sprintf("%d", d)
		}
	}
	return "max"
}
