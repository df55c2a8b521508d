// Package alphavantage is the tertiary stock source. It has no real-time
// quote endpoint on the free tier; the aggregator synthesizes a quote from
// the company overview plus the two most recent daily closes. Responses key
// the time series by date strings ("2024-01-05": {"1. open": ...}), which is
// why parsing goes through gjson rather than static structs.
package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"quotefeed/internal/httpx"
	"quotefeed/internal/provider"
	"quotefeed/internal/quote"
	"quotefeed/internal/ratelimit"
)

// maxDailyCandles caps the series returned by Daily; the compact output size
// upstream serves is 100 entries anyway.
const maxDailyCandles = 100

type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	// RequestsPerMinute gates calls; the free tier allows 5. <= 0 disables.
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
		cfg.Name = "alpha-vantage"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.alphavantage.co"
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
func (c *Client) Enabled() bool { return c.cfg.APIKey != "" }

// Overview is the company metadata used for quote synthesis. MarketCap rides
// in the canonical quote's volume field, which is the only population-style
// number this source offers.
type Overview struct {
	Symbol    string
	Name      string
	MarketCap float64
}

func (c *Client) query(fn, symbol string) string {
	return fmt.Sprintf("%s/query?function=%s&symbol=%s&apikey=%s",
		c.cfg.BaseURL, fn, url.QueryEscape(symbol), url.QueryEscape(c.cfg.APIKey))
}

func (c *Client) GetOverview(ctx context.Context, symbol string) (Overview, error) {
	if err := c.tb.Wait(ctx); err != nil {
		return Overview{}, err
	}
	body, err := c.client.GetBody(ctx, c.query("OVERVIEW", symbol), nil)
	if err != nil {
		return Overview{}, err
	}
	root := gjson.ParseBytes(body)
	sym := root.Get("Symbol").String()
	if sym == "" {
		return Overview{}, fmt.Errorf("%w: overview for %s", provider.ErrNoData, symbol)
	}
	cap, _ := strconv.ParseFloat(root.Get("MarketCapitalization").String(), 64)
	return Overview{
		Symbol:    sym,
		Name:      root.Get("Name").String(),
		MarketCap: cap,
	}, nil
}

// GetDaily returns up to 100 daily candles, oldest first. Upstream serves the
// series newest-first under dynamic date keys.
func (c *Client) GetDaily(ctx context.Context, symbol string) ([]quote.Candle, error) {
	if err := c.tb.Wait(ctx); err != nil {
		return nil, err
	}
	u := c.query("TIME_SERIES_DAILY", symbol) + "&outputsize=compact"
	body, err := c.client.GetBody(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	series := gjson.GetBytes(body, "Time Series (Daily)")
	if !series.Exists() {
		return nil, fmt.Errorf("%w: daily series for %s", provider.ErrNoData, symbol)
	}

	var newestFirst []quote.Candle
	series.ForEach(func(date, day gjson.Result) bool {
		newestFirst = append(newestFirst, quote.Candle{
			Time:   date.String(),
			Open:   day.Get(`1\. open`).Float(),
			High:   day.Get(`2\. high`).Float(),
			Low:    day.Get(`3\. low`).Float(),
			Close:  day.Get(`4\. close`).Float(),
			Volume: day.Get(`5\. volume`).Float(),
		})
		return len(newestFirst) < maxDailyCandles
	})
	if len(newestFirst) == 0 {
		return nil, fmt.Errorf("%w: empty daily series for %s", provider.ErrNoData, symbol)
	}

	out := make([]quote.Candle, len(newestFirst))
	for i, cdl := range newestFirst {
		out[len(out)-1-i] = cdl
	}
	return out, nil
}
