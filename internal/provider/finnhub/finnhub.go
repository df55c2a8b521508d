// Package finnhub is the primary quote and candle source. It also serves
// exchange-routed symbols (BINANCE:..., OANDA:...) for the crypto and
// commodity fallback paths.
package finnhub

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"quotefeed/internal/httpx"
	"quotefeed/internal/provider"
	"quotefeed/internal/quote"
)

type Config struct {
	Name    string
	BaseURL string
	APIKey  string
}

type Client struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Client {
	if cfg.Name == "" {
		cfg.Name = "finnhub"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io/api/v1"
	}
	return &Client{cfg: cfg, client: hc}
}

func (c *Client) Name() string { return c.cfg.Name }

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool { return c.cfg.APIKey != "" }

// quoteResponse is the /quote wire shape. A zero c (current price) is the
// upstream's "unknown symbol" sentinel; the caller's validation rejects it.
type quoteResponse struct {
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	DP float64 `json:"dp"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"`
	T  int64   `json:"t"`
}

type candleResponse struct {
	S string    `json:"s"`
	T []int64   `json:"t"`
	O []float64 `json:"o"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	C []float64 `json:"c"`
	V []float64 `json:"v"`
}

func (c *Client) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s", c.cfg.BaseURL, url.QueryEscape(symbol), url.QueryEscape(c.cfg.APIKey))
	var r quoteResponse
	if err := c.client.GetJSON(ctx, u, nil, &r); err != nil {
		return quote.Quote{}, err
	}
	var ts int64
	if r.T > 0 {
		ts = r.T * 1000
	}
	return quote.Quote{
		Symbol:        symbol,
		Price:         r.C,
		Change:        r.D,
		ChangePercent: r.DP,
		High:          r.H,
		Low:           r.L,
		Open:          r.O,
		PreviousClose: r.PC,
		Timestamp:     ts,
		Source:        c.cfg.Name,
	}, nil
}

func (c *Client) Candles(ctx context.Context, symbol, resolution string, from, to time.Time) ([]quote.Candle, error) {
	u := fmt.Sprintf("%s/stock/candle?symbol=%s&resolution=%s&from=%d&to=%d&token=%s",
		c.cfg.BaseURL, url.QueryEscape(symbol), url.QueryEscape(resolution), from.Unix(), to.Unix(), url.QueryEscape(c.cfg.APIKey))
	var r candleResponse
	if err := c.client.GetJSON(ctx, u, nil, &r); err != nil {
		return nil, err
	}
	if r.S != "ok" || len(r.T) == 0 {
		return nil, fmt.Errorf("%w: status %q for %s", provider.ErrNoData, r.S, symbol)
	}
	// The value arrays are parallel to t; a ragged payload is malformed,
	// not indexable.
	n := len(r.T)
	if len(r.O) != n || len(r.H) != n || len(r.L) != n || len(r.C) != n || len(r.V) != n {
		return nil, fmt.Errorf("%w: ragged candle arrays for %s (t=%d o=%d h=%d l=%d c=%d v=%d)",
			provider.ErrNoData, symbol, n, len(r.O), len(r.H), len(r.L), len(r.C), len(r.V))
	}
	out := make([]quote.Candle, 0, len(r.T))
	for i, ts := range r.T {
		out = append(out, quote.Candle{
			Time:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   r.O[i],
			High:   r.H[i],
			Low:    r.L[i],
			Close:  r.C[i],
			Volume: r.V[i],
		})
	}
	return out, nil
}
