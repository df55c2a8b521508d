package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"time"

	"quotefeed/internal/provider"
	"quotefeed/internal/quote"
)

// snapshotResponse is the /v2/snapshot wire shape, reduced to the fields the
// canonical quote needs.
type snapshotResponse struct {
	Ticker struct {
		Day struct {
			C float64 `json:"c"`
			H float64 `json:"h"`
			L float64 `json:"l"`
			O float64 `json:"o"`
			V float64 `json:"v"`
		} `json:"day"`
		LastTrade struct {
			P float64 `json:"p"`
		} `json:"lastTrade"`
		PrevDay struct {
			C float64 `json:"c"`
		} `json:"prevDay"`
		TodaysChange     float64 `json:"todaysChange"`
		TodaysChangePerc float64 `json:"todaysChangePerc"`
		Updated          int64   `json:"updated"`
	} `json:"ticker"`
}

type aggregatesResponse struct {
	Results []struct {
		T int64   `json:"t"`
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	query := maps.Clone(c.query)
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("unauthorized")
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited")
	default:
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Snapshot retrieves the current day snapshot for one stock ticker.
// The day close can lag during market hours, so the last trade price fills
// in when the day bar is still zero.
func (c *Client) Snapshot(ctx context.Context, symbol string) (quote.Quote, error) {
	var r snapshotResponse
	path := "/v2/snapshot/locale/us/markets/stocks/tickers/" + url.PathEscape(symbol)
	if err := c.get(ctx, path, &r); err != nil {
		return quote.Quote{}, err
	}
	t := r.Ticker
	price := t.Day.C
	if price == 0 {
		price = t.LastTrade.P
	}
	if price == 0 {
		return quote.Quote{}, fmt.Errorf("%w: snapshot for %s", provider.ErrNoData, symbol)
	}
	// updated is reported in nanoseconds.
	ts := t.Updated
	if ts > 0 {
		ts /= int64(time.Millisecond)
	}
	return quote.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        t.TodaysChange,
		ChangePercent: t.TodaysChangePerc,
		High:          t.Day.H,
		Low:           t.Day.L,
		Open:          t.Day.O,
		PreviousClose: t.PrevDay.C,
		Volume:        t.Day.V,
		Timestamp:     ts,
		Source:        c.Name(),
	}, nil
}

// Aggregates retrieves 1-unit bars for a date range. timespan is "day" or
// "week" per the upstream contract.
func (c *Client) Aggregates(ctx context.Context, symbol, timespan string, from, to time.Time) ([]quote.Candle, error) {
	var r aggregatesResponse
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/%s/%s/%s",
		url.PathEscape(symbol), url.PathEscape(timespan),
		from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err := c.get(ctx, path, &r); err != nil {
		return nil, err
	}
	if len(r.Results) == 0 {
		return nil, fmt.Errorf("%w: aggregates for %s", provider.ErrNoData, symbol)
	}
	out := make([]quote.Candle, 0, len(r.Results))
	for _, bar := range r.Results {
		out = append(out, quote.Candle{
			Time:   time.UnixMilli(bar.T).UTC().Format("2006-01-02"),
			Open:   bar.O,
			High:   bar.H,
			Low:    bar.L,
			Close:  bar.C,
			Volume: bar.V,
		})
	}
	return out, nil
}
