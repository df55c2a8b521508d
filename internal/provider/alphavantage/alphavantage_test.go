package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quotefeed/internal/httpx"
	"quotefeed/internal/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL}, httpx.New(2*time.Second))
}

func TestGetOverview(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "OVERVIEW" {
			t.Errorf("function = %q", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Errorf("apikey = %q", got)
		}
		w.Write([]byte(`{"Symbol":"AAPL","Name":"Apple Inc","MarketCapitalization":"2950000000000"}`))
	})

	ov, err := c.GetOverview(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.Symbol != "AAPL" || ov.Name != "Apple Inc" {
		t.Fatalf("overview: %+v", ov)
	}
	if ov.MarketCap != 2950000000000 {
		t.Fatalf("market cap = %v", ov.MarketCap)
	}
}

func TestGetOverview_EmptyBody(t *testing.T) {
	// rate-limit notes and unknown symbols both come back as 200 with no
	// Symbol field
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage!"}`))
	})
	if _, err := c.GetOverview(context.Background(), "ZZZZ"); !errors.Is(err, provider.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestGetDaily(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_DAILY" {
			t.Errorf("function = %q", got)
		}
		if got := r.URL.Query().Get("outputsize"); got != "compact" {
			t.Errorf("outputsize = %q", got)
		}
		// upstream order is newest first
		w.Write([]byte(`{
			"Meta Data": {"2. Symbol": "AAPL"},
			"Time Series (Daily)": {
				"2024-01-03": {"1. open":"184.2","2. high":"185.9","3. low":"183.4","4. close":"184.3","5. volume":"58414500"},
				"2024-01-02": {"1. open":"187.0","2. high":"188.4","3. low":"183.9","4. close":"185.6","5. volume":"82488700"}
			}
		}`))
	})

	cs, err := c.GetDaily(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("len = %d", len(cs))
	}
	// returned oldest first
	if cs[0].Time != "2024-01-02" || cs[1].Time != "2024-01-03" {
		t.Fatalf("order: %q, %q", cs[0].Time, cs[1].Time)
	}
	if cs[0].Open != 187.0 || cs[0].Volume != 82488700 {
		t.Fatalf("first candle: %+v", cs[0])
	}
	if cs[1].Close != 184.3 {
		t.Fatalf("second candle: %+v", cs[1])
	}
}

func TestGetDaily_MissingSeries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message":"Invalid API call."}`))
	})
	if _, err := c.GetDaily(context.Background(), "ZZZZ"); !errors.Is(err, provider.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestEnabled(t *testing.T) {
	if New(Config{}, nil).Enabled() {
		t.Fatal("keyless client should be disabled")
	}
}
