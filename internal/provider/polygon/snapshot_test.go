package polygon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"quotefeed/internal/provider"
	polygon "quotefeed/internal/provider/polygon"
)

var mockSnapshot = map[string]any{
	"ticker": map[string]any{
		"day": map[string]any{
			"c": 189.5, "h": 191.2, "l": 188.1, "o": 190.0, "v": 51234567.0,
		},
		"lastTrade":        map[string]any{"p": 189.55},
		"prevDay":          map[string]any{"c": 187.3},
		"todaysChange":     2.2,
		"todaysChangePerc": 1.17,
		"updated":          int64(1717000000000000000),
	},
}

func respondJSON(t *testing.T, v any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(v))
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(buffer),
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	// Arrange: stub the snapshot endpoint
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Contains(t, req.URL.Path, "/v2/snapshot/locale/us/markets/stocks/tickers/AAPL")
			return respondJSON(t, mockSnapshot), nil
		}).
		Times(1)

	client, err := polygon.NewClient("test-key", polygon.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act
	q, err := client.Snapshot(context.Background(), "AAPL")
	require.NoError(t, err)

	// Assert: wire fields land on the canonical quote, nanoseconds become
	// milliseconds.
	require.Equal(t, "AAPL", q.Symbol)
	require.Equal(t, "polygon", q.Source)
	require.InEpsilon(t, 189.5, q.Price, 0.0001)
	require.InEpsilon(t, 2.2, q.Change, 0.0001)
	require.InEpsilon(t, 187.3, q.PreviousClose, 0.0001)
	require.Equal(t, int64(1717000000000), q.Timestamp)
}

func TestSnapshot_LastTradeFallback(t *testing.T) {
	t.Parallel()

	// Arrange: a pre-market snapshot with an empty day bar
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return respondJSON(t, map[string]any{
				"ticker": map[string]any{
					"lastTrade": map[string]any{"p": 42.5},
				},
			}), nil
		}).
		Times(1)

	client, err := polygon.NewClient("test-key", polygon.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act
	q, err := client.Snapshot(context.Background(), "AAPL")
	require.NoError(t, err)

	// Assert: last trade price fills in for the missing day close.
	require.InEpsilon(t, 42.5, q.Price, 0.0001)
}

func TestSnapshot_ErrNoData(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return respondJSON(t, map[string]any{"ticker": map[string]any{}}), nil
		}).
		Times(1)

	client, err := polygon.NewClient("test-key", polygon.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: an empty snapshot is no data, not a zero-price quote.
	_, err = client.Snapshot(context.Background(), "ZZZZ")
	require.Error(t, err)
	require.ErrorIs(t, err, provider.ErrNoData)
}

func TestSnapshot_ErrUnauthorized(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusUnauthorized,
				Body:       io.NopCloser(bytes.NewReader(nil)),
			}, nil
		}).
		Times(1)

	client, err := polygon.NewClient("bad-key", polygon.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act
	_, err = client.Snapshot(context.Background(), "AAPL")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")
}

func TestSnapshot_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}).
		Times(1)

	client, err := polygon.NewClient("test-key", polygon.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act
	_, err = client.Snapshot(context.Background(), "AAPL")
	require.Error(t, err)
}

func TestAggregates(t *testing.T) {
	t.Parallel()

	// Arrange: two daily bars, millisecond timestamps
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "/v2/aggs/ticker/AAPL/range/1/day/2024-01-01/2024-01-31")
			return respondJSON(t, map[string]any{
				"results": []map[string]any{
					{"t": int64(1704153600000), "o": 187.0, "h": 188.4, "l": 183.9, "c": 185.6, "v": 82488700.0},
					{"t": int64(1704240000000), "o": 184.2, "h": 185.9, "l": 183.4, "c": 184.3, "v": 58414500.0},
				},
			}), nil
		}).
		Times(1)

	client, err := polygon.NewClient("test-key", polygon.WithHTTPClient(httpClient))
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	// Act
	cs, err := client.Aggregates(context.Background(), "AAPL", "day", from, to)
	require.NoError(t, err)

	// Assert
	require.Len(t, cs, 2)
	require.Equal(t, "2024-01-02", cs[0].Time)
	require.InEpsilon(t, 185.6, cs[0].Close, 0.0001)
}

func TestAggregates_ErrNoData(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return respondJSON(t, map[string]any{"results": []map[string]any{}}), nil
		}).
		Times(1)

	client, err := polygon.NewClient("test-key", polygon.WithHTTPClient(httpClient))
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	// Act
	_, err = client.Aggregates(context.Background(), "ZZZZ", "day", from, to)
	require.ErrorIs(t, err, provider.ErrNoData)
}
