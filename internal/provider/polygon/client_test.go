package polygon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	polygon "quotefeed/internal/provider/polygon"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	// Assert: a valid key should return an enabled client.
	client, err := polygon.NewClient("test")
	require.NoError(t, err)
	require.NotNil(t, client)
	require.True(t, client.Enabled())

	// Assert: an empty key yields a disabled client, not an error.
	client, err = polygon.NewClient("")
	require.NoError(t, err)
	require.False(t, client.Enabled())
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock http client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: the mock client receives the call and the key rides the query.
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "test-key", req.URL.Query().Get("apiKey"))

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(map[string]any{}))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	// Arrange: create a new client with the mock HTTP client.
	client, err := polygon.NewClient("test-key", polygon.WithHTTPClient(httpClient))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act: any call routes through the injected client.
	client.Snapshot(context.Background(), "AAPL")
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock http client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	baseURL := "http://localhost:8080"

	// Assert: requests hit the overridden base URL.
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(map[string]any{}))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	client, err := polygon.NewClient("test", polygon.WithHTTPClient(httpClient), polygon.WithBaseURL(baseURL))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act
	client.Snapshot(context.Background(), "AAPL")
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock http client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: the configured header is sent with each request.
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "bar", req.Header.Get("foo"))

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(map[string]any{}))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	client, err := polygon.NewClient("test", polygon.WithHTTPClient(httpClient), polygon.WithHeader(http.Header{
		"foo": []string{"bar"},
	}))
	require.NoError(t, err)
	require.NotNil(t, client)

	// Act
	client.Snapshot(context.Background(), "AAPL")
}
