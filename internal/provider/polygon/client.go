package polygon

import (
	"net/http"
	"net/url"
)

const baseURL = "https://api.polygon.io"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=polygon_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Polygon.io REST API, the secondary snapshot
// source for stock quotes and candles.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
	// enabled records whether an API key was configured.
	enabled bool
}

// Option is a configuration option for the Polygon API client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new Polygon API client. An empty key produces a
// disabled client that the aggregator skips in its cascade.
func NewClient(key string, options ...Option) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
		enabled:    key != "",
	}
	if key != "" {
		client.query.Add("apiKey", key)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

func (c *Client) Name() string { return "polygon" }

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool { return c.enabled }
