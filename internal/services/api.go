// Raw HTTP requests against the Spotify Web API

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/vinyl/internal/shared"
)

const (
	SpotifyBaseURL = "https://api.spotify.com/v1"

	// APITimeout bounds every Web API and image request.
	APITimeout = 10 * time.Second
)

// NewHTTPClient creates the pooled client shared by all upstream calls.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 32
	transport.IdleConnTimeout = 90 * time.Second
	return &http.Client{Timeout: APITimeout, Transport: transport}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsJSON reports whether the body parses as JSON.
func (r *APIResponse) IsJSON() bool {
	return len(r.Body) > 0 && json.Valid(r.Body)
}

// Decode unmarshals the body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SpotifyClient sends bearer-authenticated requests to the Web API. It makes a single attempt per
// call and returns whatever status the API answered with.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Spotify = (*SpotifyClient)(nil)

// NewSpotifyClient creates a client for baseURL, defaulting to [SpotifyBaseURL] and [NewHTTPClient].
func NewSpotifyClient(baseURL string, client *http.Client) *SpotifyClient {
	if baseURL == "" {
		baseURL = SpotifyBaseURL
	}
	if client == nil {
		client = NewHTTPClient()
	}
	return &SpotifyClient{baseURL: baseURL, httpClient: client}
}

// Get performs a GET request to path with query params.
func (c *SpotifyClient) Get(ctx context.Context, token, path string, params url.Values) (*APIResponse, error) {
	return c.do(ctx, http.MethodGet, token, path, params, nil)
}

// Put performs a PUT request with body encoded as JSON. A nil body is sent as {}.
func (c *SpotifyClient) Put(ctx context.Context, token, path string, params url.Values, body any) (*APIResponse, error) {
	if body == nil {
		body = struct{}{}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPut, token, path, params, data)
}

// Post performs a POST request without a body.
func (c *SpotifyClient) Post(ctx context.Context, token, path string, params url.Values) (*APIResponse, error) {
	return c.do(ctx, http.MethodPost, token, path, params, nil)
}

// Close releases idle pooled connections.
func (c *SpotifyClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *SpotifyClient) do(ctx context.Context, method, token, path string, params url.Values, body []byte) (*APIResponse, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrUpstream, err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}, nil
}
