package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	tu "github.com/desertthunder/vinyl/internal/testing"
)

func TestSpotifyClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			c := NewSpotifyClient("http://example.com", customClient)

			if c.baseURL != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", c.baseURL)
			}
			if c.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Defaults", func(t *testing.T) {
			c := NewSpotifyClient("", nil)

			if c.baseURL != SpotifyBaseURL {
				t.Errorf("expected baseURL %s, got %s", SpotifyBaseURL, c.baseURL)
			}
			if c.httpClient.Timeout != APITimeout {
				t.Errorf("expected %v timeout, got %v", APITimeout, c.httpClient.Timeout)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Attaches Bearer Token And Params", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/me/tracks" {
					t.Errorf("expected path '/me/tracks', got %s", r.URL.Path)
				}
				if r.URL.Query().Get("limit") != "50" {
					t.Errorf("expected limit=50, got %s", r.URL.RawQuery)
				}
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("expected bearer token, got %s", r.Header.Get("Authorization"))
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
			}))
			defer server.Close()

			c := NewSpotifyClient(server.URL, nil)
			resp, err := c.Get(context.Background(), "tok", "/me/tracks", url.Values{"limit": {"50"}})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() || !resp.IsJSON() {
				t.Errorf("expected ok json response, got %d %s", resp.StatusCode, resp.Body)
			}
		})

		t.Run("Returns Upstream Errors As Responses", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("slow down"))
			}))
			defer server.Close()

			c := NewSpotifyClient(server.URL, nil)
			resp, err := c.Get(context.Background(), "tok", "/search", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusTooManyRequests || resp.OK() {
				t.Errorf("expected 429, got %d", resp.StatusCode)
			}
			if resp.IsJSON() {
				t.Error("expected plain text body")
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			c := NewSpotifyClient("http://example.com", nil)
			_, err := c.Get(context.Background(), "tok", "/test\x00invalid", nil)

			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			c := NewSpotifyClient("http://example.com", client)
			_, err := c.Get(context.Background(), "tok", "/test", nil)

			if err == nil || !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			c := NewSpotifyClient("http://example.com", client)
			_, err := c.Get(context.Background(), "tok", "/test", nil)

			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			c := NewSpotifyClient(server.URL, nil)
			if _, err := c.Get(ctx, "tok", "/test", nil); err == nil {
				t.Error("expected error for canceled context")
			}
		})

		t.Run("Response Headers Are Preserved", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "3")
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			c := NewSpotifyClient(server.URL, nil)
			resp, err := c.Get(context.Background(), "tok", "/test", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Headers.Get("Retry-After") != "3" {
				t.Errorf("expected Retry-After header, got %s", resp.Headers.Get("Retry-After"))
			}
		})
	})

	t.Run("Put", func(t *testing.T) {
		t.Run("Encodes JSON Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut {
					t.Errorf("expected PUT method, got %s", r.Method)
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected json content type, got %s", r.Header.Get("Content-Type"))
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"device_ids":["d1"],"play":true}` {
					t.Errorf("unexpected body %s", body)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			c := NewSpotifyClient(server.URL, nil)
			resp, err := c.Put(context.Background(), "tok", "/me/player", nil, map[string]any{"device_ids": []string{"d1"}, "play": true})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusNoContent {
				t.Errorf("expected 204, got %d", resp.StatusCode)
			}
		})

		t.Run("Nil Body Is Empty Object", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				if string(body) != "{}" {
					t.Errorf("expected {}, got %s", body)
				}
				if r.URL.Query().Get("volume_percent") != "40" {
					t.Errorf("expected volume_percent param, got %s", r.URL.RawQuery)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			c := NewSpotifyClient(server.URL, nil)
			if _, err := c.Put(context.Background(), "tok", "/me/player/volume", url.Values{"volume_percent": {"40"}}, nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("Post", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST method, got %s", r.Method)
			}
			if r.URL.Path != "/me/player/next" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := NewSpotifyClient(server.URL, nil)
		resp, err := c.Post(context.Background(), "tok", "/me/player/next", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !resp.OK() {
			t.Errorf("expected success, got %d", resp.StatusCode)
		}
		c.Close()
	})

	t.Run("APIResponse Decode", func(t *testing.T) {
		resp := &APIResponse{StatusCode: 200, Body: []byte(`{"tracks":{"items":[{"name":"x"}]}}`)}
		var s SpotifySearch
		if err := resp.Decode(&s); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Tracks == nil || len(s.Tracks.Items) != 1 {
			t.Errorf("expected one item, got %+v", s.Tracks)
		}

		bad := &APIResponse{Body: []byte("not json")}
		if err := bad.Decode(&s); err == nil {
			t.Error("expected decode error")
		}
	})
}
