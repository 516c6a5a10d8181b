package services

import (
	"context"
	"net/url"
)

// Spotify is the upstream Web API as the HTTP handlers use it.
//
// Every call attaches token as a bearer credential and returns the raw status and body.
type Spotify interface {
	Get(ctx context.Context, token, path string, params url.Values) (*APIResponse, error)
	Put(ctx context.Context, token, path string, params url.Values, body any) (*APIResponse, error)
	Post(ctx context.Context, token, path string, params url.Values) (*APIResponse, error)
}
