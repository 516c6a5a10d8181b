// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/

package services

import (
	"encoding/json"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
//
// Name is a pointer so a missing name can be told apart from an empty one.
type SpotifyTrack struct {
	ID         string           `json:"id"`
	Name       *string          `json:"name"`
	Artists    []*SpotifyArtist `json:"artists"`
	Album      *SpotifyAlbum    `json:"album"`
	DurationMS float64          `json:"duration_ms"`
	PreviewURL *string          `json:"preview_url"`
	URI        string           `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyPage is a paging object whose items are kept raw so each can be mapped on its own.
type SpotifyPage struct {
	Items  []json.RawMessage `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// SpotifySearch is the body of GET /search with type=track.
type SpotifySearch struct {
	Tracks *SpotifyPage `json:"tracks"`
}

// SpotifyCurrentlyPlaying is the body of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	IsPlaying  bool            `json:"is_playing"`
	ProgressMS *float64        `json:"progress_ms"`
	Item       json.RawMessage `json:"item"`
}

// DurationMS reads duration_ms from a raw item, or 0.
func DurationMS(item json.RawMessage) int {
	var t struct {
		DurationMS *float64 `json:"duration_ms"`
	}
	if err := json.Unmarshal(item, &t); err != nil || t.DurationMS == nil {
		return 0
	}
	return int(*t.DurationMS)
}
