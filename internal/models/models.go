// package models defines the data model for the vinyl backend-for-frontend
package models

import (
	"math"
	"time"
)

// Session is the server-side record addressed by the session_id cookie.
//
// The JSON layout is what the durable stores persist.
type Session struct {
	OAuthState string       `json:"spotify_oauth_state,omitempty"` // pending anti-CSRF state of a login in flight
	Tokens     *TokenRecord `json:"spotify_tokens,omitempty"`      // nil until the authorization code is exchanged
}

// Authenticated reports whether the session holds a token record.
func (s *Session) Authenticated() bool {
	return s != nil && s.Tokens != nil
}

// TokenRecord holds the Spotify credentials of one session.
type TokenRecord struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	ExpiresAt    float64 `json:"expires_at"` // epoch seconds, already shortened by [ExpirySkew]
}

// ExpirySkew is subtracted from the provider's reported lifetime so stored expiries are early.
const ExpirySkew = 60 * time.Second

// NewTokenRecord builds a record issued at now that the provider reported valid for lifetime.
func NewTokenRecord(access, refresh string, lifetime time.Duration, now time.Time) *TokenRecord {
	expires := now.Add(lifetime - ExpirySkew)
	return &TokenRecord{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    float64(expires.Unix()) + float64(expires.Nanosecond())/float64(time.Second),
	}
}

// Expiry returns ExpiresAt as a [time.Time].
func (t *TokenRecord) Expiry() time.Time {
	sec, frac := math.Modf(t.ExpiresAt)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// Song is the track shape consumed by the web client.
type Song struct {
	ID         int     `json:"id"` // 1-based position within the response, not a stable identifier
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	AlbumArt   string  `json:"albumArt"`
	Duration   int     `json:"duration"` // whole seconds
	AudioURL   *string `json:"audioUrl"` // 30s preview, null when the provider has none
	SpotifyURI string  `json:"spotifyUri,omitempty"`
}

// UnknownSong is the placeholder emitted at position idx when a track is missing.
func UnknownSong(idx int) Song {
	return Song{ID: idx + 1, Title: "Unknown", Artist: "Unknown"}
}

// NowPlaying describes the user's current playback.
type NowPlaying struct {
	IsPlaying  bool   `json:"isPlaying"`
	ProgressMS int    `json:"progressMs"`
	DurationMS int    `json:"durationMs"`
	Track      *Song  `json:"track"`
	Error      string `json:"error,omitempty"`
}

// SampleSongs is served to visitors who have not connected Spotify yet.
func SampleSongs() []Song {
	return []Song{
		{
			ID:       1,
			Title:    "Midnight City",
			Artist:   "M83",
			Album:    "Hurry Up, We're Dreaming",
			AlbumArt: "https://i.scdn.co/image/ab67616d0000b2733b3a8e6e1eb4d32ce2fa2041",
			Duration: 251,
		},
		{
			ID:       2,
			Title:    "Dreams",
			Artist:   "Fleetwood Mac",
			Album:    "Rumours",
			AlbumArt: "https://i.scdn.co/image/ab67616d0000b2730c0f2a0053ca2e85b2e1fa89",
			Duration: 257,
		},
		{
			ID:       3,
			Title:    "Space Song",
			Artist:   "Beach House",
			Album:    "Depression Cherry",
			AlbumArt: "https://i.scdn.co/image/ab67616d0000b273928c2623e6ca0558e7085ad7",
			Duration: 323,
		},
	}
}
