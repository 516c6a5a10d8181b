// Package models defines the records shared by the session store, the token lifecycle and the HTTP layer.
//
// The package contains two categories of types:
//
// 1. Session state, persisted by internal/store
//   - [Session] : Pending OAuth state and the Spotify token record of one browser session
//   - [TokenRecord] : Access/refresh token pair with a conservative absolute expiry
//
// 2. Client shapes, produced by internal/services
//   - [Song] : A Spotify track reshaped for the web player
//   - [NowPlaying] : Current playback with the mapped [Song]
//
// Expiries are stored as epoch seconds so the JSON written to Redis or SQLite stays readable by
// any other consumer of the same keys.
package models
