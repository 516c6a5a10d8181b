// Package services talks to the Spotify Web API on behalf of a session and reshapes what it returns.
//
// # Upstream Client
//
// [SpotifyClient] implements [Spotify] over one pooled [http.Client] created at startup. Each call
// attaches the session's access token as a bearer credential, makes a single attempt and hands back
// the raw [APIResponse]. Idle connections are released with [SpotifyClient.Close] at shutdown.
//
// # Mapping
//
// [MapTrack] turns a track object into a [models.Song]. Saved-track and playlist endpoints wrap the
// track in an item whose "track" field holds it; search and playback return it bare. Both shapes map
// to the same song, and a null or empty track maps to a placeholder so positions stay stable.
//
// # Search Cache
//
// [SearchCache] keeps mapped search results keyed by "query:limit" for a short ttl. It is bounded and
// evicts the least recently used entry.
//
// # Images
//
// [ImageProxy] fetches album art from the Spotify CDN only. [ValidateImageURL] enforces the allow-list.
package services
