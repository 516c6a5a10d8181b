package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/models"
	"github.com/desertthunder/vinyl/internal/services"
	"github.com/desertthunder/vinyl/internal/session"
	"github.com/desertthunder/vinyl/internal/shared"
)

// Page size bounds per endpoint.
const (
	likedLimit          = 50
	likedMax            = 50
	playlistsLimit      = 50
	playlistsMax        = 50
	playlistTracksLimit = 100
	playlistTracksMax   = 100
	searchLimit         = 20
	searchMax           = 50
)

const (
	defaultVolume = 50
	maxBodyBytes  = 1 << 20
)

// SpotifyHandler proxies the Web API for the caller's session and reshapes track listings into songs.
type SpotifyHandler struct {
	spotify  services.Spotify
	tokens   TokenSource
	sessions *session.Manager
	cache    *services.SearchCache
	logger   *log.Logger
}

// NewSpotifyHandler creates a SpotifyHandler. A nil cache gets the default size & ttl.
func NewSpotifyHandler(spotify services.Spotify, tokens TokenSource, sessions *session.Manager, cache *services.SearchCache, logger *log.Logger) *SpotifyHandler {
	if cache == nil {
		cache = services.NewSearchCache(services.DefaultSearchTTL, services.DefaultSearchCapacity)
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &SpotifyHandler{spotify: spotify, tokens: tokens, sessions: sessions, cache: cache, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *SpotifyHandler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/api/songs", http.HandlerFunc(h.Songs)},
		{http.MethodGet, "/api/spotify/me", h.passthrough("/me")},
		{http.MethodGet, "/api/spotify/devices", h.passthrough("/me/player/devices")},
		{http.MethodGet, "/api/spotify/token", http.HandlerFunc(h.Token)},
		{http.MethodGet, "/api/spotify/me/tracks", http.HandlerFunc(h.LikedTracks)},
		{http.MethodGet, "/api/spotify/playlists", http.HandlerFunc(h.Playlists)},
		{http.MethodGet, "/api/spotify/playlists/{id}/tracks", http.HandlerFunc(h.PlaylistTracks)},
		{http.MethodGet, "/api/spotify/playlists/{id}/songs", http.HandlerFunc(h.PlaylistSongs)},
		{http.MethodGet, "/api/spotify/current", http.HandlerFunc(h.Current)},
		{http.MethodGet, "/api/spotify/search", http.HandlerFunc(h.Search)},
		{http.MethodGet, "/api/spotify/audio-features", http.HandlerFunc(h.AudioFeatures)},
		{http.MethodPut, "/api/spotify/transfer", http.HandlerFunc(h.Transfer)},
		{http.MethodPut, "/api/spotify/play", http.HandlerFunc(h.Play)},
		{http.MethodPut, "/api/spotify/pause", http.HandlerFunc(h.Pause)},
		{http.MethodPut, "/api/spotify/volume", http.HandlerFunc(h.Volume)},
	}
}

func (h *SpotifyHandler) accessToken(r *http.Request) (string, error) {
	return h.tokens.AccessToken(r.Context(), h.sessions.ID(r))
}

// fail writes err; server side failures are logged.
func (h *SpotifyHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.logger, err)
}

// passthrough relays GET path with the upstream status & body.
func (h *SpotifyHandler) passthrough(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := h.accessToken(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp, err := h.spotify.Get(r.Context(), token, path, nil)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeUpstream(w, resp)
	}
}

// Songs returns the caller's liked tracks as songs, or the sample songs when the caller is not
// signed in or Spotify does not answer.
func (h *SpotifyHandler) Songs(w http.ResponseWriter, r *http.Request) {
	if songs, ok := h.likedSongs(r); ok {
		writeJSON(w, http.StatusOK, songs)
		return
	}
	writeJSON(w, http.StatusOK, models.SampleSongs())
}

func (h *SpotifyHandler) likedSongs(r *http.Request) ([]models.Song, bool) {
	token, err := h.accessToken(r)
	if err != nil {
		if !errors.Is(err, shared.ErrAuthRequired) {
			h.logger.Warn("failed to resolve access token", "error", err)
		}
		return nil, false
	}

	params := url.Values{"limit": {strconv.Itoa(likedLimit)}}
	resp, err := h.spotify.Get(r.Context(), token, "/me/tracks", params)
	if err != nil {
		h.logger.Warn("failed to fetch liked tracks", "error", err)
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var page services.SpotifyPage
	if err := resp.Decode(&page); err != nil {
		h.logger.Warn("failed to decode liked tracks", "error", err)
		return nil, false
	}
	return services.MapTracks(page.Items), true
}

// Token hands the session's access token to the browser for the Web Playback SDK.
func (h *SpotifyHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// LikedTracks relays the raw saved tracks page. A non-200 answer becomes an error with its status.
func (h *SpotifyHandler) LikedTracks(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := parseLimit(r, likedLimit, likedMax)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.spotify.Get(r.Context(), token, "/me/tracks", url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		h.fail(w, r, &services.UpstreamStatusError{StatusCode: resp.StatusCode, Detail: string(resp.Body)})
		return
	}
	writeRaw(w, http.StatusOK, resp.Body)
}

func (h *SpotifyHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	h.getPage(w, r, "/me/playlists", playlistsLimit, playlistsMax)
}

func (h *SpotifyHandler) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	h.getPage(w, r, playlistTracksPath(r), playlistTracksLimit, playlistTracksMax)
}

func (h *SpotifyHandler) getPage(w http.ResponseWriter, r *http.Request, path string, def, upper int) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := parseLimit(r, def, upper)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp, err := h.spotify.Get(r.Context(), token, path, url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeUpstream(w, resp)
}

// PlaylistSongs maps a playlist's tracks into songs. Non-200 answers are relayed as is.
func (h *SpotifyHandler) PlaylistSongs(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := parseLimit(r, playlistTracksLimit, playlistTracksMax)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.spotify.Get(r.Context(), token, playlistTracksPath(r), url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		writeUpstream(w, resp)
		return
	}

	var page services.SpotifyPage
	if err := resp.Decode(&page); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.MapTracks(page.Items))
}

// Current reports what is playing. Nothing playing and free accounts both answer 200.
func (h *SpotifyHandler) Current(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.spotify.Get(r.Context(), token, "/me/player/currently-playing", nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	switch resp.StatusCode {
	case http.StatusNoContent:
		writeJSON(w, http.StatusOK, models.NowPlaying{})
		return
	case http.StatusForbidden:
		writeJSON(w, http.StatusOK, models.NowPlaying{Error: "premium_required"})
		return
	case http.StatusOK:
	default:
		h.fail(w, r, &services.UpstreamStatusError{StatusCode: resp.StatusCode, Detail: string(resp.Body)})
		return
	}

	var body services.SpotifyCurrentlyPlaying
	if err := resp.Decode(&body); err != nil {
		h.fail(w, r, err)
		return
	}

	np := models.NowPlaying{IsPlaying: body.IsPlaying}
	if body.ProgressMS != nil {
		np.ProgressMS = int(*body.ProgressMS)
	}
	if !emptyObject(body.Item) {
		song := services.MapTrack(body.Item, 0)
		np.Track = &song
		np.DurationMS = services.DurationMS(body.Item)
	}
	writeJSON(w, http.StatusOK, np)
}

// Search finds tracks and answers mapped songs, served from the cache while fresh.
func (h *SpotifyHandler) Search(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, []models.Song{})
		return
	}
	limit, err := parseLimit(r, searchLimit, searchMax)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	key := services.SearchKey(query, limit)
	if songs, ok := h.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, songs)
		return
	}

	params := url.Values{"q": {query}, "type": {"track"}, "limit": {strconv.Itoa(limit)}}
	resp, err := h.spotify.Get(r.Context(), token, "/search", params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		writeUpstream(w, resp)
		return
	}

	var body services.SpotifySearch
	if err := resp.Decode(&body); err != nil {
		h.fail(w, r, err)
		return
	}
	var items []json.RawMessage
	if body.Tracks != nil {
		items = body.Tracks.Items
	}

	songs := services.MapTracks(items)
	h.cache.Set(key, songs)
	writeJSON(w, http.StatusOK, songs)
}

// AudioFeatures relays the audio features of a track given by track_id, or by the last segment of uri.
func (h *SpotifyHandler) AudioFeatures(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	id := q.Get("track_id")
	if id == "" {
		if uri := q.Get("uri"); uri != "" {
			id = uri[strings.LastIndex(uri, ":")+1:]
		}
	}
	if id == "" {
		h.fail(w, r, fmt.Errorf("%w: track_id or uri required", shared.ErrBadRequest))
		return
	}

	resp, err := h.spotify.Get(r.Context(), token, "/audio-features/"+url.PathEscape(id), nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeUpstream(w, resp)
}

type transferRequest struct {
	DeviceID string          `json:"device_id"`
	Play     json.RawMessage `json:"play"`
}

// Transfer moves playback to device_id.
func (h *SpotifyHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.DeviceID == "" {
		h.fail(w, r, fmt.Errorf("%w: device_id required", shared.ErrBadRequest))
		return
	}

	body := map[string]any{"device_ids": []string{req.DeviceID}, "play": truthy(req.Play)}
	resp, err := h.spotify.Put(r.Context(), token, "/me/player", nil, body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.playbackResult(w, resp, nil, http.StatusOK, http.StatusNoContent)
}

type playRequest struct {
	DeviceID   string          `json:"device_id"`
	URIs       []string        `json:"uris"`
	ContextURI string          `json:"context_uri"`
	Offset     json.RawMessage `json:"offset"`
}

// Play starts or resumes playback. uris win over context_uri; offset is forwarded as given.
func (h *SpotifyHandler) Play(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req playRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	body := map[string]any{}
	switch {
	case len(req.URIs) > 0:
		body["uris"] = req.URIs
	case req.ContextURI != "":
		body["context_uri"] = req.ContextURI
	}
	if len(req.Offset) > 0 && string(req.Offset) != "null" {
		body["offset"] = req.Offset
	}

	resp, err := h.spotify.Put(r.Context(), token, "/me/player/play", deviceParams(req.DeviceID), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.playbackResult(w, resp, nil, http.StatusNoContent)
}

type pauseRequest struct {
	DeviceID string `json:"device_id"`
}

func (h *SpotifyHandler) Pause(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req pauseRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.spotify.Put(r.Context(), token, "/me/player/pause", deviceParams(req.DeviceID), nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.playbackResult(w, resp, nil, http.StatusNoContent)
}

type volumeRequest struct {
	DeviceID      string          `json:"device_id"`
	VolumePercent json.RawMessage `json:"volume_percent"`
}

// Volume sets the device volume, clamped to 0..100. Unparsable values mean 50.
func (h *SpotifyHandler) Volume(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req volumeRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	volume := ClampVolume(ParseVolume(req.VolumePercent))
	params := deviceParams(req.DeviceID)
	params.Set("volume_percent", strconv.Itoa(volume))

	resp, err := h.spotify.Put(r.Context(), token, "/me/player/volume", params, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.playbackResult(w, resp, map[string]any{"status": "ok", "volume_percent": volume}, http.StatusOK, http.StatusNoContent)
}

// playbackResult collapses the accepted statuses into {"status": "ok"} (or ok when given) and relays
// anything else.
func (h *SpotifyHandler) playbackResult(w http.ResponseWriter, resp *services.APIResponse, ok any, accepted ...int) {
	for _, code := range accepted {
		if resp.StatusCode == code {
			if ok == nil {
				ok = map[string]string{"status": "ok"}
			}
			writeJSON(w, http.StatusOK, ok)
			return
		}
	}
	writeUpstream(w, resp)
}

func playlistTracksPath(r *http.Request) string {
	return "/playlists/" + url.PathEscape(r.PathValue("id")) + "/tracks"
}

func deviceParams(deviceID string) url.Values {
	params := url.Values{}
	if deviceID != "" {
		params.Set("device_id", deviceID)
	}
	return params
}

// parseLimit reads the limit query parameter, clamped to [1, upper].
func parseLimit(r *http.Request, def, upper int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", shared.ErrBadRequest)
	}
	return min(max(n, 1), upper), nil
}

// decodeBody reads a JSON object from r. An empty body decodes as {}.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read body", shared.ErrBadRequest)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", shared.ErrBadRequest)
	}
	return nil
}

// ParseVolume reads volume_percent leniently: numbers are clamped then truncated, numeric strings parsed,
// booleans count as 0 or 1 and anything else yields the default of 50.
func ParseVolume(raw json.RawMessage) int {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return defaultVolume
	}
	switch x := v.(type) {
	case float64:
		return int(min(max(x, 0), 100))
	case string:
		// Out-of-range integers come back saturated with ErrRange.
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil || errors.Is(err, strconv.ErrRange) {
			return n
		}
	case bool:
		if x {
			return 1
		}
		return 0
	}
	return defaultVolume
}

// truthy reads a JSON value leniently: false, null, 0, "" and empty arrays or objects are false.
func truthy(raw json.RawMessage) bool {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return false
}

// ClampVolume bounds v to 0..100.
func ClampVolume(v int) int {
	return min(max(v, 0), 100)
}

// emptyObject reports whether a raw item is absent, null or {}.
func emptyObject(raw json.RawMessage) bool {
	var m map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return true
	}
	return len(m) == 0
}
