package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/desertthunder/vinyl/internal/models"
)

// MapTrack converts a track object into a [models.Song] at 0-based position idx.
//
// raw may be a bare track or a wrapper whose "track" field holds one, as returned by saved-track and
// playlist endpoints. A null or empty track maps to [models.UnknownSong].
func MapTrack(raw json.RawMessage, idx int) models.Song {
	t, ok := unwrapTrack(raw)
	if !ok {
		return models.UnknownSong(idx)
	}

	song := models.Song{
		ID:         idx + 1,
		Title:      "Unknown",
		Artist:     joinArtists(t.Artists),
		Duration:   int(t.DurationMS) / 1000,
		AudioURL:   t.PreviewURL,
		SpotifyURI: t.URI,
	}
	if t.Name != nil {
		song.Title = *t.Name
	}
	if t.Album != nil {
		song.Album = t.Album.Name
		if len(t.Album.Images) > 0 {
			song.AlbumArt = t.Album.Images[0].URL
		}
	}
	return song
}

// MapTracks maps a batch of items, numbering them from 1.
func MapTracks(items []json.RawMessage) []models.Song {
	songs := make([]models.Song, 0, len(items))
	for i, item := range items {
		songs = append(songs, MapTrack(item, i))
	}
	return songs
}

// unwrapTrack unwraps at most one level. Inside playlist items the track object itself carries
// "track": true, so only an object or null under "track" is treated as a wrapper.
func unwrapTrack(raw json.RawMessage) (*SpotifyTrack, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return nil, false
	}
	if inner, ok := fields["track"]; ok {
		switch v := bytes.TrimSpace(inner); {
		case bytes.Equal(v, []byte("null")):
			return nil, false
		case len(v) > 0 && v[0] == '{':
			var track map[string]json.RawMessage
			if err := json.Unmarshal(v, &track); err != nil || len(track) == 0 {
				return nil, false
			}
			raw = v
		}
	}

	var t SpotifyTrack
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func joinArtists(artists []*SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a == nil || a.Name == "" {
			continue
		}
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, ", ")
}
