package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTokenRecord(t *testing.T) {
	t.Run("NewTokenRecord subtracts skew", func(t *testing.T) {
		now := time.Unix(1_700_000_000, 0)
		rec := NewTokenRecord("a", "r", time.Hour, now)

		want := float64(now.Unix() + 3600 - 60)
		if rec.ExpiresAt != want {
			t.Errorf("expected expires_at %v, got %v", want, rec.ExpiresAt)
		}
		if !rec.Expiry().Equal(time.Unix(int64(want), 0)) {
			t.Errorf("expected expiry %v, got %v", time.Unix(int64(want), 0), rec.Expiry())
		}
	})

	t.Run("Session JSON layout", func(t *testing.T) {
		s := Session{OAuthState: "st", Tokens: &TokenRecord{AccessToken: "a", RefreshToken: "r", ExpiresAt: 10}}
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}

		for _, key := range []string{`"spotify_oauth_state":"st"`, `"spotify_tokens"`, `"expires_at":10`} {
			if !strings.Contains(string(data), key) {
				t.Errorf("expected %s in %s", key, data)
			}
		}

		empty, _ := json.Marshal(Session{})
		if string(empty) != "{}" {
			t.Errorf("expected empty session to encode as {}, got %s", empty)
		}
	})

	t.Run("Authenticated", func(t *testing.T) {
		var nilSession *Session
		if nilSession.Authenticated() {
			t.Error("nil session should not be authenticated")
		}
		if (&Session{OAuthState: "x"}).Authenticated() {
			t.Error("session without tokens should not be authenticated")
		}
		if !(&Session{Tokens: &TokenRecord{}}).Authenticated() {
			t.Error("session with tokens should be authenticated")
		}
	})
}

func TestSampleSongs(t *testing.T) {
	songs := SampleSongs()
	if len(songs) != 3 {
		t.Fatalf("expected 3 sample songs, got %d", len(songs))
	}

	for i, s := range songs {
		if s.ID != i+1 {
			t.Errorf("expected id %d, got %d", i+1, s.ID)
		}
		if s.Title == "" || s.Artist == "" || s.Duration == 0 {
			t.Errorf("sample song %d missing fields: %+v", i, s)
		}
	}
}
