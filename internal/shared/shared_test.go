package shared

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestRandomToken(t *testing.T) {
	tc := []struct {
		name  string
		bytes int
		want  int
	}{
		{name: "session id", bytes: 32, want: 43},
		{name: "oauth state", bytes: 16, want: 22},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := RandomToken(tt.bytes)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tok) != tt.want {
				t.Errorf("expected length %d, got %d", tt.want, len(tok))
			}
			raw, err := base64.RawURLEncoding.DecodeString(tok)
			if err != nil {
				t.Fatalf("token is not url-safe base64: %v", err)
			}
			if len(raw) != tt.bytes {
				t.Errorf("expected %d bytes of entropy, got %d", tt.bytes, len(raw))
			}
		})
	}

	a, _ := RandomToken(32)
	b, _ := RandomToken(32)
	if a == b {
		t.Error("expected distinct tokens")
	}
}

func TestNewServerLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewServerLogger(&buf, LogConfig{Level: "debug", Format: "json"})
		l.Debug("hello", "key", "value")

		if !strings.Contains(buf.String(), `"msg":"hello"`) {
			t.Errorf("expected json output, got %s", buf.String())
		}
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewServerLogger(&buf, LogConfig{Level: "warn"})
		l.Info("dropped")

		if buf.Len() != 0 {
			t.Errorf("expected info to be filtered, got %s", buf.String())
		}
		if l.GetLevel() != log.WarnLevel {
			t.Errorf("expected warn level, got %v", l.GetLevel())
		}
	})

	t.Run("unknown level keeps default", func(t *testing.T) {
		l := NewServerLogger(&bytes.Buffer{}, LogConfig{Level: "loud"})
		if l.GetLevel() != log.InfoLevel {
			t.Errorf("expected info level, got %v", l.GetLevel())
		}
	})
}

func TestGenerateID(t *testing.T) {
	if id := GenerateID(); len(id) != 36 {
		t.Errorf("expected uuid string, got %q", id)
	}
}
