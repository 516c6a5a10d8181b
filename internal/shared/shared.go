// package shared defines shared helpers
package shared

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	l := log.NewWithOptions(w, opts)
	l.SetStyles(levelStyles())
	return l
}

// NewServerLogger creates the logger used by the HTTP server from [LogConfig].
//
// Unknown levels fall back to info, and format "json" switches to [log.JSONFormatter].
func NewServerLogger(w io.Writer, conf LogConfig) *log.Logger {
	l := NewLogger(w)
	if lvl, err := log.ParseLevel(strings.ToLower(conf.Level)); err == nil {
		SetLogLevel(l, lvl)
	}
	if strings.EqualFold(conf.Format, "json") {
		l.SetFormatter(log.JSONFormatter)
	}
	return l
}

// levelStyles colors level badges with the project palette.
func levelStyles() *log.Styles {
	styles := log.DefaultStyles()
	badge := func(label, fg string) lipgloss.Style {
		return lipgloss.NewStyle().SetString(label).Bold(true).Foreground(lipgloss.Color(fg))
	}
	styles.Levels[log.DebugLevel] = badge("DEBU", "#626262")
	styles.Levels[log.InfoLevel] = badge("INFO", "#04B575")
	styles.Levels[log.WarnLevel] = badge("WARN", "#FFA500")
	styles.Levels[log.ErrorLevel] = badge("ERRO", "#FF0000")
	styles.Levels[log.FatalLevel] = badge("FATA", "#7D56F4")
	return styles
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// RandomToken returns n bytes from [rand.Reader] encoded with unpadded URL-safe base64.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
