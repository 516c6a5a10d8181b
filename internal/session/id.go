package session

import (
	"fmt"

	"github.com/desertthunder/vinyl/internal/shared"
)

// idBytes is the entropy of a session id: 256 bits.
const idBytes = 32

// maxIDLength bounds cookie values accepted as session ids.
const maxIDLength = 256

// GenerateID generates a cryptographically secure session ID.
func GenerateID() (string, error) {
	id, err := shared.RandomToken(idBytes)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return id, nil
}

// ValidID reports whether s looks like a session id: 1 to 256 characters of the URL-safe
// base64 alphabet.
func ValidID(s string) bool {
	if s == "" || len(s) > maxIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
