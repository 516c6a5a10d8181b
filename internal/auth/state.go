package auth

import (
	"time"

	"github.com/desertthunder/vinyl/internal/models"
)

// RefreshSkew is how long before expires_at a stored access token stops being used.
const RefreshSkew = 15 * time.Second

// State is where a session's token record sits in its lifecycle.
type State int

const (
	// Unauthenticated sessions have no token record.
	Unauthenticated State = iota
	// Valid tokens are used as stored.
	Valid
	// Expiring tokens are refreshed before use.
	Expiring
	// RefreshFailed means a refresh was attempted and the session must log in again.
	RefreshFailed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Valid:
		return "valid"
	case Expiring:
		return "expiring"
	case RefreshFailed:
		return "refresh_failed"
	default:
		return "unknown"
	}
}

// Classify reports the state of rec at now.
func Classify(rec *models.TokenRecord, now time.Time) State {
	if rec == nil {
		return Unauthenticated
	}
	if rec.AccessToken != "" && now.Before(rec.Expiry().Add(-RefreshSkew)) {
		return Valid
	}
	return Expiring
}
