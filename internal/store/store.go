// package store persists browser sessions and OAuth state mappings
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/vinyl/internal/models"
)

const (
	sessionPrefix = "session:"
	statePrefix   = "oauth_state:"
)

// Store is the interface for session stores.
//
// Get returns an empty, non-nil session when id is unknown; errors are reserved for backend failures.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Set(ctx context.Context, id string, s *models.Session) error
	Delete(ctx context.Context, id string) error

	// PutState maps an OAuth state token to a session id for ttl.
	PutState(ctx context.Context, state, sessionID string, ttl time.Duration) error
	// GetState returns the session id for state, or "" when unknown or expired.
	GetState(ctx context.Context, state string) (string, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

func encode(s *models.Session) ([]byte, error) {
	if s == nil {
		s = &models.Session{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("store: failed to marshal session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*models.Session, error) {
	s := &models.Session{}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal session: %w", err)
	}
	return s, nil
}
