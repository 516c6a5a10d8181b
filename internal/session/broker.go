package session

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/store"
)

// StateTTL is how long a state token can be resolved back to the session that issued it.
const StateTTL = 600 * time.Second

// Broker maps OAuth state tokens to the session that started the login.
//
// It lets a callback that arrives without the original cookie find its session.
type Broker struct {
	store  store.Store
	logger *log.Logger
}

func NewBroker(s store.Store, logger *log.Logger) *Broker {
	return &Broker{store: s, logger: logger}
}

// Record maps state to sid for [StateTTL].
func (b *Broker) Record(ctx context.Context, state, sid string) error {
	return b.store.PutState(ctx, state, sid, StateTTL)
}

// Resolve returns the session id recorded for state.
func (b *Broker) Resolve(ctx context.Context, state string) (string, bool) {
	if state == "" {
		return "", false
	}
	sid, err := b.store.GetState(ctx, state)
	if err != nil {
		if b.logger != nil {
			b.logger.Warn("failed to resolve oauth state", "error", err)
		}
		return "", false
	}
	return sid, sid != ""
}
