package store

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/models"
)

// Fallback serves every call from Durable and, when that call fails, from Memory instead.
//
// The switch is per call: the next call tries Durable again.
type Fallback struct {
	Durable Store
	Memory  *Memory
	logger  *log.Logger
}

var _ Store = (*Fallback)(nil)

// NewFallback wraps durable with a fresh [Memory] store.
func NewFallback(durable Store, logger *log.Logger) *Fallback {
	return &Fallback{Durable: durable, Memory: NewMemory(), logger: logger}
}

func (f *Fallback) warn(op string, err error) {
	if f.logger != nil {
		f.logger.Warn("session store unavailable, using memory", "op", op, "error", err)
	}
}

func (f *Fallback) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := f.Durable.Exists(ctx, id)
	if err != nil {
		f.warn("exists", err)
		return f.Memory.Exists(ctx, id)
	}
	return ok, nil
}

func (f *Fallback) Get(ctx context.Context, id string) (*models.Session, error) {
	s, err := f.Durable.Get(ctx, id)
	if err != nil {
		f.warn("get", err)
		return f.Memory.Get(ctx, id)
	}
	return s, nil
}

func (f *Fallback) Set(ctx context.Context, id string, s *models.Session) error {
	if err := f.Durable.Set(ctx, id, s); err != nil {
		f.warn("set", err)
		return f.Memory.Set(ctx, id, s)
	}
	return nil
}

func (f *Fallback) Delete(ctx context.Context, id string) error {
	if err := f.Durable.Delete(ctx, id); err != nil {
		f.warn("delete", err)
	}
	return f.Memory.Delete(ctx, id)
}

func (f *Fallback) PutState(ctx context.Context, state, sessionID string, ttl time.Duration) error {
	if err := f.Durable.PutState(ctx, state, sessionID, ttl); err != nil {
		f.warn("put_state", err)
		return f.Memory.PutState(ctx, state, sessionID, ttl)
	}
	return nil
}

func (f *Fallback) GetState(ctx context.Context, state string) (string, error) {
	sid, err := f.Durable.GetState(ctx, state)
	if err != nil {
		f.warn("get_state", err)
		return f.Memory.GetState(ctx, state)
	}
	return sid, nil
}

func (f *Fallback) Ping(ctx context.Context) error {
	return f.Durable.Ping(ctx)
}
