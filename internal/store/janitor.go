package store

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// SweepInterval is how often [RunJanitor] purges expired state mappings.
const SweepInterval = time.Minute

// Sweep purges expired state mappings from s and returns how many were removed.
//
// Redis expires keys itself, so stores without a sweep of their own report 0.
func Sweep(ctx context.Context, s Store) (int64, error) {
	switch st := s.(type) {
	case *Memory:
		return int64(st.Sweep()), nil
	case *SQLite:
		return st.Cleanup(ctx)
	case *Fallback:
		n := int64(st.Memory.Sweep())
		m, err := Sweep(ctx, st.Durable)
		return n + m, err
	default:
		return 0, nil
	}
}

// RunJanitor calls [Sweep] every interval until ctx is done.
func RunJanitor(ctx context.Context, s Store, interval time.Duration, logger *log.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := Sweep(ctx, s)
			if err != nil {
				logger.Warn("failed to purge expired oauth states", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged expired oauth states", "count", n)
			}
		}
	}
}
