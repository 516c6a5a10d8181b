package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/shared"
)

// ProbeTimeout bounds the startup health check of a durable store.
const ProbeTimeout = 2 * time.Second

// Open builds the store selected by conf.
//
// A durable store that answers the startup probe is wrapped in [Fallback]. One that does not is
// closed, and the process runs on [Memory] alone. The returned func releases the backend.
func Open(ctx context.Context, conf shared.StoreConfig, logger *log.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	driver := conf.Driver
	if driver == "" {
		driver = "memory"
		if conf.RedisURL != "" {
			driver = "redis"
		}
	}

	var durable interface {
		Store
		io.Closer
	}
	switch driver {
	case "memory":
		logger.Info("using in-memory session store")
		return NewMemory(), noop, nil
	case "redis":
		if conf.RedisURL == "" {
			return nil, nil, fmt.Errorf("%w: redis store selected without redis_url", shared.ErrInvalidConfig)
		}
		r, err := NewRedis(conf.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		durable = r
	case "sqlite":
		s, err := OpenSQLite(ctx, conf.SQLitePath)
		if err != nil {
			logger.Warn("sqlite session store unavailable, using memory", "path", conf.SQLitePath, "error", err)
			return NewMemory(), noop, nil
		}
		durable = s
	default:
		return nil, nil, fmt.Errorf("%w: unknown store driver %q", shared.ErrInvalidConfig, driver)
	}

	pctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	if err := durable.Ping(pctx); err != nil {
		logger.Warn("session store probe failed, using memory", "driver", driver, "error", err)
		durable.Close()
		return NewMemory(), noop, nil
	}

	logger.Info("using durable session store", "driver", driver)
	return NewFallback(durable, logger), durable.Close, nil
}
