package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vinyl/internal/models"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 2 * time.Second
	DefaultReadTimeout  = 2 * time.Second
	DefaultWriteTimeout = 2 * time.Second
)

// Redis stores sessions as JSON strings under "session:<id>" without expiry and state
// mappings under "oauth_state:<state>" with their ttl.
type Redis struct {
	client redis.UniversalClient
}

var _ Store = (*Redis)(nil)

// NewRedis parses a redis:// or rediss:// URL and returns a store on a new client.
//
// The connection is not checked; call [Redis.Ping].
func NewRedis(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return NewRedisWithClient(redis.NewClient(opts)), nil
}

// NewRedisWithClient wraps a pre-configured client. This is useful for testing with miniredis.
func NewRedisWithClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, sessionPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Get(ctx context.Context, id string) (*models.Session, error) {
	val, err := r.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return &models.Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(val)
}

func (r *Redis) Set(ctx context.Context, id string, s *models.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionPrefix+id, data, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionPrefix+id).Err()
}

func (r *Redis) PutState(ctx context.Context, state, sessionID string, ttl time.Duration) error {
	return r.client.Set(ctx, statePrefix+state, sessionID, ttl).Err()
}

func (r *Redis) GetState(ctx context.Context, state string) (string, error) {
	val, err := r.client.Get(ctx, statePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
