package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/models"
	"github.com/desertthunder/vinyl/internal/shared"
	"github.com/matryer/is"
	"github.com/redis/go-redis/v9"
)

var errDown = errors.New("backend down")

// brokenStore fails every call.
type brokenStore struct{ calls int }

func (b *brokenStore) Exists(context.Context, string) (bool, error) {
	b.calls++
	return false, errDown
}

func (b *brokenStore) Get(context.Context, string) (*models.Session, error) {
	b.calls++
	return nil, errDown
}

func (b *brokenStore) Set(context.Context, string, *models.Session) error {
	b.calls++
	return errDown
}

func (b *brokenStore) Delete(context.Context, string) error {
	b.calls++
	return errDown
}

func (b *brokenStore) PutState(context.Context, string, string, time.Duration) error {
	b.calls++
	return errDown
}

func (b *brokenStore) GetState(context.Context, string) (string, error) {
	b.calls++
	return "", errDown
}

func (b *brokenStore) Ping(context.Context) error { return errDown }

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func tokenSession() *models.Session {
	return &models.Session{
		OAuthState: "pending",
		Tokens:     &models.TokenRecord{AccessToken: "a", RefreshToken: "r", ExpiresAt: 1700000000.5},
	}
}

// testStoreContract runs the behavior every backend shares.
func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing session is empty", func(t *testing.T) {
		is := is.New(t)
		ok, err := s.Exists(ctx, "nope")
		is.NoErr(err)
		is.True(!ok)

		got, err := s.Get(ctx, "nope")
		is.NoErr(err)
		is.True(got != nil)
		is.Equal(got.Tokens, nil)
		is.Equal(got.OAuthState, "")
	})

	t.Run("set get delete", func(t *testing.T) {
		is := is.New(t)
		is.NoErr(s.Set(ctx, "sid", tokenSession()))

		ok, err := s.Exists(ctx, "sid")
		is.NoErr(err)
		is.True(ok)

		got, err := s.Get(ctx, "sid")
		is.NoErr(err)
		is.Equal(got.OAuthState, "pending")
		is.Equal(got.Tokens.AccessToken, "a")
		is.Equal(got.Tokens.RefreshToken, "r")
		is.Equal(got.Tokens.ExpiresAt, 1700000000.5)

		is.NoErr(s.Delete(ctx, "sid"))
		ok, err = s.Exists(ctx, "sid")
		is.NoErr(err)
		is.True(!ok)
	})

	t.Run("set overwrites", func(t *testing.T) {
		is := is.New(t)
		is.NoErr(s.Set(ctx, "sid2", tokenSession()))
		is.NoErr(s.Set(ctx, "sid2", &models.Session{}))

		got, err := s.Get(ctx, "sid2")
		is.NoErr(err)
		is.Equal(got.Tokens, nil)
	})

	t.Run("empty session still exists", func(t *testing.T) {
		is := is.New(t)
		is.NoErr(s.Set(ctx, "blank", &models.Session{}))
		ok, err := s.Exists(ctx, "blank")
		is.NoErr(err)
		is.True(ok)
	})

	t.Run("state mapping", func(t *testing.T) {
		is := is.New(t)
		is.NoErr(s.PutState(ctx, "st", "sid", time.Minute))

		sid, err := s.GetState(ctx, "st")
		is.NoErr(err)
		is.Equal(sid, "sid")

		sid, err = s.GetState(ctx, "unknown")
		is.NoErr(err)
		is.Equal(sid, "")
	})

	t.Run("stored records are copies", func(t *testing.T) {
		is := is.New(t)
		sess := tokenSession()
		is.NoErr(s.Set(ctx, "copy", sess))
		sess.Tokens.AccessToken = "mutated"

		got, err := s.Get(ctx, "copy")
		is.NoErr(err)
		is.Equal(got.Tokens.AccessToken, "a")
	})
}

func TestMemory(t *testing.T) {
	testStoreContract(t, NewMemory())

	t.Run("state expires", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		now := time.Unix(1_000, 0)
		m := NewMemory()
		m.Now = func() time.Time { return now }

		is.NoErr(m.PutState(ctx, "st", "sid", 600*time.Second))
		now = now.Add(599 * time.Second)
		sid, _ := m.GetState(ctx, "st")
		is.Equal(sid, "sid")

		now = now.Add(time.Second)
		sid, _ = m.GetState(ctx, "st")
		is.Equal(sid, "")
	})

	t.Run("sweep drops expired states", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		now := time.Unix(1_000, 0)
		m := NewMemory()
		m.Now = func() time.Time { return now }

		is.NoErr(m.PutState(ctx, "short", "a", time.Second))
		is.NoErr(m.PutState(ctx, "long", "b", time.Hour))
		now = now.Add(time.Minute)

		is.Equal(m.Sweep(), 1)
		sid, _ := m.GetState(ctx, "long")
		is.Equal(sid, "b")
	})

	t.Run("capacity evicts the entry closest to expiry", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		m := NewMemory()
		m.capacity = 2

		is.NoErr(m.PutState(ctx, "first", "a", time.Minute))
		is.NoErr(m.PutState(ctx, "second", "b", time.Hour))
		is.NoErr(m.PutState(ctx, "third", "c", time.Hour))

		is.Equal(len(m.states), 2)
		sid, _ := m.GetState(ctx, "first")
		is.Equal(sid, "")
		sid, _ = m.GetState(ctx, "third")
		is.Equal(sid, "c")
	})
}

func TestRedis(t *testing.T) {
	r, mr := newTestRedis(t)
	testStoreContract(t, r)

	t.Run("key layout", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		is.NoErr(r.Set(ctx, "layout", &models.Session{OAuthState: "x"}))
		is.NoErr(r.PutState(ctx, "st-layout", "layout", 600*time.Second))

		raw, err := mr.Get("session:layout")
		is.NoErr(err)
		is.Equal(raw, `{"spotify_oauth_state":"x"}`)
		is.Equal(mr.TTL("session:layout"), time.Duration(0))

		sid, err := mr.Get("oauth_state:st-layout")
		is.NoErr(err)
		is.Equal(sid, "layout")
		is.Equal(mr.TTL("oauth_state:st-layout"), 600*time.Second)
	})

	t.Run("state expires", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		is.NoErr(r.PutState(ctx, "st-exp", "sid", 600*time.Second))
		mr.FastForward(601 * time.Second)

		sid, err := r.GetState(ctx, "st-exp")
		is.NoErr(err)
		is.Equal(sid, "")
	})

	t.Run("server errors surface", func(t *testing.T) {
		is := is.New(t)
		mr.SetError("LOADING")
		defer mr.SetError("")

		_, err := r.Get(context.Background(), "sid")
		is.True(err != nil)
	})
}

func TestNewRedis(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		is := is.New(t)
		_, err := NewRedis("http://localhost")
		is.True(err != nil)
	})

	t.Run("valid url", func(t *testing.T) {
		is := is.New(t)
		r, err := NewRedis("redis://localhost:6379/0")
		is.NoErr(err)
		is.NoErr(r.Close())
	})
}

func TestSQLite(t *testing.T) {
	s := newTestSQLite(t)
	testStoreContract(t, s)

	t.Run("state expires and cleanup removes it", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		now := time.Unix(1_000, 0)
		s.Now = func() time.Time { return now }
		defer func() { s.Now = time.Now }()

		is.NoErr(s.PutState(ctx, "old", "sid", 600*time.Second))
		is.NoErr(s.PutState(ctx, "new", "sid", time.Hour))
		now = now.Add(600 * time.Second)

		sid, err := s.GetState(ctx, "old")
		is.NoErr(err)
		is.Equal(sid, "")

		n, err := s.Cleanup(ctx)
		is.NoErr(err)
		is.Equal(n, int64(1))

		sid, err = s.GetState(ctx, "new")
		is.NoErr(err)
		is.Equal(sid, "sid")
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		is := is.New(t)
		is.NoErr(s.Migrate(context.Background()))
	})
}

func TestFallback(t *testing.T) {
	t.Run("healthy durable store is used", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		durable := NewMemory()
		f := NewFallback(durable, quietLogger())

		is.NoErr(f.Set(ctx, "sid", tokenSession()))
		ok, _ := durable.Exists(ctx, "sid")
		is.True(ok)
		ok, _ = f.Memory.Exists(ctx, "sid")
		is.True(!ok)
	})

	t.Run("failing durable store falls back per call", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		broken := &brokenStore{}
		f := NewFallback(broken, quietLogger())

		is.NoErr(f.Set(ctx, "sid", tokenSession()))
		got, err := f.Get(ctx, "sid")
		is.NoErr(err)
		is.Equal(got.Tokens.AccessToken, "a")

		ok, err := f.Exists(ctx, "sid")
		is.NoErr(err)
		is.True(ok)

		is.NoErr(f.PutState(ctx, "st", "sid", time.Minute))
		sid, err := f.GetState(ctx, "st")
		is.NoErr(err)
		is.Equal(sid, "sid")

		is.NoErr(f.Delete(ctx, "sid"))
		ok, _ = f.Exists(ctx, "sid")
		is.True(!ok)

		// every call went to the durable store first
		is.Equal(broken.calls, 7)
	})

	t.Run("recovered durable store is used again", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()
		r, mr := newTestRedis(t)
		f := NewFallback(r, quietLogger())

		mr.SetError("LOADING")
		is.NoErr(f.Set(ctx, "sid", &models.Session{OAuthState: "mem"}))
		mr.SetError("")

		is.NoErr(f.Set(ctx, "sid", &models.Session{OAuthState: "durable"}))
		got, err := f.Get(ctx, "sid")
		is.NoErr(err)
		is.Equal(got.OAuthState, "durable")
	})

	t.Run("logs a warning", func(t *testing.T) {
		is := is.New(t)
		var buf captureWriter
		f := NewFallback(&brokenStore{}, log.New(&buf))
		_, _ = f.Get(context.Background(), "sid")
		is.True(buf.n > 0)
	})
}

type captureWriter struct{ n int }

func (c *captureWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("empty driver without url is memory", func(t *testing.T) {
		is := is.New(t)
		s, closeFn, err := Open(ctx, shared.StoreConfig{}, quietLogger())
		is.NoErr(err)
		defer closeFn()
		_, ok := s.(*Memory)
		is.True(ok)
	})

	t.Run("empty driver with url is redis", func(t *testing.T) {
		is := is.New(t)
		mr := miniredis.RunT(t)
		s, closeFn, err := Open(ctx, shared.StoreConfig{RedisURL: "redis://" + mr.Addr()}, quietLogger())
		is.NoErr(err)
		defer closeFn()
		f, ok := s.(*Fallback)
		is.True(ok)
		_, ok = f.Durable.(*Redis)
		is.True(ok)
	})

	t.Run("unreachable redis runs on memory", func(t *testing.T) {
		is := is.New(t)
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		s, closeFn, err := Open(ctx, shared.StoreConfig{Driver: "redis", RedisURL: "redis://" + addr}, quietLogger())
		is.NoErr(err)
		defer closeFn()
		_, ok := s.(*Memory)
		is.True(ok)
	})

	t.Run("redis driver requires url", func(t *testing.T) {
		is := is.New(t)
		_, _, err := Open(ctx, shared.StoreConfig{Driver: "redis"}, quietLogger())
		is.True(errors.Is(err, shared.ErrInvalidConfig))
	})

	t.Run("sqlite", func(t *testing.T) {
		is := is.New(t)
		s, closeFn, err := Open(ctx, shared.StoreConfig{Driver: "sqlite", SQLitePath: ":memory:"}, quietLogger())
		is.NoErr(err)
		defer closeFn()
		f, ok := s.(*Fallback)
		is.True(ok)
		_, ok = f.Durable.(*SQLite)
		is.True(ok)
	})

	t.Run("unknown driver", func(t *testing.T) {
		is := is.New(t)
		_, _, err := Open(ctx, shared.StoreConfig{Driver: "etcd"}, quietLogger())
		is.True(errors.Is(err, shared.ErrInvalidConfig))
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		is := is.New(t)
		m := NewMemory()
		now := time.Unix(1_000, 0)
		m.Now = func() time.Time { return now }

		is.NoErr(m.PutState(ctx, "a", "sid", time.Second))
		now = now.Add(time.Minute)

		n, err := Sweep(ctx, m)
		is.NoErr(err)
		is.Equal(n, int64(1))
	})

	t.Run("fallback sweeps both layers", func(t *testing.T) {
		is := is.New(t)
		s := newTestSQLite(t)
		now := time.Unix(1_000, 0)
		s.Now = func() time.Time { return now }

		f := NewFallback(s, nil)
		f.Memory.Now = s.Now
		is.NoErr(s.PutState(ctx, "durable", "sid", time.Second))
		is.NoErr(f.Memory.PutState(ctx, "memory", "sid", time.Second))
		now = now.Add(time.Minute)

		n, err := Sweep(ctx, f)
		is.NoErr(err)
		is.Equal(n, int64(2))
	})

	t.Run("redis expires on its own", func(t *testing.T) {
		is := is.New(t)
		mr := miniredis.RunT(t)
		r, err := NewRedis("redis://" + mr.Addr())
		is.NoErr(err)
		defer r.Close()

		n, err := Sweep(ctx, r)
		is.NoErr(err)
		is.Equal(n, int64(0))
	})
}

func TestRunJanitor(t *testing.T) {
	is := is.New(t)
	m := NewMemory()
	now := time.Unix(1_000, 0)
	m.Now = func() time.Time { return now }
	is.NoErr(m.PutState(context.Background(), "a", "sid", time.Second))
	now = now.Add(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunJanitor(ctx, m, 5*time.Millisecond, log.New(io.Discard)) }()

	pending := func() int {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.states)
	}
	deadline := time.Now().Add(2 * time.Second)
	for pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	is.NoErr(<-done)
	is.Equal(pending(), 0)
}
