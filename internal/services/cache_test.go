package services

import (
	"testing"
	"time"

	"github.com/desertthunder/vinyl/internal/models"
)

func TestSearchCache(t *testing.T) {
	songs := []models.Song{{ID: 1, Title: "Dreams"}}

	t.Run("Defaults", func(t *testing.T) {
		c := NewSearchCache(0, 0)
		if c.ttl != DefaultSearchTTL || c.capacity != DefaultSearchCapacity {
			t.Errorf("expected defaults, got ttl=%v capacity=%d", c.ttl, c.capacity)
		}
	})

	t.Run("Key", func(t *testing.T) {
		if k := SearchKey("daft punk", 20); k != "daft punk:20" {
			t.Errorf("unexpected key %q", k)
		}
	})

	t.Run("Fresh Entries Are Served Until TTL", func(t *testing.T) {
		now := time.Unix(1_000, 0)
		c := NewSearchCache(30*time.Second, 10)
		c.Now = func() time.Time { return now }

		c.Set("q:20", songs)

		now = now.Add(29 * time.Second)
		if got, ok := c.Get("q:20"); !ok || len(got) != 1 {
			t.Errorf("expected hit at 29s, got %v %v", got, ok)
		}

		now = now.Add(time.Second)
		if _, ok := c.Get("q:20"); ok {
			t.Error("expected miss at 30s")
		}
	})

	t.Run("Stale Entries Are Overwritten", func(t *testing.T) {
		now := time.Unix(1_000, 0)
		c := NewSearchCache(30*time.Second, 10)
		c.Now = func() time.Time { return now }

		c.Set("q:20", songs)
		now = now.Add(time.Minute)
		c.Set("q:20", []models.Song{{ID: 1, Title: "Rhiannon"}})

		got, ok := c.Get("q:20")
		if !ok || got[0].Title != "Rhiannon" {
			t.Errorf("expected overwritten entry, got %v %v", got, ok)
		}
		if c.Len() != 1 {
			t.Errorf("expected 1 entry, got %d", c.Len())
		}
	})

	t.Run("Limit Is Part Of The Key", func(t *testing.T) {
		c := NewSearchCache(0, 0)
		c.Set(SearchKey("q", 20), songs)
		if _, ok := c.Get(SearchKey("q", 10)); ok {
			t.Error("expected different limits to miss")
		}
	})

	t.Run("Evicts Least Recently Used", func(t *testing.T) {
		c := NewSearchCache(time.Hour, 2)
		c.Set("a", songs)
		c.Set("b", songs)
		c.Get("a")
		c.Set("c", songs)

		if c.Len() != 2 {
			t.Fatalf("expected 2 entries, got %d", c.Len())
		}
		if _, ok := c.Get("b"); ok {
			t.Error("expected b to be evicted")
		}
		if _, ok := c.Get("a"); !ok {
			t.Error("expected a to survive")
		}
	})
}
