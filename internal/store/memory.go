package store

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/vinyl/internal/models"
)

// DefaultStateCapacity bounds the number of pending OAuth states kept in memory.
const DefaultStateCapacity = 10_000

// NewMemory creates an in-process [Store].
func NewMemory() *Memory {
	return &Memory{
		sessions: map[string][]byte{},
		states:   map[string]memoryState{},
		capacity: DefaultStateCapacity,
		Now:      time.Now,
	}
}

// Memory keeps sessions in a map for the lifetime of the process.
//
// Sessions are held encoded so callers never share a record with the store.
// State mappings honor their ttl and the map never grows past its capacity.
type Memory struct {
	mu       sync.Mutex
	sessions map[string][]byte
	states   map[string]memoryState
	capacity int

	// Now is used to get the current time. This is useful for testing.
	Now func() time.Time
}

var _ Store = (*Memory)(nil)

type memoryState struct {
	sessionID string
	expiry    time.Time
}

func (m *Memory) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok, nil
}

func (m *Memory) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	data := m.sessions[id]
	m.mu.Unlock()
	return decode(data)
}

func (m *Memory) Set(_ context.Context, id string, s *models.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = data
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) PutState(_ context.Context, state, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	if _, ok := m.states[state]; !ok && len(m.states) >= m.capacity {
		m.sweep(now)
		if len(m.states) >= m.capacity {
			m.evictOldest()
		}
	}
	m.states[state] = memoryState{sessionID: sessionID, expiry: now.Add(ttl)}
	return nil
}

func (m *Memory) GetState(_ context.Context, state string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[state]
	if !ok {
		return "", nil
	}
	if !m.Now().Before(st.expiry) {
		delete(m.states, state)
		return "", nil
	}
	return st.sessionID, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Sweep removes expired state mappings and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweep(m.Now())
}

func (m *Memory) sweep(now time.Time) int {
	n := 0
	for k, st := range m.states {
		if !now.Before(st.expiry) {
			delete(m.states, k)
			n++
		}
	}
	return n
}

// evictOldest drops the mapping closest to expiry.
func (m *Memory) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for k, st := range m.states {
		if oldest == "" || st.expiry.Before(at) {
			oldest, at = k, st.expiry
		}
	}
	delete(m.states, oldest)
}
