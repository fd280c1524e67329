// internal/store/memory.go
//
// In-memory implementation of the session Store interface.
// Holds live game engines keyed by ID for the lifetime of a session;
// nothing here survives a process restart (finished games are persisted
// separately in SQLite by the HTTP layer).
//
// Characteristics:
//   - Stores *game.Engine objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Delete stops the engine's timers before dropping it.
//   - ErrNotFound is returned for missing IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/pairs-game/go-server/internal/game"
)

// ErrNotFound is returned by Get when no session exists for the ID.
var ErrNotFound = errors.New("session not found")

// Store defines the session registry for live game engines.
// Implementations may be backed by memory (this package), Redis, etc.
type Store interface {
	// Save registers or replaces a session.
	Save(ctx context.Context, e *game.Engine) error

	// Get retrieves a session by engine ID.
	Get(ctx context.Context, id string) (*game.Engine, error)

	// Delete stops and removes a session. Unknown IDs are a no-op.
	Delete(ctx context.Context, id string) error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Engine
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Engine)}
}

// Save adds or replaces the engine in the map.
func (m *memory) Save(ctx context.Context, e *game.Engine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[e.ID()] = e
	return nil
}

// Get looks up an engine by ID.
func (m *memory) Get(ctx context.Context, id string) (*game.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.sessions[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

// Delete stops the engine's timers and removes it.
func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if ok {
		e.Stop()
	}
	return nil
}
