package cart

import (
	"context"
	"fmt"
	"sync"
)

const keyNamespace = "glowhair:cart"

// Manager hands out one Store per session, rehydrating from storage on
// first access.
type Manager struct {
	mu      sync.Mutex
	storage SnapshotStore
	stores  map[string]*Store
}

// NewManager creates a cart manager backed by the given snapshot store.
func NewManager(storage SnapshotStore) *Manager {
	return &Manager{
		storage: storage,
		stores:  make(map[string]*Store),
	}
}

// Get returns the cart store for a session, creating and rehydrating it
// if this is the first access.
func (m *Manager) Get(ctx context.Context, sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[sessionID]; ok {
		return s
	}

	s := NewStore(ctx, fmt.Sprintf("%s:%s", keyNamespace, sessionID), m.storage)
	m.stores[sessionID] = s
	return s
}
