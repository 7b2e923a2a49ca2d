package store

import (
	"sort"
	"sync"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Panels are keyed by container ID. Subscribers receive updates via buffered
// channels (buffer size 100). Sends are non-blocking; if a subscriber's buffer
// is full the update is dropped for that subscriber only.
//
// Updates are serialised, so subscribers see renders of a panel in the same
// order the store applied them and the last one delivered is the one stored.
type MemoryStore struct {
	updateMu    sync.Mutex // orders store-then-notify across concurrent updates
	mu          sync.RWMutex
	panels      map[string]Panel
	subscribers map[chan Panel]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		panels:      make(map[string]Panel),
		subscribers: make(map[chan Panel]struct{}),
	}
}

// Update replaces the panel stored under p.ID and notifies all subscribers.
func (m *MemoryStore) Update(p Panel) {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	m.mu.Lock()
	m.panels[p.ID] = p
	m.mu.Unlock()

	m.notifySubscribers(p)
}

// Get returns the panel stored under id.
func (m *MemoryStore) Get(id string) (Panel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.panels[id]
	return p, ok
}

// GetAll returns a snapshot of all panels, sorted by ID.
func (m *MemoryStore) GetAll() []Panel {
	m.mu.RLock()
	panels := make([]Panel, 0, len(m.panels))
	for _, p := range m.panels {
		panels = append(panels, p)
	}
	m.mu.RUnlock()

	sort.Slice(panels, func(i, j int) bool { return panels[i].ID < panels[j].ID })
	return panels
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Panel {
	ch := make(chan Panel, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Panel) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers fans the panel out without blocking the render path.
func (m *MemoryStore) notifySubscribers(p Panel) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- p:
		default:
			// subscriber is slow, drop the update
		}
	}
}
