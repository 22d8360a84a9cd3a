// internal/store/manager.go
package store

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Manager hands out one Store per session id. Stores expire after an
// idle TTL; eviction releases every preview handle the store still owns,
// so a session that simply goes away cannot leak temp files.
type Manager struct {
	stores *gocache.Cache
}

// NewManager creates a manager whose stores live for ttl after their
// last access.
func NewManager(ttl time.Duration) *Manager {
	c := gocache.New(ttl, ttl/2)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*Store); ok {
			s.Clear()
		}
	})
	return &Manager{stores: c}
}

// Get returns the store for the session, creating it on first use. Each
// access refreshes the idle TTL.
func (m *Manager) Get(sessionID string) *Store {
	if v, ok := m.stores.Get(sessionID); ok {
		s := v.(*Store)
		m.stores.SetDefault(sessionID, s)
		return s
	}
	s := New()
	m.stores.SetDefault(sessionID, s)
	return s
}

// Drop removes the session's store immediately, releasing its previews.
func (m *Manager) Drop(sessionID string) {
	if v, ok := m.stores.Get(sessionID); ok {
		if s, ok := v.(*Store); ok {
			s.Clear()
		}
		m.stores.Delete(sessionID)
	}
}
