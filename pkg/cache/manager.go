package cache

import (
	"fmt"
	"time"
)

// Config controls the resource read cache.
type Config struct {
	Enabled bool
	MaxSize int
	TTL     time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{Enabled: true, MaxSize: 2048, TTL: 60 * time.Second}
}

// Manager is a key-addressed cache over serialized resource bundles. Keys
// are derived from the storage resource type and resource id, so mutations
// invalidate exactly the records they touched (including the record's
// public projection) instead of evicting everything.
type Manager struct {
	resources *LRUCache
}

// NewManager creates a Manager from the given configuration. If cfg is nil
// or disabled, it returns nil; a nil Manager is a no-op on every method.
func NewManager(cfg *Config) *Manager {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Manager{resources: NewLRUCache(cfg.MaxSize, cfg.TTL)}
}

// Key derives the cache key of one stored record.
func Key(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// Get retrieves a cached serialized bundle.
func (m *Manager) Get(resourceType, id string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	return m.resources.Get(Key(resourceType, id))
}

// Set caches a serialized bundle.
func (m *Manager) Set(resourceType, id string, payload []byte) {
	if m == nil {
		return
	}
	m.resources.Set(Key(resourceType, id), payload)
}

// InvalidateResource removes a record from the cache along with its public
// projection, which lives under the public type and a catalogue-prefixed id.
func (m *Manager) InvalidateResource(resourceType, publicType, id, catalogueID string) {
	if m == nil {
		return
	}
	m.resources.Invalidate(Key(resourceType, id))
	if publicType != "" {
		m.resources.Invalidate(Key(publicType, catalogueID+"."+id))
	}
}

// InvalidateAll clears the whole cache. Reserved for admin operations that
// rewrite records in bulk (cross-catalogue migration).
func (m *Manager) InvalidateAll() {
	if m == nil {
		return
	}
	m.resources.InvalidateAll()
}
