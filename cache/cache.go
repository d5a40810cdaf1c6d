package cache

import (
	"sync"

	"brewos-server/entities"
)

// CurrentCache is the in-memory fast-read projection of the latest known
// value per endpoint. The reconciler writes through after its durable
// writes commit; readers never touch the database on a hit.
type CurrentCache struct {
	mu      sync.RWMutex
	current map[string]entities.CurrentValue // endpointID -> latest
}

func NewCurrentCache() *CurrentCache {
	return &CurrentCache{current: make(map[string]entities.CurrentValue)}
}

// Put records the cached value for an endpoint. A stale observation
// racing a newer one never wins: entries only move forward in time.
func (cc *CurrentCache) Put(cv entities.CurrentValue) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if existing, ok := cc.current[cv.EndpointID]; ok && existing.Timestamp.After(cv.Timestamp) {
		return
	}
	cc.current[cv.EndpointID] = cv
}

// Get returns the cached value for an endpoint, if present.
func (cc *CurrentCache) Get(endpointID string) (entities.CurrentValue, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cv, ok := cc.current[endpointID]
	return cv, ok
}

// All returns a copy of every cached value.
func (cc *CurrentCache) All() []entities.CurrentValue {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	all := make([]entities.CurrentValue, 0, len(cc.current))
	for _, cv := range cc.current {
		all = append(all, cv)
	}
	return all
}

// Warm seeds the cache from a database snapshot, keeping newer entries
// already written by concurrent reconciles.
func (cc *CurrentCache) Warm(snapshot []entities.CurrentValue) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	for _, cv := range snapshot {
		if existing, ok := cc.current[cv.EndpointID]; ok && existing.Timestamp.After(cv.Timestamp) {
			continue
		}
		cc.current[cv.EndpointID] = cv
	}
}

// Stats reports cache size for the diagnostics endpoint.
func (cc *CurrentCache) Stats() map[string]interface{} {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return map[string]interface{}{
		"endpoints_cached": len(cc.current),
	}
}
