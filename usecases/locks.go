package usecases

import "sync"

// endpointLocks serializes command handling per endpoint. Two commands
// against the same endpoint never overlap between interlock evaluation and
// reconcile; commands against different endpoints run freely.
type endpointLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEndpointLocks() *endpointLocks {
	return &endpointLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the endpoint's mutex and returns the unlock func. Mutexes
// are kept for the process lifetime; the endpoint set is small and bounded.
func (l *endpointLocks) acquire(endpointID string) func() {
	l.mu.Lock()
	m, ok := l.locks[endpointID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[endpointID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
