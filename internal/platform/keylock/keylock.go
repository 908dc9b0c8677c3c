// Package keylock serializes work per key inside one process.
package keylock

import "sync"

type MutexMap struct {
	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

func New() *MutexMap {
	return &MutexMap{mutexes: make(map[string]*sync.Mutex)}
}

func (m *MutexMap) Lock(key string) {
	m.get(key).Lock()
}

func (m *MutexMap) Unlock(key string) {
	m.get(key).Unlock()
}

// Do runs fn while holding the mutex for key. A nil map runs fn unlocked.
func (m *MutexMap) Do(key string, fn func() error) error {
	if m == nil {
		return fn()
	}
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

func (m *MutexMap) get(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mutexes == nil {
		m.mutexes = make(map[string]*sync.Mutex)
	}
	if mu, ok := m.mutexes[key]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	m.mutexes[key] = mu
	return mu
}
