// File: internal/store/memory.go
package store

import (
	"context"
	"sync"
)

// Memory is the no-persistence backend: a mutex-guarded set. It backs tests
// and sessions run with persistence disabled, and is the fallback when the
// sqlite backend cannot open.
type Memory struct {
	mu    sync.RWMutex
	set   map[Key]struct{}
	total int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{set: make(map[Key]struct{})}
}

func (m *Memory) Contains(k Key) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.set[k]
	return ok
}

func (m *Memory) Add(k Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.set[k]; ok {
		return
	}
	m.set[k] = struct{}{}
	m.total++
}

func (m *Memory) All() []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]Key, 0, len(m.set))
	for k := range m.set {
		keys = append(keys, k)
	}
	return keys
}

func (m *Memory) Total() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set = make(map[Key]struct{})
	m.total = 0
	return nil
}

func (m *Memory) Close() error { return nil }
