package settings

import (
	"errors"
	"sync"
)

var errInvalidSlot = errors.New("settings: invalid RF slot")

// MemStore is the host Store: a plain map, safe for concurrent use.
type MemStore struct {
	mu     sync.Mutex
	floats map[string]float32
	bytes  map[string]uint8
}

func NewMemStore() *MemStore {
	return &MemStore{
		floats: make(map[string]float32),
		bytes:  make(map[string]uint8),
	}
}

func (m *MemStore) GetFloat(key string) (float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.floats[key]
	return v, ok
}

func (m *MemStore) PutFloat(key string, v float32) error {
	m.mu.Lock()
	m.floats[key] = v
	m.mu.Unlock()
	return nil
}

func (m *MemStore) GetUint8(key string) (uint8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.bytes[key]
	return v, ok
}

func (m *MemStore) PutUint8(key string, v uint8) error {
	m.mu.Lock()
	m.bytes[key] = v
	m.mu.Unlock()
	return nil
}
