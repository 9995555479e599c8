package storage

import (
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and as an ephemeral
// fallback when no database path is configured. Like the sqlite backend it
// can enforce a byte quota, and it can additionally be told to fail every
// write, to exercise degraded-persistence paths.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	maxBytes int64
	failSets bool
}

// NewMemoryStore creates a MemoryStore. maxBytes of 0 disables the quota.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

// FailWrites makes every subsequent Set return ErrQuotaExceeded.
func (m *MemoryStore) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSets = fail
}

func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSets {
		return ErrQuotaExceeded
	}
	if m.maxBytes > 0 {
		var used int64
		for k, v := range m.data {
			if k == key {
				continue
			}
			used += int64(len(v))
		}
		if used+int64(len(value)) > m.maxBytes {
			return ErrQuotaExceeded
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
