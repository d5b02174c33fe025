package kvstore

import (
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory KVStore used in tests and for the
// ephemeral storage mode.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(key string, value []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryStore) SetBatch(pairs []KVPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pairs {
		if p.Key == "" {
			return ErrKeyEmpty
		}
	}
	for _, p := range pairs {
		v := make([]byte, len(p.Value))
		copy(v, p.Value)
		m.data[p.Key] = v
	}
	return nil
}

func (m *MemoryStore) List(prefix string) ([]KVPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]KVPair, 0)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out := make([]byte, len(v))
			copy(out, v)
			result = append(result, KVPair{Key: k, Value: out})
		}
	}
	// badger iterates in key order; match that
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *MemoryStore) Delete(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
