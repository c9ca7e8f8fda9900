package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory BlobStore used in tests and for ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// SaveErr, when set, is returned by every Save. Lets tests exercise the
	// persistence failure path.
	SaveErr error
	// SaveCalls counts Save invocations.
	SaveCalls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[key] = cp
	return nil
}

func (m *MemoryStore) Close() error { return nil }
