package storage

import (
	"context"
	"sync"
)

// Memory is a process-local KV. A positive Limit caps the total number of
// stored bytes and makes Set fail with ErrQuotaExceeded past it.
type Memory struct {
	mu    sync.RWMutex
	data  map[string][]byte
	size  int
	Limit int
}

func NewMemory(limit int) *Memory {
	return &Memory{data: make(map[string][]byte), Limit: limit}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	next := m.size - len(m.data[key]) + len(value)
	if m.Limit > 0 && next > m.Limit {
		return ErrQuotaExceeded
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	m.size = next
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size -= len(m.data[key])
	delete(m.data, key)
	return nil
}
