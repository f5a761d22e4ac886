// Package storage provides the key-value stores content snapshots are
// persisted to: an in-memory store, a directory-of-files store, and a SQLite
// store. All of them satisfy the contentstate.Storage collaborator shape:
//
//	Get(key) (value, ok, error)
//	Set(key, value) error
package storage

import "sync"

// Memory is a process-local store. Useful for tests and throwaway sessions.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value for key; ok is false when absent.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
