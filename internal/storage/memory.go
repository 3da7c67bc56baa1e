package storage

import (
	"context"
	"sync"
)

// Memory keeps both scopes in process memory.
type Memory struct {
	mu     sync.RWMutex
	scopes map[Scope]map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{scopes: map[Scope]map[string]string{
		Persistent: {},
		Session:    {},
	}}
}

func (m *Memory) Get(_ context.Context, scope Scope, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.scopes[scope][key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, scope Scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.scopes[scope]
	if !ok {
		values = map[string]string{}
		m.scopes[scope] = values
	}
	values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, scope Scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scopes[scope], key)
	return nil
}
