package settings

import (
	"context"
	"sync"
)

// Scope selects which bucket a setting lives in.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeSurvey Scope = "survey"
)

// Store is the per-scope key/value persistence the host provides. Get
// reports ok=false for keys that were never set.
type Store interface {
	Get(ctx context.Context, scope Scope, scopeID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, scope Scope, scopeID, key, value string) error
	Delete(ctx context.Context, scope Scope, scopeID, key string) error
}

type memKey struct {
	scope   Scope
	scopeID string
	key     string
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	vals map[memKey]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: map[memKey]string{}}
}

func (m *MemoryStore) Get(_ context.Context, scope Scope, scopeID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[memKey{scope, scopeID, key}]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, scope Scope, scopeID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[memKey{scope, scopeID, key}] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, scope Scope, scopeID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, memKey{scope, scopeID, key})
	return nil
}
