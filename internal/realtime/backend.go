package realtime

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

// Backend persists records by path. Implementations only need per-call atomicity;
// the Store serializes writers.
type Backend interface {
	Get(ctx context.Context, path string) (Value, bool, error)
	Put(ctx context.Context, path string, v Value) error
	Delete(ctx context.Context, path string) error
	// List returns the direct children of collection sorted by key.
	List(ctx context.Context, collection string) ([]Entry, error)
	// Collections returns every collection holding at least one record whose
	// path ends with suffix.
	Collections(ctx context.Context, suffix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]Value // collection -> key -> value
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: map[string]map[string]Value{}}
}

func (m *MemoryBackend) Get(_ context.Context, path string) (Value, bool, error) {
	c, k := refs.Split(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[c][k]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (m *MemoryBackend) Put(_ context.Context, path string, v Value) error {
	c, k := refs.Split(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[c]; !ok {
		m.data[c] = map[string]Value{}
	}
	m.data[c][k] = clone(v)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, path string) error {
	c, k := refs.Split(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if col, ok := m.data[c]; ok {
		delete(col, k)
		if len(col) == 0 {
			delete(m.data, c)
		}
	}
	return nil
}

func (m *MemoryBackend) List(_ context.Context, collection string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col := m.data[collection]
	out := make([]Entry, 0, len(col))
	for k, v := range col {
		out = append(out, Entry{Key: k, Value: clone(v)})
	}
	sortEntries(out)
	return out, nil
}

func (m *MemoryBackend) Collections(_ context.Context, suffix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0)
	for c := range m.data {
		if strings.HasSuffix(c, suffix) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

func (m *MemoryBackend) Close() error { return nil }
