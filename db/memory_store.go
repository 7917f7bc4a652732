package db

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore keeps the records in process memory. Used by tests and by the
// "memory" storage driver; nothing survives a restart.
type MemoryStore struct {
	*records
	backend *memoryKV
}

// NewMemoryStore returns an empty store; the first load seeds the defaults
func NewMemoryStore(keys Keys, logger *zap.Logger) *MemoryStore {
	backend := &memoryKV{values: map[string]string{}, subs: map[chan string]struct{}{}}
	return &MemoryStore{
		records: &records{kv: backend, keys: keys, logger: logger},
		backend: backend,
	}
}

// Share returns another Store over the same backend, the way two processes
// share one Redis
func (m *MemoryStore) Share() *MemoryStore {
	return &MemoryStore{
		records: &records{kv: m.backend, keys: m.keys, logger: m.logger},
		backend: m.backend,
	}
}

// SetRaw writes a raw value without any encoding or notification
func (m *MemoryStore) SetRaw(key, value string) {
	m.backend.mu.Lock()
	defer m.backend.mu.Unlock()
	m.backend.values[key] = value
}

// Raw returns the raw stored value
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.backend.mu.Lock()
	defer m.backend.mu.Unlock()
	v, ok := m.backend.values[key]
	return v, ok
}

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
	subs   map[chan string]struct{}
}

func (m *memoryKV) get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// publish drops the message for subscribers whose buffer is full
func (m *memoryKV) publish(_ context.Context, _ string, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (m *memoryKV) subscribe(ctx context.Context, _ string) (<-chan string, error) {
	ch := make(chan string, 32)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}
