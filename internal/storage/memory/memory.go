// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/northwalk/floormap/internal/storage"
)

// Source keeps assets in memory. Fetches of a key can be held back with Block,
// which tests use to order asynchronous completions.
type Source struct {
	data    map[string][]byte
	gates   map[string]chan struct{}
	fetches map[string]int
	mu      sync.RWMutex
}

// Compile-time interface checks
var (
	_ storage.Source   = (*Source)(nil)
	_ storage.Writable = (*Source)(nil)
	_ storage.Lister   = (*Source)(nil)
)

// New creates a new memory source
func New() *Source {
	return &Source{
		data:    make(map[string][]byte),
		gates:   make(map[string]chan struct{}),
		fetches: make(map[string]int),
	}
}

// Init is a no-op for the memory source
func (s *Source) Init() error {
	return nil
}

// Close is a no-op for the memory source
func (s *Source) Close() error {
	return nil
}

// Put stores a copy of data under key.
func (s *Source) Put(_ context.Context, key string, data []byte) error {
	if !storage.ValidKey(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// Set is Put without a context, for test fixtures.
func (s *Source) Set(key string, data []byte) {
	_ = s.Put(context.Background(), key, data)
}

// Delete removes key.
func (s *Source) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Block holds every Fetch of key until the returned release func is called.
// Calling release more than once is safe.
func (s *Source) Block(key string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[key] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[key] == gate {
				delete(s.gates, key)
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Fetch returns a copy of the bytes under key.
func (s *Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.fetches[key]++
	gate := s.gates[key]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Fetches returns how many times key has been fetched.
func (s *Source) Fetches(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetches[key]
}

// Keys lists stored keys with the given prefix in sorted order.
func (s *Source) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
