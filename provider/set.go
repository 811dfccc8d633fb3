package provider

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonwraymond/metatools/cache"
)

// Store is the type-independent view of a provider cache. *cache.LRU[V]
// implements it for every V.
type Store interface {
	Stats() cache.Stats
	Clear()
	Len() int
	Keys() []string
	MaxSize() int
	DefaultTTL() time.Duration
}

var _ Store = (*cache.LRU[any])(nil)

// Set holds one cache per provider.
type Set struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{stores: make(map[string]Store)}
}

// Register adds the cache for provider name.
func (s *Set) Register(name string, store Store) error {
	if name == "" {
		return ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stores[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	s.stores[name] = store
	return nil
}

// Lookup returns the cache for name.
func (s *Set) Lookup(name string) (Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return st, nil
}

// Names returns the registered provider names, sorted.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.stores))
}

// Stats sweeps and reports every provider cache.
func (s *Set) Stats() map[string]cache.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]cache.Stats, len(s.stores))
	for name, st := range s.stores {
		out[name] = st.Stats()
	}
	return out
}

// Clear empties the cache for name.
func (s *Set) Clear(name string) error {
	st, err := s.Lookup(name)
	if err != nil {
		return err
	}
	st.Clear()
	return nil
}

// ClearAll empties every provider cache.
func (s *Set) ClearAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stores {
		st.Clear()
	}
}
