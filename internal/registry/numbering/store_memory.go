package numbering

import (
	"context"
	"sync"
)

// InMemoryCounterStore serializes allocations per scope, not globally: the
// registry mutex is held only long enough to find or create the scope's
// counter, so allocations for distinct scopes proceed in parallel.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[Scope]*scopeCounter
}

type scopeCounter struct {
	mu    sync.Mutex
	value int
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{counters: make(map[Scope]*scopeCounter)}
}

func (s *InMemoryCounterStore) NextValue(_ context.Context, scope Scope) (int, error) {
	s.mu.Lock()
	counter, ok := s.counters[scope]
	if !ok {
		counter = &scopeCounter{}
		s.counters[scope] = counter
	}
	s.mu.Unlock()

	counter.mu.Lock()
	defer counter.mu.Unlock()
	counter.value++
	return counter.value, nil
}

// Current returns the last allocated value for a scope, 0 when none. Test
// helper; production code only moves counters forward.
func (s *InMemoryCounterStore) Current(scope Scope) int {
	s.mu.Lock()
	counter, ok := s.counters[scope]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	counter.mu.Lock()
	defer counter.mu.Unlock()
	return counter.value
}
