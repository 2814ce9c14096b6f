package directory

import (
	"context"
	"sync"

	id "chancery/pkg/domain"
)

// InMemoryDirectory backs unit tests and local runs.
type InMemoryDirectory struct {
	mu     sync.RWMutex
	active map[id.ActorID]bool
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{active: make(map[id.ActorID]bool)}
}

// AddActive registers actors as existing and active.
func (d *InMemoryDirectory) AddActive(ids ...id.ActorID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, actorID := range ids {
		d.active[actorID] = true
	}
}

// Deactivate marks an actor inactive without removing it.
func (d *InMemoryDirectory) Deactivate(actorID id.ActorID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active[actorID] = false
}

func (d *InMemoryDirectory) ListActive(_ context.Context, ids []id.ActorID) ([]id.ActorID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var active []id.ActorID
	for _, actorID := range ids {
		if d.active[actorID] {
			active = append(active, actorID)
		}
	}
	return active, nil
}
