// Package document persists registered document records.
package document

import (
	"context"
	"sync"
	"time"

	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
	"chancery/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and local runs. All methods copy records on
// the way in and out so callers never share mutable state with the store.
type InMemoryStore struct {
	mu        sync.RWMutex
	documents map[id.DocumentID]*models.Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{documents: make(map[id.DocumentID]*models.Document)}
}

func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *doc
	s.documents[doc.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *InMemoryStore) Save(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *doc
	s.documents[doc.ID] = &copied
	return nil
}

// ListOverdue returns ids of live documents whose due date passed. Feeds the
// expiry sweep.
func (s *InMemoryStore) ListOverdue(_ context.Context, now time.Time) ([]id.DocumentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var overdue []id.DocumentID
	for _, doc := range s.documents {
		if doc.DueDate != nil && doc.DueDate.Before(now) && !doc.Status.Terminal() {
			overdue = append(overdue, doc.ID)
		}
	}
	return overdue, nil
}
