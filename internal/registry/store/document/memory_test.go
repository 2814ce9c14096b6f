package document

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
	"chancery/pkg/platform/sentinel"
)

type DocumentStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *DocumentStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func TestDocumentStoreSuite(t *testing.T) {
	suite.Run(t, new(DocumentStoreSuite))
}

func (s *DocumentStoreSuite) newDocument() *models.Document {
	doc, err := models.NewDocument(
		id.DocumentID(uuid.New()),
		id.OrgID(uuid.New()),
		id.DocumentClassInternal,
		"Office relocation memo",
		"",
		id.ActorID(uuid.New()),
		false,
		time.Now(),
	)
	s.Require().NoError(err)
	return doc
}

func (s *DocumentStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds a document", func() {
		doc := s.newDocument()
		s.Require().NoError(s.store.Create(s.ctx, doc))

		found, err := s.store.FindByID(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(doc.Subject, found.Subject)
	})

	s.Run("rejects duplicate ids", func() {
		doc := s.newDocument()
		s.Require().NoError(s.store.Create(s.ctx, doc))
		s.Require().ErrorIs(s.store.Create(s.ctx, doc), sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.DocumentID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("hands out copies, not the stored record", func() {
		doc := s.newDocument()
		s.Require().NoError(s.store.Create(s.ctx, doc))

		found, err := s.store.FindByID(s.ctx, doc.ID)
		s.Require().NoError(err)
		found.Subject = "mutated"

		reloaded, err := s.store.FindByID(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(doc.Subject, reloaded.Subject)
	})
}

func (s *DocumentStoreSuite) TestSave() {
	s.Run("persists changed fields", func() {
		doc := s.newDocument()
		s.Require().NoError(s.store.Create(s.ctx, doc))

		doc.Status = models.StatusInWork
		doc.Subject = "Office relocation memo, revised"
		s.Require().NoError(s.store.Save(s.ctx, doc))

		found, err := s.store.FindByID(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusInWork, found.Status)
		s.Equal("Office relocation memo, revised", found.Subject)
	})

	s.Run("saving an unknown document fails", func() {
		s.Require().ErrorIs(s.store.Save(s.ctx, s.newDocument()), sentinel.ErrNotFound)
	})
}

func (s *DocumentStoreSuite) TestListOverdue() {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	overdue := s.newDocument()
	overdue.DueDate = &past
	overdue.Status = models.StatusDistributed
	s.Require().NoError(s.store.Create(s.ctx, overdue))

	notYet := s.newDocument()
	notYet.DueDate = &future
	s.Require().NoError(s.store.Create(s.ctx, notYet))

	noDue := s.newDocument()
	s.Require().NoError(s.store.Create(s.ctx, noDue))

	cancelled := s.newDocument()
	cancelled.DueDate = &past
	cancelled.Status = models.StatusCancelled
	s.Require().NoError(s.store.Create(s.ctx, cancelled))

	ids, err := s.store.ListOverdue(s.ctx, now)
	s.Require().NoError(err)
	s.Require().Len(ids, 1)
	s.Equal(overdue.ID, ids[0])
}
