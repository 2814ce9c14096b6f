//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chancery/internal/registry/models"
	"chancery/internal/registry/numbering"
	"chancery/internal/registry/store"
	documentstore "chancery/internal/registry/store/document"
	stepstore "chancery/internal/registry/store/step"
	id "chancery/pkg/domain"
	"chancery/pkg/platform/sentinel"
	"chancery/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	documents *documentstore.PostgresStore
	ledger    *stepstore.PostgresLedger
	counters  *numbering.PostgresCounterStore
	tx        *store.PostgresTx
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), "../../../migrations")
	s.documents = documentstore.NewPostgres(s.postgres.DB)
	s.ledger = stepstore.NewPostgres(s.postgres.DB)
	s.counters = numbering.NewPostgres(s.postgres.DB)
	s.tx = store.NewPostgresTx(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.postgres != nil {
		_ = s.postgres.DB.Close()
		_ = s.postgres.Container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateAll(ctx, "workflow_steps", "documents", "number_counters")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newDocument() *models.Document {
	doc, err := models.NewDocument(
		id.DocumentID(uuid.New()),
		id.OrgID(uuid.New()),
		id.DocumentClassIncoming,
		"Sewer line complaint",
		"",
		id.ActorID(uuid.New()),
		false,
		time.Now().UTC().Truncate(time.Microsecond),
	)
	s.Require().NoError(err)
	return doc
}

func (s *PostgresStoreSuite) TestDocumentRoundTrip() {
	ctx := context.Background()
	doc := s.newDocument()
	s.Require().NoError(doc.Register(1, 2026))
	s.Require().NoError(s.documents.Create(ctx, doc))

	found, err := s.documents.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.Subject, found.Subject)
	s.Equal(models.StatusRegistered, found.Status)
	s.Require().NotNil(found.RegistrationNumber)
	s.Equal(1, *found.RegistrationNumber)

	found.Status = models.StatusInWork
	found.Decision = models.DecisionNone
	s.Require().NoError(s.documents.Save(ctx, found))

	reloaded, err := s.documents.FindByID(ctx, found.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInWork, reloaded.Status)

	_, err = s.documents.FindByID(ctx, id.DocumentID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// The upsert-increment must hand out a dense sequence under concurrency.
func (s *PostgresStoreSuite) TestCounterConcurrency() {
	ctx := context.Background()
	scope := numbering.Scope{
		OrgID: id.OrgID(uuid.New()),
		Class: id.DocumentClassIncoming,
		Year:  2026,
	}

	const n = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values = make(map[int]bool, n)
	)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.counters.NextValue(ctx, scope)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			values[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	s.Require().Len(values, n)
	for i := 1; i <= n; i++ {
		s.True(values[i], "value %d missing", i)
	}
}

// Two racing first saves must leave exactly one creator step behind.
func (s *PostgresStoreSuite) TestFirstSaveGate() {
	ctx := context.Background()
	doc := s.newDocument()
	s.Require().NoError(s.documents.Create(ctx, doc))

	firstSave := func() []models.WorkflowStep {
		now := time.Now().UTC().Truncate(time.Microsecond)
		return []models.WorkflowStep{
			models.NewCreatorStep(doc.ID, doc.CreatorID, models.DecisionNone, "", now),
			models.NewDistributionStep(doc.ID, doc.CreatorID, id.ActorID(uuid.New()), "", now),
		}
	}

	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			appended, err := s.ledger.AppendFirstSave(ctx, doc.ID, firstSave())
			if err == nil && appended {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	s.Len(wins, 1)

	history, err := s.ledger.History(ctx, doc.ID)
	s.Require().NoError(err)
	s.Len(history, 2)

	reloaded, err := s.documents.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.True(reloaded.HasLedgerEntries)
}

// Allocation and insert share one transaction; a failing insert must not burn
// the number.
func (s *PostgresStoreSuite) TestAllocationRollsBackWithDocument() {
	ctx := context.Background()
	scope := numbering.Scope{
		OrgID: id.OrgID(uuid.New()),
		Class: id.DocumentClassOutgoing,
		Year:  2026,
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.counters.NextValue(txCtx, scope); err != nil {
			return err
		}
		return sentinel.ErrConflict
	})
	s.Require().Error(err)

	v, err := s.counters.NextValue(ctx, scope)
	s.Require().NoError(err)
	s.Equal(1, v)
}
