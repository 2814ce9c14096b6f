package step

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
)

type LedgerSuite struct {
	suite.Suite
	ledger *InMemoryLedger
	ctx    context.Context
	docID  id.DocumentID
	actor  id.ActorID
}

func (s *LedgerSuite) SetupTest() {
	s.ledger = NewInMemoryLedger()
	s.ctx = context.Background()
	s.docID = id.DocumentID(uuid.New())
	s.actor = id.ActorID(uuid.New())
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) firstSaveSteps(recipients int) []models.WorkflowStep {
	now := time.Now()
	steps := []models.WorkflowStep{
		models.NewCreatorStep(s.docID, s.actor, models.DecisionNone, "", now),
	}
	for i := 0; i < recipients; i++ {
		steps = append(steps, models.NewDistributionStep(s.docID, s.actor, id.ActorID(uuid.New()), "", now))
	}
	return steps
}

func (s *LedgerSuite) TestAppendFirstSave() {
	s.Run("appends when the ledger is empty", func() {
		appended, err := s.ledger.AppendFirstSave(s.ctx, s.docID, s.firstSaveSteps(2))
		s.Require().NoError(err)
		s.True(appended)

		history, err := s.ledger.History(s.ctx, s.docID)
		s.Require().NoError(err)
		s.Len(history, 3)
	})

	s.Run("refuses a second first save", func() {
		appended, err := s.ledger.AppendFirstSave(s.ctx, s.docID, s.firstSaveSteps(1))
		s.Require().NoError(err)
		s.False(appended)

		history, err := s.ledger.History(s.ctx, s.docID)
		s.Require().NoError(err)
		s.Len(history, 3)
	})
}

// Two concurrent first saves must produce exactly one creator step.
func (s *LedgerSuite) TestConcurrentFirstSave() {
	const attempts = 50

	var wg sync.WaitGroup
	wins := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			appended, err := s.ledger.AppendFirstSave(s.ctx, s.docID, s.firstSaveSteps(1))
			if err == nil && appended {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	s.Len(wins, 1)

	history, err := s.ledger.History(s.ctx, s.docID)
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *LedgerSuite) TestAppendAndOrdering() {
	base := time.Now()
	later := models.NewResolutionStep(s.docID, s.actor, models.DecisionApproved, "", base.Add(time.Minute))
	earlier := models.NewCreatorStep(s.docID, s.actor, models.DecisionNone, "", base)

	s.Require().NoError(s.ledger.Append(s.ctx, later))
	s.Require().NoError(s.ledger.Append(s.ctx, earlier))

	history, err := s.ledger.History(s.ctx, s.docID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(earlier.ID, history[0].ID)
	s.Equal(later.ID, history[1].ID)
}

func (s *LedgerSuite) TestHistoryIsACopy() {
	_, err := s.ledger.AppendFirstSave(s.ctx, s.docID, s.firstSaveSteps(0))
	s.Require().NoError(err)

	history, err := s.ledger.History(s.ctx, s.docID)
	s.Require().NoError(err)
	history[0].Notes = "mutated"

	reloaded, err := s.ledger.History(s.ctx, s.docID)
	s.Require().NoError(err)
	s.Empty(reloaded[0].Notes)
}

func (s *LedgerSuite) TestExpirePending() {
	_, err := s.ledger.AppendFirstSave(s.ctx, s.docID, s.firstSaveSteps(2))
	s.Require().NoError(err)

	flipped, err := s.ledger.ExpirePending(s.ctx, s.docID, time.Now())
	s.Require().NoError(err)
	s.Equal(2, flipped)

	// Completed steps never expire, and a second sweep flips nothing new.
	flipped, err = s.ledger.ExpirePending(s.ctx, s.docID, time.Now())
	s.Require().NoError(err)
	s.Zero(flipped)

	history, err := s.ledger.History(s.ctx, s.docID)
	s.Require().NoError(err)
	for _, step := range history {
		if step.Status == models.StepPending {
			s.True(step.IsExpired)
		} else {
			s.False(step.IsExpired)
		}
	}
}
