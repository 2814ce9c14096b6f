// Package step persists the append-only workflow ledger.
package step

import (
	"context"
	"sort"
	"sync"
	"time"

	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
)

// InMemoryLedger keeps per-document step slices. One mutex guards both the
// history-empty check and the first append, which is what prevents two
// concurrent first saves from double-inserting creator steps.
type InMemoryLedger struct {
	mu    sync.RWMutex
	steps map[id.DocumentID][]models.WorkflowStep
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{steps: make(map[id.DocumentID][]models.WorkflowStep)}
}

// AppendFirstSave appends the creator and distribution steps only when the
// document's ledger is still empty. Returns whether the append happened.
func (l *InMemoryLedger) AppendFirstSave(_ context.Context, docID id.DocumentID, steps []models.WorkflowStep) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.steps[docID]) > 0 {
		return false, nil
	}
	l.steps[docID] = append(l.steps[docID], steps...)
	return true, nil
}

// Append adds one step to an existing ledger.
func (l *InMemoryLedger) Append(_ context.Context, step models.WorkflowStep) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps[step.DocumentID] = append(l.steps[step.DocumentID], step)
	return nil
}

// History returns the ledger ordered by creation. The returned slice is a
// copy; the ledger itself is never handed out.
func (l *InMemoryLedger) History(_ context.Context, docID id.DocumentID) ([]models.WorkflowStep, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	history := append([]models.WorkflowStep{}, l.steps[docID]...)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})
	return history, nil
}

// ExpirePending flips the expiry flag on the document's pending steps and
// returns how many were flipped. Driven by the due-date sweep.
func (l *InMemoryLedger) ExpirePending(_ context.Context, docID id.DocumentID, _ time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	flipped := 0
	history := l.steps[docID]
	for i := range history {
		if history[i].Status == models.StepPending && !history[i].IsExpired {
			history[i].IsExpired = true
			flipped++
		}
	}
	return flipped, nil
}
