package models

import (
	"time"

	"github.com/google/uuid"

	id "chancery/pkg/domain"
)

// StepAction names the routing action a ledger entry records.
type StepAction string

const (
	ActionSent      StepAction = "sent"
	ActionForwarded StepAction = "forwarded"
	ActionReturned  StepAction = "returned"
	ActionApproved  StepAction = "approved"
	ActionRejected  StepAction = "rejected"
	ActionResolved  StepAction = "resolved"
	ActionCancelled StepAction = "cancelled"
)

// StepStatus tracks whether the addressed actor still owes an action.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
)

// ResolutionOutcome is the recorded disposition on a completed step.
type ResolutionOutcome string

const (
	OutcomeApproved ResolutionOutcome = "approved"
	OutcomeRejected ResolutionOutcome = "rejected"
)

// WorkflowStep is one immutable ledger entry. Steps are append-only: only the
// pending->completed transition and the expiry flip mutate a row after insert.
// ParentStepID points at an earlier step of the same document, forming a
// forest rooted at the creator step; distribution steps sit directly under the
// implicit document root so each recipient can branch independently later.
type WorkflowStep struct {
	ID           id.StepID
	DocumentID   id.DocumentID
	ParentStepID *id.StepID
	FromActorID  id.ActorID
	ToActorID    *id.ActorID
	Action       StepAction
	Status       StepStatus
	Outcome      *ResolutionOutcome
	Notes        string
	IsExpired    bool
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// NewCreatorStep builds the self-referential first entry of a document's
// ledger. Filing the document is itself done, so the step completes
// immediately; the outcome is only set when the creator also decided.
func NewCreatorStep(docID id.DocumentID, creator id.ActorID, decision TerminalDecision, notes string, now time.Time) WorkflowStep {
	to := creator
	step := WorkflowStep{
		ID:          id.StepID(uuid.New()),
		DocumentID:  docID,
		FromActorID: creator,
		ToActorID:   &to,
		Action:      ActionSent,
		Status:      StepCompleted,
		Notes:       notes,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if decision.Resolving() {
		outcome := ResolutionOutcome(decision)
		step.Outcome = &outcome
	}
	return step
}

// NewDistributionStep builds one pending forwarded entry per recipient.
func NewDistributionStep(docID id.DocumentID, from, to id.ActorID, notes string, now time.Time) WorkflowStep {
	recipient := to
	return WorkflowStep{
		ID:          id.StepID(uuid.New()),
		DocumentID:  docID,
		FromActorID: from,
		ToActorID:   &recipient,
		Action:      ActionForwarded,
		Status:      StepPending,
		Notes:       notes,
		CreatedAt:   now,
	}
}

// NewResolutionStep records the human who approved or rejected the document.
// Only valid when the ledger already has entries; the orchestrator enforces
// that.
func NewResolutionStep(docID id.DocumentID, actor id.ActorID, decision TerminalDecision, notes string, now time.Time) WorkflowStep {
	self := actor
	outcome := ResolutionOutcome(decision)
	return WorkflowStep{
		ID:          id.StepID(uuid.New()),
		DocumentID:  docID,
		FromActorID: actor,
		ToActorID:   &self,
		Action:      ActionResolved,
		Status:      StepCompleted,
		Outcome:     &outcome,
		Notes:       notes,
		CreatedAt:   now,
		CompletedAt: &now,
	}
}

// NewCancellationStep records who cancelled the document and why.
func NewCancellationStep(docID id.DocumentID, actor id.ActorID, notes string, now time.Time) WorkflowStep {
	self := actor
	return WorkflowStep{
		ID:          id.StepID(uuid.New()),
		DocumentID:  docID,
		FromActorID: actor,
		ToActorID:   &self,
		Action:      ActionCancelled,
		Status:      StepCompleted,
		Notes:       notes,
		CreatedAt:   now,
		CompletedAt: &now,
	}
}
