package models

import (
	"fmt"
	"time"

	id "chancery/pkg/domain"
	dErrors "chancery/pkg/domain-errors"
)

// LifecycleStatus is the document's coarse-grained state.
//
// draft -> registered -> in_work <-> distributed -> resolved -> archived
// cancelled is absorbing, reachable from in_work, distributed, and resolved.
// There is no path out of cancelled or archived.
type LifecycleStatus string

const (
	StatusDraft       LifecycleStatus = "draft"
	StatusRegistered  LifecycleStatus = "registered"
	StatusInWork      LifecycleStatus = "in_work"
	StatusDistributed LifecycleStatus = "distributed"
	StatusResolved    LifecycleStatus = "resolved"
	StatusArchived    LifecycleStatus = "archived"
	StatusCancelled   LifecycleStatus = "cancelled"
)

// statusTransitions is the single source of truth for legal status moves.
var statusTransitions = map[LifecycleStatus]map[LifecycleStatus]bool{
	StatusDraft: {
		StatusRegistered:  true,
		StatusInWork:      true,
		StatusDistributed: true,
		StatusResolved:    true,
	},
	StatusRegistered: {
		StatusInWork:      true,
		StatusDistributed: true,
		StatusResolved:    true,
	},
	StatusInWork: {
		StatusInWork:      true,
		StatusDistributed: true,
		StatusResolved:    true,
		StatusCancelled:   true,
	},
	StatusDistributed: {
		StatusInWork:      true,
		StatusDistributed: true,
		StatusResolved:    true,
		StatusCancelled:   true,
	},
	StatusResolved: {
		StatusArchived:  true,
		StatusCancelled: true,
		StatusResolved:  true,
	},
	StatusArchived:  {},
	StatusCancelled: {},
}

// CanTransition reports whether a move from s to next is legal.
func (s LifecycleStatus) CanTransition(next LifecycleStatus) bool {
	return statusTransitions[s][next]
}

// Terminal reports whether no further routing is possible.
func (s LifecycleStatus) Terminal() bool {
	return s == StatusArchived || s == StatusCancelled
}

func (s LifecycleStatus) String() string { return string(s) }

// TerminalDecision is the creator/resolver's disposition on a document.
// DecisionNone means no decision has been recorded yet.
type TerminalDecision string

const (
	DecisionNone       TerminalDecision = ""
	DecisionApproved   TerminalDecision = "approved"
	DecisionRejected   TerminalDecision = "rejected"
	DecisionRedirected TerminalDecision = "redirected"
)

// ParseTerminalDecision constructs a TerminalDecision from external input.
// The empty string is valid and means "no decision".
func ParseTerminalDecision(s string) (TerminalDecision, error) {
	switch d := TerminalDecision(s); d {
	case DecisionNone, DecisionApproved, DecisionRejected, DecisionRedirected:
		return d, nil
	default:
		return DecisionNone, dErrors.New(dErrors.CodeInvalidInput, "invalid terminal decision")
	}
}

// Resolving reports whether the decision closes the document.
func (d TerminalDecision) Resolving() bool {
	return d == DecisionApproved || d == DecisionRejected
}

func (d TerminalDecision) String() string { return string(d) }

// Document is the registered record. Once a registration number is assigned it
// is immutable; cancellation is a status, never a delete, so numbers are never
// reclaimed.
type Document struct {
	ID                 id.DocumentID
	OrgID              id.OrgID
	Class              id.DocumentClass
	RegistrationNumber *int
	RegistrationYear   int
	Subject            string
	Description        string
	Status             LifecycleStatus
	Decision           TerminalDecision
	DueDate            *time.Time
	CreatorID          id.ActorID
	LastEditorID       id.ActorID
	Secret             bool
	HasLedgerEntries   bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewDocument validates creation invariants and builds a draft record.
// Callers that want a registration number assign it through the allocator and
// flip the status to registered in the same unit of work.
func NewDocument(docID id.DocumentID, orgID id.OrgID, class id.DocumentClass, subject, description string, creator id.ActorID, secret bool, now time.Time) (*Document, error) {
	if docID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document id is required")
	}
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization id is required")
	}
	if !class.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document class is required")
	}
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject is required")
	}
	if creator.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creator id is required")
	}
	return &Document{
		ID:           docID,
		OrgID:        orgID,
		Class:        class,
		Subject:      subject,
		Description:  description,
		Status:       StatusDraft,
		Decision:     DecisionNone,
		CreatorID:    creator,
		LastEditorID: creator,
		Secret:       secret,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Register records an allocated number. The number is immutable afterwards.
func (d *Document) Register(number, year int) error {
	if d.RegistrationNumber != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "registration number already assigned")
	}
	d.RegistrationNumber = &number
	d.RegistrationYear = year
	if d.Status == StatusDraft {
		d.Status = StatusRegistered
	}
	return nil
}

// FormattedNumber returns the display number "N/YYYY", empty when the
// document has not been registered yet.
func (d *Document) FormattedNumber() string {
	if d.RegistrationNumber == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", *d.RegistrationNumber, d.RegistrationYear)
}

// CanCancel reports whether cancellation is legal from the current status.
func (d *Document) CanCancel() error {
	if !d.Status.CanTransition(StatusCancelled) {
		return dErrors.New(dErrors.CodeInvariantViolation, "document cannot be cancelled in status "+d.Status.String())
	}
	return nil
}

// CanArchive reports whether archival is legal from the current status.
func (d *Document) CanArchive() error {
	if !d.Status.CanTransition(StatusArchived) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only resolved documents can be archived")
	}
	return nil
}
