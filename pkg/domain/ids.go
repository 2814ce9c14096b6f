// Package domain holds typed identifiers and small value types shared across
// modules. Typed IDs prevent cross-type assignment at compile time; Parse*
// functions enforce the trust-boundary invariant that IDs are valid, non-nil
// UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "chancery/pkg/domain-errors"
)

// DocumentID identifies a registered document.
type DocumentID uuid.UUID

// ActorID identifies a person acting on documents (creator, recipient,
// resolver).
type ActorID uuid.UUID

// OrgID identifies the organizational unit a document belongs to. Registration
// numbers are scoped per organization.
type OrgID uuid.UUID

// StepID identifies one workflow ledger entry.
type StepID uuid.UUID

func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id ActorID) String() string    { return uuid.UUID(id).String() }
func (id OrgID) String() string      { return uuid.UUID(id).String() }
func (id StepID) String() string     { return uuid.UUID(id).String() }

func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id StepID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// ParseDocumentID parses external input into a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	return DocumentID(u), err
}

// ParseActorID parses external input into an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	return ActorID(u), err
}

// ParseOrgID parses external input into an OrgID.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s)
	return OrgID(u), err
}

// ParseStepID parses external input into a StepID.
func ParseStepID(s string) (StepID, error) {
	u, err := parseUUID(s)
	return StepID(u), err
}

// parseUUID rejects empty strings, malformed UUIDs, and the nil UUID. All ID
// parsing funnels through here so every boundary enforces the same rule.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}
