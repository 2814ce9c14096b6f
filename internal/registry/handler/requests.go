package handler

import (
	"time"

	"chancery/internal/registry/models"
	"chancery/internal/registry/service"
	id "chancery/pkg/domain"
	dErrors "chancery/pkg/domain-errors"
)

// CreateDocumentRequest is the wire shape for POST /registry/documents.
type CreateDocumentRequest struct {
	OrgID       string  `json:"org_id" validate:"required,uuid4_rfc4122|uuid_rfc4122"`
	Class       string  `json:"class" validate:"required"`
	Subject     string  `json:"subject" validate:"required,max=500"`
	Description string  `json:"description" validate:"max=10000"`
	Secret      bool    `json:"secret"`
	DueDate     *string `json:"due_date,omitempty"`
	Register    bool    `json:"register"`
}

// ToServiceRequest validates field formats and builds the service request.
func (r CreateDocumentRequest) ToServiceRequest() (service.CreateRequest, error) {
	orgID, err := id.ParseOrgID(r.OrgID)
	if err != nil {
		return service.CreateRequest{}, err
	}
	class, err := id.ParseDocumentClass(r.Class)
	if err != nil {
		return service.CreateRequest{}, err
	}
	dueDate, err := parseDueDate(r.DueDate)
	if err != nil {
		return service.CreateRequest{}, err
	}
	return service.CreateRequest{
		OrgID:       orgID,
		Class:       class,
		Subject:     r.Subject,
		Description: r.Description,
		Secret:      r.Secret,
		DueDate:     dueDate,
		Register:    r.Register,
	}, nil
}

// UpdateDocumentRequest is the wire shape for PATCH /registry/documents/{id}.
// Absent fields leave the record untouched.
type UpdateDocumentRequest struct {
	Subject             *string  `json:"subject,omitempty" validate:"omitempty,max=500"`
	Description         *string  `json:"description,omitempty" validate:"omitempty,max=10000"`
	TerminalDecision    *string  `json:"terminal_decision,omitempty"`
	DistributedActorIDs []string `json:"distributed_actor_ids,omitempty" validate:"max=1000,dive,required"`
	DueDate             *string  `json:"due_date,omitempty"`
	Secret              *bool    `json:"secret,omitempty"`
	Notes               *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ToPatch validates enumerations and id formats and builds the service patch.
func (r UpdateDocumentRequest) ToPatch() (service.UpdatePatch, error) {
	patch := service.UpdatePatch{
		Subject:     r.Subject,
		Description: r.Description,
	}
	if r.TerminalDecision != nil {
		decision, err := models.ParseTerminalDecision(*r.TerminalDecision)
		if err != nil {
			return service.UpdatePatch{}, err
		}
		patch.Decision = decision
	}
	for _, raw := range r.DistributedActorIDs {
		actorID, err := id.ParseActorID(raw)
		if err != nil {
			return service.UpdatePatch{}, dErrors.New(dErrors.CodeInvalidInput, "distribution list contains a malformed actor id")
		}
		patch.DistributedActorIDs = append(patch.DistributedActorIDs, actorID)
	}
	dueDate, err := parseDueDate(r.DueDate)
	if err != nil {
		return service.UpdatePatch{}, err
	}
	patch.DueDate = dueDate
	patch.Secret = r.Secret
	if r.Notes != nil {
		patch.Notes = *r.Notes
	}
	return patch, nil
}

// CancelDocumentRequest is the wire shape for the cancel action.
type CancelDocumentRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		// Also accept a bare date.
		t, err = time.Parse("2006-01-02", *raw)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "due date must be RFC 3339 or YYYY-MM-DD")
		}
	}
	return &t, nil
}
