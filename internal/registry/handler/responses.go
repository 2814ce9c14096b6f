package handler

import (
	"time"

	"chancery/internal/registry/models"
)

// DocumentResponse is the persisted record shape exposed to callers.
type DocumentResponse struct {
	ID                 string     `json:"id"`
	OrgID              string     `json:"org_id"`
	Class              string     `json:"class"`
	RegistrationNumber *int       `json:"registration_number"`
	RegistrationYear   *int       `json:"registration_year"`
	FormattedNumber    string     `json:"formatted_number,omitempty"`
	Subject            string     `json:"subject"`
	Description        string     `json:"description,omitempty"`
	Status             string     `json:"status"`
	TerminalDecision   string     `json:"terminal_decision,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	CreatorID          string     `json:"creator_id"`
	LastEditorID       string     `json:"last_editor_id"`
	Secret             bool       `json:"secret"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func FromDocument(doc *models.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                 doc.ID.String(),
		OrgID:              doc.OrgID.String(),
		Class:              doc.Class.String(),
		RegistrationNumber: doc.RegistrationNumber,
		FormattedNumber:    doc.FormattedNumber(),
		Subject:            doc.Subject,
		Description:        doc.Description,
		Status:             doc.Status.String(),
		TerminalDecision:   doc.Decision.String(),
		DueDate:            doc.DueDate,
		CreatorID:          doc.CreatorID.String(),
		LastEditorID:       doc.LastEditorID.String(),
		Secret:             doc.Secret,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
	if doc.RegistrationNumber != nil {
		year := doc.RegistrationYear
		resp.RegistrationYear = &year
	}
	return resp
}

// StepResponse is one ledger entry as exposed over HTTP.
type StepResponse struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	ParentStepID *string    `json:"parent_step_id,omitempty"`
	FromActorID  string     `json:"from_actor_id"`
	ToActorID    *string    `json:"to_actor_id,omitempty"`
	Action       string     `json:"action"`
	Status       string     `json:"status"`
	Outcome      *string    `json:"outcome,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	IsExpired    bool       `json:"is_expired"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func FromHistory(history []models.WorkflowStep) []StepResponse {
	out := make([]StepResponse, 0, len(history))
	for _, step := range history {
		resp := StepResponse{
			ID:          step.ID.String(),
			DocumentID:  step.DocumentID.String(),
			FromActorID: step.FromActorID.String(),
			Action:      string(step.Action),
			Status:      string(step.Status),
			Notes:       step.Notes,
			IsExpired:   step.IsExpired,
			CreatedAt:   step.CreatedAt,
			CompletedAt: step.CompletedAt,
		}
		if step.ParentStepID != nil {
			s := step.ParentStepID.String()
			resp.ParentStepID = &s
		}
		if step.ToActorID != nil {
			s := step.ToActorID.String()
			resp.ToActorID = &s
		}
		if step.Outcome != nil {
			o := string(*step.Outcome)
			resp.Outcome = &o
		}
		out = append(out, resp)
	}
	return out
}
