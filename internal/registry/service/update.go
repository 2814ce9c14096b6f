package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"chancery/internal/notify"
	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
	dErrors "chancery/pkg/domain-errors"
	"chancery/pkg/requestcontext"
)

// notifyConcurrency bounds parallel notifier calls during fan-out.
const notifyConcurrency = 8

// UpdatePatch is the partial update accepted by Update. Nil pointers leave
// the field untouched; Decision empty means no decision was supplied.
type UpdatePatch struct {
	Subject             *string
	Description         *string
	Decision            models.TerminalDecision
	DistributedActorIDs []id.ActorID
	DueDate             *time.Time
	Secret              *bool
	Notes               string
}

// Update is the document update orchestration: authorize, sanitize the
// distribution list, derive the new status, persist, append ledger entries,
// then fan out notifications. Notification failures never roll anything back.
func (s *Service) Update(ctx context.Context, docID id.DocumentID, actorID id.ActorID, patch UpdatePatch) (*models.Document, error) {
	start := time.Now()
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		return nil, wrapDocumentErr(err)
	}

	// Redirecting is restricted to the creator or an actor holding the
	// redirect-any capability. Approving or rejecting is not.
	if patch.Decision == models.DecisionRedirected {
		if actorID != doc.CreatorID && !requestcontext.Privileged(ctx) {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the creator may redirect this document")
		}
	}

	sanitized, err := s.sanitizeDistribution(ctx, docID, patch.DistributedActorIDs)
	if err != nil {
		return nil, err
	}

	newStatus := ResolveStatus(patch.Decision, sanitized)
	if doc.Status != newStatus && !doc.Status.CanTransition(newStatus) {
		// Covers the absorbing states and the reopen policy: a resolved
		// document does not go back to in_work or distributed through the
		// update path.
		return nil, dErrors.New(dErrors.CodeConflict, "document in status "+doc.Status.String()+" cannot move to "+newStatus.String())
	}

	now := requestcontext.Now(ctx)
	if patch.Subject != nil {
		if *patch.Subject == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "subject cannot be empty")
		}
		doc.Subject = *patch.Subject
	}
	if patch.Description != nil {
		doc.Description = *patch.Description
	}
	if patch.DueDate != nil {
		doc.DueDate = patch.DueDate
	}
	if patch.Secret != nil {
		doc.Secret = *patch.Secret
	}
	if patch.Decision != models.DecisionNone {
		doc.Decision = patch.Decision
	}
	doc.Status = newStatus
	doc.LastEditorID = actorID
	doc.UpdatedAt = now

	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, wrapDocumentErr(err)
	}

	if err := s.appendLedger(ctx, doc, actorID, patch, sanitized, now); err != nil {
		return nil, err
	}

	if patch.Decision == models.DecisionRedirected && len(sanitized) > 0 {
		s.fanOutNotifications(ctx, doc, actorID, sanitized)
	}

	if s.metrics != nil {
		s.metrics.ObserveUpdate(start)
	}
	s.logger.InfoContext(ctx, "document updated",
		"document_id", doc.ID,
		"actor_id", actorID,
		"status", doc.Status,
		"decision", patch.Decision,
		"distributed", len(sanitized),
	)
	return doc, nil
}

// sanitizeDistribution drops unknown and inactive actors. Only the count of
// dropped ids is logged; the ids themselves would leak which actors exist.
func (s *Service) sanitizeDistribution(ctx context.Context, docID id.DocumentID, ids []id.ActorID) ([]id.ActorID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	deduped := dedupeActorIDs(ids)
	active, err := s.directory.ListActive(ctx, deduped)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve distribution list")
	}
	if dropped := len(deduped) - len(active); dropped > 0 {
		if s.metrics != nil {
			s.metrics.DistributionSanitized.Add(float64(dropped))
		}
		s.logger.InfoContext(ctx, "distribution list sanitized",
			"document_id", docID,
			"dropped", dropped,
		)
	}
	return active, nil
}

// appendLedger writes the workflow steps an update implies. On the first save
// the creator step and distribution steps go in together through the
// ledger's race-safe gate; when a concurrent first save wins, this call
// degrades to the later-save behavior.
func (s *Service) appendLedger(ctx context.Context, doc *models.Document, actorID id.ActorID, patch UpdatePatch, sanitized []id.ActorID, now time.Time) error {
	firstSave := !doc.HasLedgerEntries
	if firstSave {
		steps := make([]models.WorkflowStep, 0, 1+len(sanitized))
		steps = append(steps, models.NewCreatorStep(doc.ID, doc.CreatorID, patch.Decision, patch.Notes, now))
		for _, recipient := range sanitized {
			steps = append(steps, models.NewDistributionStep(doc.ID, doc.CreatorID, recipient, patch.Notes, now))
		}
		appended, err := s.ledger.AppendFirstSave(ctx, doc.ID, steps)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record workflow steps")
		}
		if appended {
			doc.HasLedgerEntries = true
			if err := s.documents.Save(ctx, doc); err != nil {
				return wrapDocumentErr(err)
			}
			return nil
		}
		// Lost the first-save race; the winner wrote the creator and
		// distribution steps.
		doc.HasLedgerEntries = true
	}

	if patch.Decision.Resolving() {
		step := models.NewResolutionStep(doc.ID, actorID, patch.Decision, patch.Notes, now)
		if err := s.ledger.Append(ctx, step); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record resolution step")
		}
	}
	return nil
}

// fanOutNotifications delivers capped, best-effort routing notifications.
// Failures are logged and counted, never returned.
func (s *Service) fanOutNotifications(ctx context.Context, doc *models.Document, from id.ActorID, recipients []id.ActorID) {
	capped := recipients
	if len(capped) > s.fanoutCap {
		if s.metrics != nil {
			s.metrics.NotificationsDropped.Add(float64(len(capped) - s.fanoutCap))
		}
		s.logger.WarnContext(ctx, "notification fan-out capped",
			"document_id", doc.ID,
			"recipients", len(capped),
			"cap", s.fanoutCap,
		)
		capped = capped[:s.fanoutCap]
	}

	message := notify.RoutingMessage(doc.Subject)
	link := "/registry/documents/" + doc.ID.String()

	var g errgroup.Group
	g.SetLimit(notifyConcurrency)
	for _, recipient := range capped {
		recipient := recipient
		g.Go(func() error {
			err := s.notifier.Notify(ctx, notify.Notification{
				ActorID:            recipient,
				Title:              "Document routed to you",
				Message:            message,
				Link:               link,
				OriginatingActorID: from,
			})
			if err != nil {
				if s.metrics != nil {
					s.metrics.NotificationsDropped.Inc()
				}
				s.logger.WarnContext(ctx, "notification delivery failed",
					"document_id", doc.ID,
					"recipient_id", recipient,
					"error", err,
				)
				return nil
			}
			if s.metrics != nil {
				s.metrics.NotificationsSent.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func dedupeActorIDs(ids []id.ActorID) []id.ActorID {
	seen := make(map[id.ActorID]bool, len(ids))
	out := make([]id.ActorID, 0, len(ids))
	for _, actorID := range ids {
		if actorID.IsNil() || seen[actorID] {
			continue
		}
		seen[actorID] = true
		out = append(out, actorID)
	}
	return out
}
