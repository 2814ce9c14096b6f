package service

import (
	"chancery/internal/registry/models"
	id "chancery/pkg/domain"
)

// ResolveStatus derives the document's lifecycle status from a terminal
// decision and the sanitized distribution list. Pure function; total over the
// decision x distribution space.
//
// Precedence:
//  1. approved/rejected always resolve, regardless of distribution.
//  2. redirected with recipients distributes.
//  3. no decision with recipients still distributes (someone holds it).
//  4. everything else is in work, including redirected with an empty list.
func ResolveStatus(decision models.TerminalDecision, distributed []id.ActorID) models.LifecycleStatus {
	if decision.Resolving() {
		return models.StatusResolved
	}
	if len(distributed) > 0 {
		return models.StatusDistributed
	}
	return models.StatusInWork
}
