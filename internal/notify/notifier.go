// Package notify defines the best-effort notification contract. Deliveries
// may fail; the registry logs failures and never rolls back document state
// because of them.
package notify

import (
	"context"
	"html"

	id "chancery/pkg/domain"
)

// maxSubjectLen caps how much of a document subject is embedded in a
// notification message. Notifiers may render in HTML contexts, so the text is
// escaped before it crosses this boundary.
const maxSubjectLen = 200

// Notification is one message addressed to one actor.
type Notification struct {
	ActorID            id.ActorID
	Title              string
	Message            string
	Link               string
	OriginatingActorID id.ActorID
}

// Notifier delivers notifications. Implementations must be safe for
// concurrent use and should not block longer than the caller's context
// allows.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RoutingMessage builds the message body for a document routed to an actor.
// The subject is escaped and capped here, once, so no sink has to remember.
func RoutingMessage(subject string) string {
	return "A document was routed to you for action: " + SafeSubject(subject)
}

// SafeSubject escapes and caps a document subject for embedding in
// notification text.
func SafeSubject(subject string) string {
	runes := []rune(subject)
	if len(runes) > maxSubjectLen {
		runes = runes[:maxSubjectLen]
	}
	return html.EscapeString(string(runes))
}
