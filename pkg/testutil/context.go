package testutil

import (
	"net/http"

	id "chancery/pkg/domain"
	"chancery/pkg/requestcontext"
)

// WithActorID adds an actor ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the actorID is not a valid UUID, it will not be added to the context.
func WithActorID(req *http.Request, actorID string) *http.Request {
	if parsed, err := id.ParseActorID(actorID); err == nil {
		return req.WithContext(requestcontext.WithActorID(req.Context(), parsed))
	}
	return req
}

// WithPrivileged marks the request as carrying the redirect-any capability.
func WithPrivileged(req *http.Request) *http.Request {
	return req.WithContext(requestcontext.WithPrivileged(req.Context(), true))
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
