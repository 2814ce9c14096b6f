// Package directory answers "which of these actors exist and are active".
// The registry uses it to sanitize distribution lists before fanning out.
package directory

import (
	"context"

	id "chancery/pkg/domain"
)

// Directory filters a set of actor ids down to the ones that exist and are
// currently active. Order of the result is unspecified; callers must not
// infer anything about which ids were dropped.
type Directory interface {
	ListActive(ctx context.Context, ids []id.ActorID) ([]id.ActorID, error)
}
