// Package numbering assigns permanently unique sequential registration
// numbers per (organization, document class, year) scope.
package numbering

import (
	"context"
	"fmt"

	id "chancery/pkg/domain"
	dErrors "chancery/pkg/domain-errors"
)

// Scope is the composite key a sequence is unique within.
type Scope struct {
	OrgID id.OrgID
	Class id.DocumentClass
	Year  int
}

// CounterStore performs the atomic read-modify-write on one counter row.
// Implementations must guarantee that two concurrent NextValue calls for the
// same scope never observe the same value, and that the first call for a
// scope creates the counter at 1 without a check-then-insert race.
type CounterStore interface {
	NextValue(ctx context.Context, scope Scope) (int, error)
}

// Allocator hands out registration numbers. Numbers are never reused, even
// when the owning document is later cancelled.
type Allocator struct {
	store CounterStore
}

func New(store CounterStore) *Allocator {
	return &Allocator{store: store}
}

// Allocate returns the next sequence number for the scope together with the
// formatted display number "N/YYYY".
func (a *Allocator) Allocate(ctx context.Context, orgID id.OrgID, class id.DocumentClass, year int) (int, string, error) {
	if orgID.IsNil() {
		return 0, "", dErrors.New(dErrors.CodeInvalidInput, "organization id is required")
	}
	if !class.IsValid() {
		return 0, "", dErrors.New(dErrors.CodeInvalidInput, "invalid document class")
	}
	if year <= 0 {
		return 0, "", dErrors.New(dErrors.CodeInvalidInput, "year must be positive")
	}

	n, err := a.store.NextValue(ctx, Scope{OrgID: orgID, Class: class, Year: year})
	if err != nil {
		return 0, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate registration number")
	}
	return n, Format(n, year), nil
}

// Format renders the external registration number.
func Format(n, year int) string {
	return fmt.Sprintf("%d/%d", n, year)
}
