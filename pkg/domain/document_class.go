package domain

import dErrors "chancery/pkg/domain-errors"

// DocumentClass distinguishes registers. Each (org, class, year) scope has its
// own independent number sequence.
//
// Usage: construct via ParseDocumentClass at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DocumentClass string

const (
	DocumentClassIncoming DocumentClass = "incoming"
	DocumentClassOutgoing DocumentClass = "outgoing"
	DocumentClassInternal DocumentClass = "internal"
)

// validDocumentClasses is the single source of truth for valid classes.
var validDocumentClasses = map[DocumentClass]bool{
	DocumentClassIncoming: true,
	DocumentClassOutgoing: true,
	DocumentClassInternal: true,
}

// ParseDocumentClass constructs a DocumentClass from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDocumentClass(s string) (DocumentClass, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document class cannot be empty")
	}
	c := DocumentClass(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid document class")
	}
	return c, nil
}

// IsValid checks if the class is one of the supported enum values.
func (c DocumentClass) IsValid() bool {
	return validDocumentClasses[c]
}

func (c DocumentClass) String() string {
	return string(c)
}
