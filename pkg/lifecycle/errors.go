package lifecycle

import (
	"fmt"

	"github.com/epw80/document-tracking-platform/pkg/document"
)

// ValidationError reports missing or malformed intake input. Not retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PartialIntakeError is a degraded success: the primary record was written
// but the list-index entry was not. The document is fetchable by key yet
// invisible to time-range listing until the entry is repaired.
type PartialIntakeError struct {
	Doc *document.Document
	Err error
}

func (e *PartialIntakeError) Error() string {
	return fmt.Sprintf("document %s tracked but list entry not written: %v", e.Doc.ObjectKey, e.Err)
}

func (e *PartialIntakeError) Unwrap() error {
	return e.Err
}
