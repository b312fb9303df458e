package listing

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is wrapped by every parse failure.
var ErrMalformedRecord = errors.New("malformed listing record")

// RecordError locates a malformed record in the listing.
type RecordError struct {
	Line  int // 1-based line in the listing
	Tag   string
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("listing line %d: %s record: %s: %v", e.Line, e.Tag, e.Field, e.Err)
	}
	return fmt.Sprintf("listing line %d: %s record: %s", e.Line, e.Tag, e.Field)
}

func (e *RecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRecord}
	}
	return []error{ErrMalformedRecord, e.Err}
}
