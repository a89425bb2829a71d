package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a line could not be decoded.
type ErrorKind string

const (
	// MalformedInput means the line is not syntactically valid JSON.
	MalformedInput ErrorKind = "malformed_input"
	// SchemaViolation means the line is JSON but a required field is missing
	// or a field has an unexpected shape.
	SchemaViolation ErrorKind = "schema_violation"
	// NullParentID means a comment's parent_id is null or absent.
	NullParentID ErrorKind = "null_parent_id"
	// InvalidParentID means a comment's parent_id is not a valid composite ID.
	InvalidParentID ErrorKind = "invalid_parent_id"
	// InvalidTimestamp means created_utc is present but cannot be normalized.
	InvalidTimestamp ErrorKind = "invalid_timestamp"
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	return string(k)
}

// ErrorKinds lists every error kind in reporting order.
var ErrorKinds = []ErrorKind{
	MalformedInput,
	SchemaViolation,
	NullParentID,
	InvalidParentID,
	InvalidTimestamp,
}

var (
	// ErrNullParentID is returned by ParseParentID for an absent source value.
	ErrNullParentID = errors.New("parent_id is null")
	// ErrInvalidParentID is returned by ParseParentID for a malformed composite ID.
	ErrInvalidParentID = errors.New("invalid parent id")
	// ErrInvalidTimestamp is returned by NormalizeTimestamp for values that
	// are not an integer, a float or an integer string.
	ErrInvalidTimestamp = errors.New("invalid timestamp value")
)

// DecodeError is returned by ParseComment and ParseSubmission. It always
// carries the raw line that failed.
type DecodeError struct {
	Kind   ErrorKind
	Record RecordKind
	Field  string // JSON key at fault, when known
	Line   string
	Err    error
}

// Error formats the failure followed by the offending line.
func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode ")
	b.WriteString(e.Record.String())
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	b.WriteString(": line: ")
	b.WriteString(e.Line)
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err if it is (or wraps) a *DecodeError.
func KindOf(err error) (ErrorKind, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// errMissingField is the cause recorded for absent or null required fields.
var errMissingField = errors.New("missing required field")
