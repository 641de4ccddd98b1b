package sdds

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors identifying the failure classes readers and writers
// produce. Match with errors.Is; the concrete error is always an *Error
// carrying position context.
var (
	// ErrMalformedNamelist reports a syntax violation in the header or in
	// quoted data tokens: a command without &end, unbalanced quotes, a
	// field without key=value shape.
	ErrMalformedNamelist = errors.New("malformed namelist")

	// ErrUnsupportedVersion reports a missing or unrecognized SDDS version
	// tag on the first line.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrDuplicateFieldName reports two field definitions sharing a name.
	// Parameters, columns, and arrays live in one namespace.
	ErrDuplicateFieldName = errors.New("duplicate field name")

	// ErrMissingType reports a field definition without a type key.
	ErrMissingType = errors.New("missing field type")

	// ErrUnknownFieldType reports a type key naming no SDDS type.
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrUnknownDataMode reports a &data command whose mode is missing or
	// neither ascii nor binary.
	ErrUnknownDataMode = errors.New("unknown data mode")

	// ErrMissingDataCommand reports a header that ended before &data.
	ErrMissingDataCommand = errors.New("missing &data command")

	// ErrRowCountRequired reports a binary no_row_counts stream read
	// without an externally supplied row count.
	ErrRowCountRequired = errors.New("row count required")

	// ErrTruncatedStream reports a data section that ended inside a page,
	// or carried an impossible length or count.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrFieldCountMismatch reports an ASCII row or array block whose
	// token count disagrees with the schema.
	ErrFieldCountMismatch = errors.New("field count mismatch")

	// ErrTypeMismatch reports a value whose type disagrees with the
	// declaration, on either the read or the write path.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrRowCountMismatch reports columns of unequal length, or an array
	// not matching its declared field_length, on the write path.
	ErrRowCountMismatch = errors.New("row count mismatch")
)

// Error is the concrete error type returned by readers and writers. It
// wraps one of the sentinel errors and records where in the stream the
// failure was observed.
type Error struct {
	Err    error  // sentinel classifying the failure
	Offset int64  // byte offset into the stream, -1 when unknown
	Page   int    // zero-based page index, -1 outside page data
	Field  string // field name, "" when not tied to one field
	Detail string // human-readable specifics
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("sdds: ")
	sb.WriteString(e.Err.Error())
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	var ctx []string
	if e.Field != "" {
		ctx = append(ctx, fmt.Sprintf("field %q", e.Field))
	}
	if e.Page >= 0 {
		ctx = append(ctx, fmt.Sprintf("page %d", e.Page))
	}
	if e.Offset >= 0 {
		ctx = append(ctx, fmt.Sprintf("offset %d", e.Offset))
	}
	if len(ctx) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(ctx, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap exposes the sentinel for errors.Is.
func (e *Error) Unwrap() error {
	return e.Err
}
