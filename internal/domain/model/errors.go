package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Every one of them aborts the batch.
var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidField       = errors.New("field is not a string or number")
	ErrMissingKey         = errors.New("record has no key")
	ErrNoOrders           = errors.New("no ORDER records to derive the week window from")
	ErrMalformedAmount    = errors.New("malformed order amount")
	ErrMalformedTimestamp = errors.New("malformed event_time")
)

// RecordError identifies the record and field a failure was detected on.
// errors.Is matches both Kind and the underlying cause.
type RecordError struct {
	Seq   int
	Key   string
	Field string
	Kind  error
	Err   error
}

// NewRecordError builds a RecordError for r.
func NewRecordError(r Record, field string, kind, cause error) *RecordError {
	return &RecordError{Seq: r.Seq, Key: r.Key.Value, Field: field, Kind: kind, Err: cause}
}

func (e *RecordError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "event #%d", e.Seq)
	if e.Key != "" {
		fmt.Fprintf(&b, " (key %q)", e.Key)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorKind maps an error to a short label for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidField):
		return "invalid_field"
	case errors.Is(err, ErrMissingKey):
		return "missing_key"
	case errors.Is(err, ErrNoOrders):
		return "no_orders"
	case errors.Is(err, ErrMalformedAmount):
		return "malformed_amount"
	case errors.Is(err, ErrMalformedTimestamp):
		return "malformed_timestamp"
	}
	return "other"
}
