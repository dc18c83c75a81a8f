package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown entity or an entity without a trained model.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientData reports fewer samples than an operation needs.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateInput reports a zero-variance feature column.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrInvalidArgument reports malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedRecord reports an ingested row that failed validation.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrOutOfOrder reports an observation that does not advance the
	// entity's timestamp sequence.
	ErrOutOfOrder = fmt.Errorf("%w: observation out of order", ErrInvalidArgument)
)

// RecordError describes why a single ingested row was rejected.
type RecordError struct {
	Field  string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed record: field %q: %s", e.Field, e.Reason)
}

func (e *RecordError) Unwrap() error { return ErrMalformedRecord }
