// Package apperr carries the error taxonomy shared by the ingest, analytics
// and HTTP layers. Every public operation fails with one of these kinds so
// the boundary can map failures to a stable response shape.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation: a required field is missing or malformed. Not retryable.
	Validation Kind = iota + 1
	// NotFound: the referenced id does not exist.
	NotFound
	// Forbidden: the caller lacks ownership or role for the resource.
	Forbidden
	// Storage: the storage collaborator failed. Surfaced, never swallowed.
	Storage
	// Broadcast: the fan-out failed. Logged only, never propagated to the
	// ingest caller.
	Broadcast
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or 0 when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the caller-visible message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}
