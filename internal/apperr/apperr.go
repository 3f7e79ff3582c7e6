// Package apperr defines the error kinds shared by the appointment, triage and
// notification cores. Callers branch on kind with errors.Is and read details
// with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("slot unavailable")
	ErrStateConflict = errors.New("state conflict")
	ErrStorage       = errors.New("storage failure")
	ErrNotFound      = errors.New("not found")
)

// Error carries the context a caller needs to decide whether and how to retry.
type Error struct {
	Kind     error
	Op       string
	Entity   string
	ID       string
	Field    string
	Expected string
	Actual   string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())

	switch {
	case e.Kind == ErrStateConflict:
		fmt.Fprintf(&b, ": %s %s is %s", e.Entity, e.ID, e.Actual)
		if e.Expected != "" {
			fmt.Fprintf(&b, ", expected %s", e.Expected)
		}
	case e.Field != "":
		fmt.Fprintf(&b, ": %s", e.Field)
	case e.Entity != "" && e.ID != "":
		fmt.Fprintf(&b, ": %s %s", e.Entity, e.ID)
	}

	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the sentinel kind so errors.Is(err, ErrStateConflict) works
// through any amount of wrapping.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(field, msg string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Msg: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Msg: msg}
}

// StateConflict reports that entity id was found in actual rather than expected.
func StateConflict(entity, id, expected, actual string) *Error {
	return &Error{
		Kind:     ErrStateConflict,
		Entity:   entity,
		ID:       id,
		Expected: expected,
		Actual:   actual,
	}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

// Storage wraps a persistence failure. Passing an error that already carries
// a kind returns it unchanged so adapters can call this unconditionally.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}

// CurrentStatus extracts the actual status reported by a StateConflict.
func CurrentStatus(err error) (string, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == ErrStateConflict {
		return ae.Actual, true
	}
	return "", false
}

// Retryable reports whether the same request may succeed if sent again.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorage)
}
