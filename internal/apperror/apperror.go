// Package apperror classifies engine failures so callers can tell a bad
// request from a conflict they may resolve by resuming an attempt.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindInsufficient  Kind = "insufficient_resource"
	KindConflict      Kind = "state_conflict"
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindInternal      Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string
	Code    string
	Message string
	// Detail identifies the offending input, e.g. the deficient tier.
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so sentinel values can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// With returns a copy of a sentinel annotated for one operation.
func (e *Error) With(op, detail string) *Error {
	c := *e
	c.Op = op
	c.Detail = detail
	return &c
}

// Wrap returns a copy of a sentinel carrying the underlying cause.
func (e *Error) Wrap(op string, err error) *Error {
	c := *e
	c.Op = op
	c.Err = err
	return &c
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Internal wraps an unexpected store or transport failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Code: "internal", Message: "internal error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
