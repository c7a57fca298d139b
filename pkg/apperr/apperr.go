// Package apperr classifies errors so the HTTP layer and the batch jobs can
// decide how to react without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the category of an application error.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindDelivery    Kind = "delivery"
	KindPersistence Kind = "persistence"
	KindInternal    Kind = "internal"
)

// Error is an error carrying a Kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound(""))
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, nil, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, nil, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, nil, format, args...)
}

// Delivery wraps a notification failure.
func Delivery(err error, format string, args ...interface{}) *Error {
	return newf(KindDelivery, err, format, args...)
}

// Persistence wraps a storage failure.
func Persistence(err error, format string, args ...interface{}) *Error {
	return newf(KindPersistence, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
