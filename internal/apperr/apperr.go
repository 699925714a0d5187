// Package apperr defines the error taxonomy shared by the store, validation,
// authorization and query layers. The HTTP layer is the only place that turns
// a Kind into a status code.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an application error.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalidQuery
	KindValidation
	KindUnauthenticated
	KindAuthentication
	KindForbidden
	KindNotFound
	KindConflict
	KindAlreadyAuthenticated
)

var kindNames = map[Kind]string{
	KindInternal:             "InternalError",
	KindInvalidQuery:         "ValidationError",
	KindValidation:           "ValidationError",
	KindUnauthenticated:      "UnauthenticatedError",
	KindAuthentication:       "AuthenticationError",
	KindForbidden:            "ForbiddenError",
	KindNotFound:             "NotFoundError",
	KindConflict:             "ConflictError",
	KindAlreadyAuthenticated: "AlreadyAuthenticatedError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Error is a classified application error. Fields is set for field-scoped
// failures and maps a field name to its first failing message.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind and message, so wrapped copies
// of a sentinel still compare equal to it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

// Wrap returns a copy of e that unwraps to cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// KindOf reports the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func InvalidQuery(field, msg string) *Error {
	return &Error{Kind: KindInvalidQuery, Message: msg, Fields: map[string]string{field: msg}}
}

// Validation builds a 422-class error from a field map. The map is copied.
func Validation(fields map[string]string) *Error {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: cp}
}

func Invalid(field, msg string) *Error {
	return Validation(map[string]string{field: msg})
}

func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }

func Authentication(msg string) *Error { return &Error{Kind: KindAuthentication, Message: msg} }

func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func AlreadyAuthenticated(msg string) *Error {
	return &Error{Kind: KindAlreadyAuthenticated, Message: msg}
}

// Conflict reports a duplicate value. field may be empty when the store
// cannot tell which unique column was hit.
func Conflict(field, msg string) *Error {
	e := &Error{Kind: KindConflict, Message: msg}
	if field != "" {
		e.Fields = map[string]string{field: msg}
	}
	return e
}
