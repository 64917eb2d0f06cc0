package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected operation so the HTTP layer can map it to
// a distinct status and the UI can show a specific message.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1 // malformed or out-of-range input
	KindConflict                        // not valid in the current state
	KindNotFound                        // unknown remission or record
	KindForbidden                       // resource is locked (delivered)
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Error is returned by every service operation that rejects its input or the
// current state. Fields carries per-field messages for validation errors.
type Error struct {
	Kind   ErrorKind
	Msg    string
	Fields map[string]string
}

func (e *Error) Error() string { return e.Msg }

func errValidacion(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

func errConflicto(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func errNoEncontrada(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func errBloqueada(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a service error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind ErrorKind) bool { return KindOf(err) == kind }

// campos accumulates field errors while validating a request.
type campos map[string]string

func (c campos) add(field, msg string) {
	if _, ok := c[field]; !ok {
		c[field] = msg
	}
}

func (c campos) err() error {
	if len(c) == 0 {
		return nil
	}
	return errValidacion("Error de validacion", c)
}
