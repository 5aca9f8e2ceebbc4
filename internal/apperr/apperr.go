// Package apperr defines the error taxonomy shared by the gateways and the
// HTTP handlers. Every failure that reaches a handler is converted into one of
// these kinds, which in turn decides the HTTP status and the message placed in
// the {"error": "..."} envelope.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport.
type Kind int

const (
	Internal   Kind = iota // catch-all, 500
	Validation             // missing or malformed input, 400
	Auth                   // missing/invalid/expired token or credentials, 401
	NotFound               // record absent despite valid auth, 404
	Identity               // identity provider failure, 500 unless remapped
	Storage                // blob store failure, 500
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Auth:
		return "auth"
	case NotFound:
		return "not_found"
	case Identity:
		return "identity"
	case Storage:
		return "storage"
	default:
		return "internal"
	}
}

// Error carries a Kind, a client-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Status overrides the kind's default HTTP status when non-zero.
	Status int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code the error maps to.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NewValidation(msg string) *Error { return New(Validation, msg) }
func Unauthorized(msg string) *Error { return New(Auth, msg) }
func NewNotFound(msg string) *Error { return New(NotFound, msg) }

// WithStatus returns a copy of e answering with the given status code.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

// As extracts an *Error from err. Errors outside the taxonomy are reported as
// Internal with the given fallback message.
func As(err error, fallback string) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(Internal, fallback, err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
