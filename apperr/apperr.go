// Package apperr defines the closed set of error kinds the service reports:
// validation, upstream collaborator failure, payment verification failure,
// and post-payment bookkeeping failure.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindUpstream     Kind = "upstream"
	KindVerification Kind = "verification"
	KindBookkeeping  Kind = "bookkeeping"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind carried by err, or empty if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing message for err, falling back to a generic
// one so raw upstream errors never leak to the client.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "something went wrong, please try again"
}

// HTTPStatus maps an error kind to the response code the transport layer uses.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindVerification:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	case KindBookkeeping:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
