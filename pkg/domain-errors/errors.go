// Package domainerrors carries the error taxonomy shared by guards, services and
// the HTTP layer. Codes are transport-agnostic; HTTPStatus is the single place
// where they are translated to status codes.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for the caller.
type Code string

const (
	// CodeBadRequest covers bodies that cannot be parsed at all.
	CodeBadRequest Code = "bad_request"
	// CodeValidation covers itemized field validation failures.
	CodeValidation Code = "validation_failed"
	// CodeForbidden covers policy rejections: origin, anti-forgery, spam challenge.
	CodeForbidden Code = "forbidden"

	CodeMethodNotAllowed Code = "method_not_allowed"
	CodeRateLimited      Code = "rate_limited"
	CodeInternal         Code = "internal_error"
)

// Error is a classified error. Message is safe to show to clients for every
// code except CodeInternal.
type Error struct {
	Code    Code
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithDetails attaches itemized reasons (validation errors).
func (e *Error) WithDetails(details []string) *Error {
	e.Details = details
	return e
}

// As extracts a classified error from a chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// HTTPStatus maps a code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
