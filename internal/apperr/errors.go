// Package apperr defines the error taxonomy every request boundary maps to
// HTTP status codes. Handlers return these; the echo error handler turns
// them into the response envelope without leaking internal detail.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for status-code mapping.
type Kind int

const (
	// KindValidation covers malformed or out-of-range input, including
	// cross-tenant references.
	KindValidation Kind = iota + 1
	// KindAuthentication covers bad credentials and bad tokens.
	KindAuthentication
	// KindAuthorization covers role, tenant and ownership mismatches.
	KindAuthorization
	// KindLimitExceeded covers subscription quota rejections.
	KindLimitExceeded
	// KindConflict covers unique-constraint violations.
	KindConflict
	// KindNotFound covers missing entities.
	KindNotFound
	// KindInternal covers unexpected storage or infrastructure failures.
	KindInternal
)

// HTTPStatus returns the status code a kind maps to at the boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization, KindLimitExceeded:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Error is a classified error with a client-safe message. The wrapped cause,
// if any, is for logs only and never crosses the request boundary.
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

// Validation builds a 400-class error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Authentication builds a 401-class error.
func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

// Authorization builds a 403-class error.
func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// LimitExceeded builds a quota rejection, also reported as 403.
func LimitExceeded(msg string) *Error {
	return &Error{Kind: KindLimitExceeded, Message: msg}
}

// Conflict builds a 409-class error.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// NotFound builds a 404-class error.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Internal wraps an unexpected failure. The cause stays server-side; clients
// only ever see msg.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal
// for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for an error chain. Unclassified
// errors collapse to a generic message so no internal detail escapes.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
