// Package apperr defines the error kinds shared by every domain service and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindConflict
	KindAuthFailure
	KindConcurrencyConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindAuthFailure:
		return "auth_failure"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error carries a user-facing message. Err, when set, is the underlying
// cause and is never shown to clients.
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

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func InvalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func AuthFailure(msg string) *Error  { return &Error{Kind: KindAuthFailure, Message: msg} }
func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }

func ConcurrencyConflict(msg string, cause error) *Error {
	return &Error{Kind: KindConcurrencyConflict, Message: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the user-facing message of err, or a generic one for
// errors outside the taxonomy.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

func StatusOf(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindConflict, KindConcurrencyConflict:
		return http.StatusConflict
	case KindAuthFailure:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts a service error into an echo.HTTPError. Errors outside
// the taxonomy become a 500 whose internal cause is kept for logging.
func HTTPError(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	kind := KindOf(err)
	return echo.NewHTTPError(StatusOf(kind), MessageOf(err)).SetInternal(err)
}
